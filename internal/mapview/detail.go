package mapview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/venue-map/internal/domain"
	"github.com/couchcryptid/venue-map/internal/observability"
	"github.com/google/uuid"
)

// DetailFetcher reads the most recent reviews of a record.
type DetailFetcher interface {
	RecentReviews(ctx context.Context, venueID string, limit int) ([]domain.ReviewSummary, error)
}

// detailLoader drives the per-handle detail state machine:
//
//	unopened -> loading -> loaded | error
//	loading  -> unopened   (popup closed or marker removed)
//
// The goroutine doing the fetch only keeps the record id, handle token and
// request tag; the result is applied on the loop after re-checking all three.
type detailLoader struct {
	ctx     context.Context
	fetcher DetailFetcher
	limit   int
	post    func(func()) bool
	lookup  func(id string, token uuid.UUID) *MarkerHandle
	metrics *observability.Metrics
	logger  *slog.Logger
}

func (d *detailLoader) open(h *MarkerHandle) {
	if h.state != DetailUnopened {
		return
	}
	h.seq++
	h.state = DetailLoading

	ctx, cancel := context.WithCancel(d.ctx)
	h.cancel = cancel
	id, token, tag := h.record.ID, h.token, h.seq

	go func() {
		reviews, err := d.fetcher.RecentReviews(ctx, id, d.limit)
		cancel()
		d.post(func() { d.settle(id, token, tag, reviews, err) })
	}()
}

// cancel abandons an in-flight load. Loaded and errored popups keep their
// state.
func (d *detailLoader) cancel(h *MarkerHandle) {
	if h.state != DetailLoading {
		return
	}
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.state = DetailUnopened
}

func (d *detailLoader) settle(id string, token uuid.UUID, tag uint64, reviews []domain.ReviewSummary, err error) {
	h := d.lookup(id, token)
	if h == nil || h.state != DetailLoading || h.seq != tag {
		d.metrics.DetailLoads.WithLabelValues("stale").Inc()
		return
	}
	h.cancel = nil

	if err != nil {
		h.state = DetailError
		d.metrics.DetailLoads.WithLabelValues("error").Inc()
		if !errors.Is(err, context.Canceled) {
			d.logger.Debug("detail load failed", "id", id, "error", fmt.Errorf("%w: %w", domain.ErrDetailLoadFailed, err))
		}
		return
	}

	h.state = DetailLoaded
	h.popup.Comments = commentLines(reviews)
	h.marker.SetComments(h.popup.Comments)
	d.metrics.DetailLoads.WithLabelValues("loaded").Inc()
}
