// Package discovery resolves the record set shown on the map: places from
// the external provider, with a fallback to the local venue store.
package discovery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/venue-map/internal/domain"
	"github.com/couchcryptid/venue-map/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Fallback reasons reported on ResolvedSet.FallbackReason.
const (
	ReasonProviderError = "provider_error"
	ReasonProviderEmpty = "provider_empty"
)

// PlaceSource searches the external places provider.
type PlaceSource interface {
	SearchPlaces(ctx context.Context, q domain.GeoQuery) ([]domain.Place, error)
}

// VenueStore reads the local venue store.
type VenueStore interface {
	ListVenues(ctx context.Context) ([]domain.Venue, error)
	ListVenueStats(ctx context.Context) ([]domain.VenueStats, error)
}

// ResolutionRecorder receives a summary of every finished resolution.
type ResolutionRecorder interface {
	RecordResolution(ctx context.Context, event domain.ResolutionEvent) error
}

// Orchestrator implements the provider-then-store fallback. It keeps no
// state between resolutions.
type Orchestrator struct {
	places   PlaceSource
	venues   VenueStore
	recorder ResolutionRecorder
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder publishes a ResolutionEvent after each resolution.
func WithRecorder(r ResolutionRecorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// New creates an Orchestrator.
func New(places PlaceSource, venues VenueStore, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{places: places, venues: venues, metrics: metrics, logger: logger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Resolve returns the record set for q. It never fails: when every source
// fails the result is an empty set with Source none.
func (o *Orchestrator) Resolve(ctx context.Context, q domain.GeoQuery) domain.ResolvedSet {
	start := time.Now()
	set, skipped := o.resolve(ctx, q)
	took := time.Since(start)

	o.metrics.Resolutions.WithLabelValues(string(set.Source)).Inc()
	o.metrics.ResolutionDuration.Observe(took.Seconds())
	if skipped > 0 {
		o.metrics.MalformedRecords.Add(float64(skipped))
		o.logger.Debug("skipped malformed records", "count", skipped, "source", set.Source)
	}
	o.record(ctx, q, set, skipped, took)
	return set
}

func (o *Orchestrator) resolve(ctx context.Context, q domain.GeoQuery) (domain.ResolvedSet, int) {
	places, err := o.places.SearchPlaces(ctx, q)
	if err == nil {
		set, skipped := domain.PlacesToSet(places)
		if len(set.Records) > 0 {
			return set, skipped
		}
		return o.fallback(ctx, ReasonProviderEmpty, skipped)
	}

	level := slog.LevelWarn
	if errors.Is(err, context.Canceled) {
		level = slog.LevelDebug
	}
	o.logger.Log(ctx, level, "places provider failed, falling back to venue store", "error", err)
	return o.fallback(ctx, ReasonProviderError, 0)
}

// fallback reads venues and stats concurrently and joins them. A stats
// failure alone still yields the venues, without ratings.
func (o *Orchestrator) fallback(ctx context.Context, reason string, providerSkipped int) (domain.ResolvedSet, int) {
	o.metrics.Fallbacks.WithLabelValues(reason).Inc()

	var (
		g                  errgroup.Group
		venues             []domain.Venue
		stats              []domain.VenueStats
		venueErr, statsErr error
	)
	g.Go(func() error {
		venues, venueErr = o.venues.ListVenues(ctx)
		return venueErr
	})
	g.Go(func() error {
		stats, statsErr = o.venues.ListVenueStats(ctx)
		return statsErr
	})
	_ = g.Wait()

	if venueErr != nil {
		o.logger.Warn("venue store failed, resolving to empty set", "error", venueErr, "reason", reason)
		return domain.EmptySet(reason), providerSkipped
	}
	if statsErr != nil {
		o.logger.Warn("venue stats unavailable, showing venues without ratings", "error", statsErr)
		stats = nil
	}

	set, skipped := domain.JoinVenueStats(venues, stats)
	set.FallbackReason = reason
	return set, providerSkipped + skipped
}

func (o *Orchestrator) record(ctx context.Context, q domain.GeoQuery, set domain.ResolvedSet, skipped int, took time.Duration) {
	if o.recorder == nil {
		return
	}
	event := domain.NewResolutionEvent(q, set, skipped, took)
	if err := o.recorder.RecordResolution(ctx, event); err != nil {
		o.logger.Warn("record resolution failed", "event_id", event.ID, "error", err)
	}
}
