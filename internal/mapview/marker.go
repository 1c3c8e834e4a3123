package mapview

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/venue-map/internal/domain"
	"github.com/couchcryptid/venue-map/internal/observability"
	"github.com/google/uuid"
)

// DetailState is the lazy detail state of a marker popup.
type DetailState int

const (
	DetailUnopened DetailState = iota
	DetailLoading
	DetailLoaded
	DetailError
)

func (s DetailState) String() string {
	switch s {
	case DetailUnopened:
		return "unopened"
	case DetailLoading:
		return "loading"
	case DetailLoaded:
		return "loaded"
	case DetailError:
		return "error"
	default:
		return "unknown"
	}
}

// MarkerHandle binds one resolved record to its live marker, popup and
// in-flight detail request. Handles belong to a markerManager and are only
// touched on the surface loop.
type MarkerHandle struct {
	token  uuid.UUID
	record domain.Record
	marker Marker
	popup  PopupContent
	alive  bool

	state  DetailState
	seq    uint64 // tag of the latest detail request
	cancel context.CancelFunc
}

// ID returns the record identity the handle is keyed by.
func (h *MarkerHandle) ID() string { return h.record.ID }

// State returns the detail state.
func (h *MarkerHandle) State() DetailState { return h.state }

// markerManager is the only code that adds or removes markers.
type markerManager struct {
	mapInst MapInstance
	loader  *detailLoader
	post    func(func()) bool
	handles map[string]*MarkerHandle
	order   []string
	metrics *observability.Metrics
	logger  *slog.Logger
}

func newMarkerManager(m MapInstance, loader *detailLoader, post func(func()) bool, metrics *observability.Metrics, logger *slog.Logger) *markerManager {
	return &markerManager{
		mapInst: m,
		loader:  loader,
		post:    post,
		handles: make(map[string]*MarkerHandle),
		metrics: metrics,
		logger:  logger,
	}
}

// materialize replaces every held marker with one marker per record.
// Malformed and repeated records are skipped.
func (m *markerManager) materialize(set domain.ResolvedSet) {
	m.teardown()

	for _, r := range set.Records {
		if !r.Valid() {
			m.metrics.MalformedRecords.Inc()
			continue
		}
		if _, dup := m.handles[r.ID]; dup {
			continue
		}

		h := &MarkerHandle{token: uuid.New(), record: r, popup: popupFor(r)}
		marker, err := m.mapInst.AddMarker(MarkerSpec{
			ID:      r.ID,
			Lat:     r.Lat,
			Lng:     r.Lng,
			Popup:   h.popup,
			OnOpen:  m.relay(r.ID, h.token, m.open),
			OnClose: m.relay(r.ID, h.token, m.close),
		})
		if err != nil {
			m.logger.Warn("add marker failed", "id", r.ID, "error", err)
			continue
		}
		h.marker = marker
		h.alive = true
		m.handles[r.ID] = h
		m.order = append(m.order, r.ID)
	}
	m.metrics.LiveMarkers.Add(float64(len(m.handles)))
}

// teardown removes every marker and cancels their detail loads. It is a
// no-op when nothing is held.
func (m *markerManager) teardown() {
	if len(m.handles) == 0 {
		return
	}
	for _, id := range m.order {
		h := m.handles[id]
		m.loader.cancel(h)
		h.alive = false
		h.marker.Remove()
	}
	m.metrics.LiveMarkers.Sub(float64(len(m.handles)))
	m.handles = make(map[string]*MarkerHandle)
	m.order = nil
}

// lookup returns the live handle for id, but only if it is the same
// instance that token was issued to.
func (m *markerManager) lookup(id string, token uuid.UUID) *MarkerHandle {
	h, ok := m.handles[id]
	if !ok || !h.alive || h.token != token {
		return nil
	}
	return h
}

// relay turns renderer callbacks into loop events for one handle instance.
func (m *markerManager) relay(id string, token uuid.UUID, fn func(*MarkerHandle)) func() {
	return func() {
		m.post(func() {
			if h := m.lookup(id, token); h != nil {
				fn(h)
			}
		})
	}
}

func (m *markerManager) open(h *MarkerHandle)  { m.loader.open(h) }
func (m *markerManager) close(h *MarkerHandle) { m.loader.cancel(h) }

func (m *markerManager) len() int { return len(m.handles) }

// each visits live handles in materialization order.
func (m *markerManager) each(fn func(*MarkerHandle)) {
	for _, id := range m.order {
		fn(m.handles[id])
	}
}
