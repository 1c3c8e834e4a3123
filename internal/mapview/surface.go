package mapview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/venue-map/internal/domain"
	"github.com/couchcryptid/venue-map/internal/observability"
)

// DefaultDetailLimit is the number of reviews loaded behind a popup.
const DefaultDetailLimit = 2

var (
	ErrAlreadyMounted = errors.New("map surface already mounted")
	ErrNotMounted     = errors.New("map surface not mounted")
	ErrUnmounted      = errors.New("map surface unmounted")
)

// Resolver produces the record set for a query.
type Resolver interface {
	Resolve(ctx context.Context, q domain.GeoQuery) domain.ResolvedSet
}

// Surface is the mount/unmount boundary of one interactive map. Every
// exported method is safe for concurrent use.
type Surface struct {
	renderer Renderer
	resolver Resolver
	mapOpts  MapOptions
	onSet    func(domain.ResolvedSet)
	metrics  *observability.Metrics
	logger   *slog.Logger

	loop        *eventLoop
	ctx         context.Context
	cancel      context.CancelFunc
	unmountOnce sync.Once

	// Loop-owned.
	alive   bool
	mounted bool
	ready   bool
	mapInst MapInstance
	pending *domain.GeoQuery
	gen     uint64
	source  domain.Source
	loader  *detailLoader
	markers *markerManager
}

// Option configures a Surface.
type Option func(*Surface)

// WithMapOptions overrides DefaultMapOptions.
func WithMapOptions(o MapOptions) Option {
	return func(s *Surface) { s.mapOpts = o }
}

// WithDetailLimit sets how many reviews a popup loads.
func WithDetailLimit(n int) Option {
	return func(s *Surface) {
		if n > 0 {
			s.loader.limit = n
		}
	}
}

// OnMaterialize registers fn to run on the surface loop after each marker
// set is materialized. fn must not call back into the Surface.
func OnMaterialize(fn func(domain.ResolvedSet)) Option {
	return func(s *Surface) { s.onSet = fn }
}

// NewSurface creates an unmounted surface. Unmount must be called to release
// it, even if Mount never succeeded.
func NewSurface(renderer Renderer, resolver Resolver, details DetailFetcher, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Surface {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Surface{
		renderer: renderer,
		resolver: resolver,
		mapOpts:  DefaultMapOptions(),
		metrics:  metrics,
		logger:   logger,
		loop:     newEventLoop(),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.loader = &detailLoader{
		ctx:     ctx,
		fetcher: details,
		limit:   DefaultDetailLimit,
		post:    s.loop.post,
		metrics: metrics,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount creates the map and resolves q once the map reports it is loaded.
func (s *Surface) Mount(q domain.GeoQuery) error {
	var err error
	ok := s.loop.call(func() {
		if s.mounted {
			err = ErrAlreadyMounted
			return
		}
		m, e := s.renderer.NewMap(s.mapOpts)
		if e != nil {
			err = fmt.Errorf("create map: %w", e)
			return
		}
		s.mounted, s.alive = true, true
		s.mapInst = m
		s.markers = newMarkerManager(m, s.loader, s.loop.post, s.metrics, s.logger)
		s.loader.lookup = s.markers.lookup
		s.pending = &q
		m.OnLoad(func() { s.loop.post(s.onLoad) })
	})
	if !ok {
		return ErrUnmounted
	}
	return err
}

// Refresh starts a new resolution for q. Results of earlier resolutions
// still in flight are discarded.
func (s *Surface) Refresh(q domain.GeoQuery) error {
	var err error
	ok := s.loop.call(func() {
		switch {
		case !s.alive:
			err = ErrNotMounted
		case !s.ready:
			s.pending = &q
		default:
			s.startResolve(q)
		}
	})
	if !ok {
		return ErrUnmounted
	}
	return err
}

// Unmount removes every marker, drops pending callbacks and removes the map.
// It is idempotent.
func (s *Surface) Unmount() {
	s.unmountOnce.Do(func() {
		s.loop.call(func() {
			s.alive = false
			s.cancel()
			if s.markers != nil {
				s.markers.teardown()
			}
			if s.mapInst != nil {
				s.mapInst.Remove()
				s.mapInst = nil
			}
		})
		s.loop.close()
		<-s.loop.done
	})
}

func (s *Surface) onLoad() {
	if !s.alive || s.ready {
		return
	}
	s.ready = true
	if s.pending != nil {
		q := *s.pending
		s.pending = nil
		s.startResolve(q)
	}
}

func (s *Surface) startResolve(q domain.GeoQuery) {
	s.gen++
	gen := s.gen
	go func() {
		set := s.resolver.Resolve(s.ctx, q)
		s.loop.post(func() { s.apply(gen, set) })
	}()
}

func (s *Surface) apply(gen uint64, set domain.ResolvedSet) {
	if !s.alive || gen != s.gen {
		s.logger.Debug("discarding superseded resolution", "generation", gen, "current", s.gen)
		return
	}
	s.markers.materialize(set)
	s.source = set.Source
	s.logger.Info("markers materialized",
		"source", set.Source,
		"markers", s.markers.len(),
		"fallback_reason", set.FallbackReason,
	)
	if s.onSet != nil {
		s.onSet(set)
	}
}

// MarkerSnapshot is a point-in-time view of one marker.
type MarkerSnapshot struct {
	ID     string
	Kind   domain.RecordKind
	Lat    float64
	Lng    float64
	Popup  PopupContent
	Detail DetailState
}

// Snapshot is a point-in-time view of the surface.
type Snapshot struct {
	Mounted    bool
	Ready      bool
	Generation uint64
	Source     domain.Source
	Markers    []MarkerSnapshot
}

// Snapshot reports the live markers. After Unmount it is the zero Snapshot.
func (s *Surface) Snapshot() Snapshot {
	var snap Snapshot
	s.loop.call(func() {
		if !s.alive {
			return
		}
		snap = Snapshot{Mounted: true, Ready: s.ready, Generation: s.gen, Source: s.source}
		s.markers.each(func(h *MarkerHandle) {
			popup := h.popup
			popup.Comments = append([]string(nil), h.popup.Comments...)
			snap.Markers = append(snap.Markers, MarkerSnapshot{
				ID:     h.ID(),
				Kind:   h.record.Kind,
				Lat:    h.record.Lat,
				Lng:    h.record.Lng,
				Popup:  popup,
				Detail: h.State(),
			})
		})
	})
	return snap
}
