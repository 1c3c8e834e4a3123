package discovery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/couchcryptid/venue-map/internal/domain"
	"github.com/couchcryptid/venue-map/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlaces struct {
	places []domain.Place
	err    error
	calls  int
}

func (f *fakePlaces) SearchPlaces(_ context.Context, _ domain.GeoQuery) ([]domain.Place, error) {
	f.calls++
	return f.places, f.err
}

type fakeStore struct {
	venues     []domain.Venue
	stats      []domain.VenueStats
	venueErr   error
	statsErr   error
	venueCalls int
}

func (f *fakeStore) ListVenues(_ context.Context) ([]domain.Venue, error) {
	f.venueCalls++
	return f.venues, f.venueErr
}

func (f *fakeStore) ListVenueStats(_ context.Context) ([]domain.VenueStats, error) {
	return f.stats, f.statsErr
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []domain.ResolutionEvent
	err    error
}

func (f *fakeRecorder) RecordResolution(_ context.Context, e domain.ResolutionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

func ptr[T any](v T) *T { return &v }

var fortaleza = domain.GeoQuery{Lat: -3.7319, Lng: -38.5267, RadiusMeters: 10000, Categories: "restaurant|bar|night_club"}

func newTestOrchestrator(places PlaceSource, store VenueStore, opts ...Option) (*Orchestrator, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return New(places, store, m, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...), m
}

func threeVenues() *fakeStore {
	return &fakeStore{
		venues: []domain.Venue{
			{ID: "v1", Name: "Pirata Bar", Lat: ptr(-3.7221), Lng: ptr(-38.5129)},
			{ID: "v2", Name: "Lupus Bier", Lat: ptr(-3.7305), Lng: ptr(-38.4950)},
			{ID: "v3", Name: "Sem Longitude", Lat: ptr(-3.74)},
		},
		stats: []domain.VenueStats{{VenueID: "v1", AvgRating: 4.25, ReviewsCount: 4}},
	}
}

func TestResolve_ProviderPlacesWin(t *testing.T) {
	places := &fakePlaces{places: []domain.Place{
		{ExternalID: "g1", Name: "Coco Bambu", Lat: -3.73, Lng: -38.49, Rating: 4.6},
		{ExternalID: "g2", Name: "Mercado dos Pinhoes", Lat: -3.72, Lng: -38.52, Rating: 4.4},
	}}
	store := threeVenues()
	o, m := newTestOrchestrator(places, store)

	set := o.Resolve(context.Background(), fortaleza)

	assert.Equal(t, domain.SourcePlaces, set.Source)
	assert.Empty(t, set.FallbackReason)
	require.Len(t, set.Records, 2)
	for _, r := range set.Records {
		assert.True(t, domain.ValidCoordinate(r.Lat, r.Lng))
		assert.Nil(t, r.ReviewsCount, "provider records are not enriched")
	}
	assert.Equal(t, 0, store.venueCalls)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Resolutions.WithLabelValues("places")), 0)
}

func TestResolve_ProviderErrorFallsBackToVenues(t *testing.T) {
	places := &fakePlaces{err: &domain.ProviderError{StatusCode: 502, Status: "UNKNOWN_ERROR"}}
	o, m := newTestOrchestrator(places, threeVenues())

	set := o.Resolve(context.Background(), fortaleza)

	assert.Equal(t, domain.SourceVenues, set.Source)
	assert.Equal(t, ReasonProviderError, set.FallbackReason)
	require.Len(t, set.Records, 2)
	assert.Equal(t, "v1", set.Records[0].ID)
	require.NotNil(t, set.Records[0].Rating)
	assert.InDelta(t, 4.25, *set.Records[0].Rating, 1e-9)
	assert.Equal(t, "v2", set.Records[1].ID)
	assert.Nil(t, set.Records[1].Rating)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Fallbacks.WithLabelValues(ReasonProviderError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.MalformedRecords), 0)
}

func TestResolve_EmptyProviderFallsBack(t *testing.T) {
	o, m := newTestOrchestrator(&fakePlaces{}, threeVenues())

	set := o.Resolve(context.Background(), fortaleza)

	assert.Equal(t, domain.SourceVenues, set.Source)
	assert.Equal(t, ReasonProviderEmpty, set.FallbackReason)
	assert.Len(t, set.Records, 2)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Fallbacks.WithLabelValues(ReasonProviderEmpty)), 0)
}

func TestResolve_AllMalformedPlacesCountAsEmpty(t *testing.T) {
	places := &fakePlaces{places: []domain.Place{{ExternalID: "g1", Lat: math.NaN(), Lng: 10}}}
	o, m := newTestOrchestrator(places, threeVenues())

	set := o.Resolve(context.Background(), fortaleza)

	assert.Equal(t, domain.SourceVenues, set.Source)
	assert.Equal(t, ReasonProviderEmpty, set.FallbackReason)
	assert.InDelta(t, 2, testutil.ToFloat64(m.MalformedRecords), 0)
}

func TestResolve_StatsFailureKeepsVenues(t *testing.T) {
	store := threeVenues()
	store.statsErr = errors.New("venue_stats: permission denied")
	o, _ := newTestOrchestrator(&fakePlaces{err: domain.ErrProviderUnavailable}, store)

	set := o.Resolve(context.Background(), fortaleza)

	assert.Equal(t, domain.SourceVenues, set.Source)
	require.Len(t, set.Records, 2)
	for _, r := range set.Records {
		assert.Nil(t, r.Rating)
	}
}

func TestResolve_BothBranchesFail(t *testing.T) {
	store := &fakeStore{venueErr: errors.New("connection refused")}
	o, m := newTestOrchestrator(&fakePlaces{err: domain.ErrProviderUnavailable}, store)

	set := o.Resolve(context.Background(), fortaleza)

	assert.Equal(t, domain.SourceNone, set.Source)
	assert.Empty(t, set.Records)
	assert.Equal(t, ReasonProviderError, set.FallbackReason)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Resolutions.WithLabelValues("none")), 0)
}

func TestResolve_NoCachingBetweenCalls(t *testing.T) {
	places := &fakePlaces{places: []domain.Place{{ExternalID: "g1", Lat: 1, Lng: 1}}}
	o, _ := newTestOrchestrator(places, threeVenues())

	o.Resolve(context.Background(), fortaleza)
	o.Resolve(context.Background(), fortaleza)

	assert.Equal(t, 2, places.calls)
}

func TestResolve_RecordsEvent(t *testing.T) {
	rec := &fakeRecorder{}
	o, _ := newTestOrchestrator(&fakePlaces{err: errors.New("boom")}, threeVenues(), WithRecorder(rec))

	o.Resolve(context.Background(), fortaleza)

	require.Len(t, rec.events, 1)
	e := rec.events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, domain.SourceVenues, e.Source)
	assert.Equal(t, 2, e.RecordCount)
	assert.Equal(t, 1, e.SkippedCount)
	assert.Equal(t, fortaleza, e.Query)
}

func TestResolve_RecorderFailureIsIgnored(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("kafka down")}
	places := &fakePlaces{places: []domain.Place{{ExternalID: "g1", Lat: 1, Lng: 1}}}
	o, _ := newTestOrchestrator(places, threeVenues(), WithRecorder(rec))

	set := o.Resolve(context.Background(), fortaleza)

	assert.Len(t, set.Records, 1)
	assert.Len(t, rec.events, 1)
}
