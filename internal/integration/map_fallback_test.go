package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/venue-map/internal/adapter/google"
	"github.com/couchcryptid/venue-map/internal/adapter/sqlstore"
	"github.com/couchcryptid/venue-map/internal/discovery"
	"github.com/couchcryptid/venue-map/internal/domain"
	"github.com/couchcryptid/venue-map/internal/mapview"
	"github.com/couchcryptid/venue-map/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func seededStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	ctx := context.Background()
	s, err := sqlstore.Open(ctx, "sqlite", "file:mapfallback?mode=memory", 200)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.EnsureSchema(ctx))

	f := func(v float64) *float64 { return &v }
	for _, v := range []domain.Venue{
		{ID: "v1", Name: "Bar do Mineiro", Lat: f(-22.9219), Lng: f(-43.1847), PriceRange: "$$"},
		{ID: "v2", Name: "Confeitaria Colombo", Lat: f(-22.9053), Lng: f(-43.1781)},
		{ID: "v3", Name: "Quiosque sem mapa", Lat: f(-22.9711)},
	} {
		require.NoError(t, s.UpsertVenue(ctx, v))
	}
	base := time.Date(2025, time.August, 1, 20, 0, 0, 0, time.UTC)
	for i, c := range []string{"first", "second", "third"} {
		require.NoError(t, s.InsertReview(ctx, sqlstore.Review{
			ID: c, VenueID: "v1", Rating: 4, Comment: c, CreatedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}))
	}
	return s
}

// TestMapFallsBackToLocalVenues drives the whole map path: the provider
// rejects the key, the orchestrator falls back to SQLite, and opening a
// popup loads the two newest comments.
func TestMapFallsBackToLocalVenues(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`))
	}))
	defer upstream.Close()

	metrics := observability.NewMetricsForTesting()
	places := google.NewClient("bad-key", google.Options{BaseURL: upstream.URL, Timeout: time.Second, RateLimit: float64(rate.Inf), Burst: 1}, metrics, quietLogger())
	store := seededStore(t)
	orch := discovery.New(places, store, metrics, quietLogger())

	renderer := mapview.NewMemoryRenderer()
	surface := mapview.NewSurface(renderer, orch, store, metrics, quietLogger())
	defer surface.Unmount()

	require.NoError(t, surface.Mount(domain.GeoQuery{Lat: -22.9083, Lng: -43.1964, RadiusMeters: 10000, Categories: "bar"}))

	var snap mapview.Snapshot
	require.Eventually(t, func() bool {
		snap = surface.Snapshot()
		return snap.Source == domain.SourceVenues && len(snap.Markers) == 2
	}, 5*time.Second, 10*time.Millisecond)

	byID := map[string]mapview.MarkerSnapshot{}
	for _, mk := range snap.Markers {
		byID[mk.ID] = mk
	}
	assert.Equal(t, "4.0/5 (3 reviews) · $$", byID["v1"].Popup.RatingLine)
	assert.Equal(t, "-", byID["v2"].Popup.RatingLine)

	renderer.Last().Marker("v1").Open()
	require.Eventually(t, func() bool {
		for _, mk := range surface.Snapshot().Markers {
			if mk.ID == "v1" {
				return mk.Detail == mapview.DetailLoaded
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"4/5 — third", "4/5 — second"}, renderer.Last().Marker("v1").Popup().Comments)
}
