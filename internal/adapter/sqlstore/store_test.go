package sqlstore

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/couchcryptid/venue-map/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock"), 25), mock
}

func TestStore_ListVenues_Mock(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "name", "lat", "lng", "address", "category", "price_range", "description", "photos", "created_by"}).
		AddRow("v1", "Pirata", -3.72, -38.50, "Iracema", "bar", "$$", nil, `["a.jpg"]`, "u1").
		AddRow("v2", "Lupus", -3.73, nil, "Meireles", nil, "$", nil, nil, nil)
	mock.ExpectQuery(`SELECT id, name, lat, lng, (.+) FROM venues ORDER BY name LIMIT \?`).
		WithArgs(25).
		WillReturnRows(rows)

	venues, err := s.ListVenues(context.Background())
	require.NoError(t, err)
	require.Len(t, venues, 2)

	assert.Equal(t, "v1", venues[0].ID)
	require.NotNil(t, venues[0].Lat)
	assert.Equal(t, -3.72, *venues[0].Lat)
	assert.Equal(t, []string{"a.jpg"}, venues[0].Photos)
	assert.Equal(t, "u1", venues[0].CreatedBy)

	assert.NotNil(t, venues[1].Lat)
	assert.Nil(t, venues[1].Lng)
	assert.Nil(t, venues[1].Photos)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListVenueStats_Mock(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT venue_id, avg_rating, reviews_count FROM venue_stats`).
		WillReturnRows(sqlmock.NewRows([]string{"venue_id", "avg_rating", "reviews_count"}).AddRow("v1", 4.5, 2))

	stats, err := s.ListVenueStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.VenueStats{{VenueID: "v1", AvgRating: 4.5, ReviewsCount: 2}}, stats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RecentReviews_Mock(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2025, time.May, 1, 20, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT rating, comment, created_at FROM reviews WHERE venue_id = \? ORDER BY created_at DESC LIMIT \?`).
		WithArgs("v1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"rating", "comment", "created_at"}).AddRow(4, "bom", at))

	reviews, err := s.RecentReviews(context.Background(), "v1", 2)
	require.NoError(t, err)
	assert.Equal(t, []domain.ReviewSummary{{Rating: 4, Comment: "bom", CreatedAt: at}}, reviews)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_QueryError_Mock(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM venue_stats`).WillReturnError(errors.New("relation does not exist"))

	_, err := s.ListVenueStats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list venue stats")
}

func TestStore_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "sqlite", "file:roundtrip?mode=memory", 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.EnsureSchema(ctx), "schema is idempotent")
	require.NoError(t, s.CheckReadiness(ctx))

	lat, lng := -3.7319, -38.5267
	require.NoError(t, s.UpsertVenue(ctx, domain.Venue{ID: "v1", Name: "Pirata", Lat: &lat, Lng: &lng, PriceRange: "$$", Photos: []string{"p.jpg"}}))
	require.NoError(t, s.UpsertVenue(ctx, domain.Venue{ID: "v2", Name: "Sem lng", Lat: &lat}))

	base := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	for i, c := range []string{"antigo", "meio", "recente"} {
		require.NoError(t, s.InsertReview(ctx, Review{
			ID:        c,
			VenueID:   "v1",
			Rating:    3 + i%3,
			Comment:   c,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	venues, err := s.ListVenues(ctx)
	require.NoError(t, err)
	require.Len(t, venues, 2)
	assert.Equal(t, "Pirata", venues[0].Name)
	assert.Equal(t, []string{"p.jpg"}, venues[0].Photos)
	assert.Nil(t, venues[1].Lng)

	stats, err := s.ListVenueStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "v1", stats[0].VenueID)
	assert.Equal(t, 3, stats[0].ReviewsCount)
	assert.InDelta(t, 4.0, stats[0].AvgRating, 1e-9)

	reviews, err := s.RecentReviews(ctx, "v1", 2)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "recente", reviews[0].Comment)
	assert.Equal(t, "meio", reviews[1].Comment)

	none, err := s.RecentReviews(ctx, "v2", 2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_SQLiteNonNumericCoordinate(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "sqlite", "file:badcoords?mode=memory", 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.EnsureSchema(ctx))

	_, err = s.db.ExecContext(ctx, `INSERT INTO venues (id, name, lat, lng) VALUES
		('a', 'Valida', 1.0, 2.0),
		('b', 'Texto', 1.0, 'abc'),
		('c', 'Nula', NULL, 2.0)`)
	require.NoError(t, err)

	venues, err := s.ListVenues(ctx)
	require.NoError(t, err, "one bad row must not fail the listing")
	require.Len(t, venues, 3)

	byID := map[string]domain.Venue{}
	for _, v := range venues {
		byID[v.ID] = v
	}
	require.NotNil(t, byID["a"].Lng)
	assert.InDelta(t, 2.0, *byID["a"].Lng, 0)
	assert.NotNil(t, byID["b"].Lat)
	assert.Nil(t, byID["b"].Lng)
	assert.Nil(t, byID["c"].Lat)

	set, skipped := domain.JoinVenueStats(venues, nil)
	require.Len(t, set.Records, 1)
	assert.Equal(t, "a", set.Records[0].ID)
	assert.Equal(t, 2, skipped)
}

func TestFinite(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *float64
	}{
		{"float", -3.72, ptr(-3.72)},
		{"integer", int64(12), ptr(12.0)},
		{"numeric bytes", []byte("-38.5"), ptr(-38.5)},
		{"numeric text", " 1.25 ", ptr(1.25)},
		{"text", "abc", nil},
		{"empty bytes", []byte(""), nil},
		{"nan text", "NaN", nil},
		{"infinite", math.Inf(1), nil},
		{"null", nil, nil},
		{"bool", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, finite(tt.in))
		})
	}
}

func ptr[T any](v T) *T { return &v }
