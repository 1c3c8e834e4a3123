// Package sqlstore reads the local venue store from SQLite or Postgres.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/venue-map/internal/domain"
	"github.com/jmoiron/sqlx"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store is a venue store over database/sql.
type Store struct {
	db         *sqlx.DB
	venueLimit int
}

// Open connects to driver ("sqlite" or "postgres") at dsn.
func Open(ctx context.Context, driver, dsn string, venueLimit int) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// One writer at a time; also keeps in-memory databases on a single connection.
		db.SetMaxOpenConns(1)
	}
	return New(db, venueLimit), nil
}

// New wraps an existing connection.
func New(db *sqlx.DB, venueLimit int) *Store {
	return &Store{db: db, venueLimit: venueLimit}
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type venueRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Lat         any            `db:"lat"` // SQLite keeps non-numeric text in REAL columns
	Lng         any            `db:"lng"`
	Address     sql.NullString `db:"address"`
	Category    sql.NullString `db:"category"`
	PriceRange  sql.NullString `db:"price_range"`
	Description sql.NullString `db:"description"`
	Photos      sql.NullString `db:"photos"`
	CreatedBy   sql.NullString `db:"created_by"`
}

type statsRow struct {
	VenueID      string  `db:"venue_id"`
	AvgRating    float64 `db:"avg_rating"`
	ReviewsCount int     `db:"reviews_count"`
}

type reviewRow struct {
	Rating    int            `db:"rating"`
	Comment   sql.NullString `db:"comment"`
	CreatedAt time.Time      `db:"created_at"`
}

// ListVenues returns up to the configured limit of venues, ordered by name.
func (s *Store) ListVenues(ctx context.Context) ([]domain.Venue, error) {
	q := fmt.Sprintf(`SELECT id, name, lat, lng, address, category, price_range, description, %s AS photos, created_by
		FROM venues ORDER BY name LIMIT ?`, s.photosExpr())

	var rows []venueRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), s.venueLimit); err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}

	venues := make([]domain.Venue, 0, len(rows))
	for _, r := range rows {
		venues = append(venues, domain.Venue{
			ID:          r.ID,
			Name:        r.Name,
			Lat:         finite(r.Lat),
			Lng:         finite(r.Lng),
			Address:     r.Address.String,
			Category:    r.Category.String,
			PriceRange:  r.PriceRange.String,
			Description: r.Description.String,
			Photos:      decodePhotos(r.Photos),
			CreatedBy:   r.CreatedBy.String,
		})
	}
	return venues, nil
}

// ListVenueStats returns the aggregate rating rows.
func (s *Store) ListVenueStats(ctx context.Context) ([]domain.VenueStats, error) {
	var rows []statsRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT venue_id, avg_rating, reviews_count FROM venue_stats`); err != nil {
		return nil, fmt.Errorf("list venue stats: %w", err)
	}
	stats := make([]domain.VenueStats, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, domain.VenueStats(r))
	}
	return stats, nil
}

// RecentReviews returns the newest reviews of a venue, newest first.
func (s *Store) RecentReviews(ctx context.Context, venueID string, limit int) ([]domain.ReviewSummary, error) {
	q := s.db.Rebind(`SELECT rating, comment, created_at FROM reviews WHERE venue_id = ? ORDER BY created_at DESC LIMIT ?`)
	var rows []reviewRow
	if err := s.db.SelectContext(ctx, &rows, q, venueID, limit); err != nil {
		return nil, fmt.Errorf("recent reviews: %w", err)
	}
	reviews := make([]domain.ReviewSummary, 0, len(rows))
	for _, r := range rows {
		reviews = append(reviews, domain.ReviewSummary{Rating: r.Rating, Comment: r.Comment.String, CreatedAt: r.CreatedAt})
	}
	return reviews, nil
}

// photosExpr renders the photos column as JSON text on both dialects.
func (s *Store) photosExpr() string {
	if s.db.DriverName() == "postgres" {
		return "COALESCE(array_to_json(photos)::text, '[]')"
	}
	return "COALESCE(photos, '[]')"
}

// finite returns the coordinate held by a driver value, or nil when it is
// missing, non-numeric or not finite.
func finite(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int64:
		f = float64(x)
	case []byte:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func decodePhotos(v sql.NullString) []string {
	if !v.Valid || v.String == "" {
		return nil
	}
	var photos []string
	if err := json.Unmarshal([]byte(v.String), &photos); err != nil {
		return nil
	}
	return photos
}
