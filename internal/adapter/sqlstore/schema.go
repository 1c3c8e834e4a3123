package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/venue-map/internal/domain"
)

// sqliteSchema mirrors the hosted tables closely enough for local use.
// venue_stats is a view so stats can never drift from reviews.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS venues (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		lat         REAL,
		lng         REAL,
		address     TEXT,
		category    TEXT,
		price_range TEXT,
		description TEXT,
		photos      TEXT,
		created_by  TEXT,
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id         TEXT PRIMARY KEY,
		venue_id   TEXT NOT NULL REFERENCES venues(id),
		user_id    TEXT,
		rating     INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment    TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS reviews_venue_created ON reviews (venue_id, created_at DESC)`,
	`CREATE VIEW IF NOT EXISTS venue_stats AS
		SELECT venue_id, AVG(rating) AS avg_rating, COUNT(*) AS reviews_count
		FROM reviews GROUP BY venue_id`,
}

// EnsureSchema creates the SQLite tables when missing. Postgres deployments
// own their schema, so this is a no-op there.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.db.DriverName() != "sqlite" {
		return nil
	}
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Review is a review row to insert when seeding.
type Review struct {
	ID        string
	VenueID   string
	UserID    string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// UpsertVenue inserts or replaces a venue.
func (s *Store) UpsertVenue(ctx context.Context, v domain.Venue) error {
	photos, err := json.Marshal(v.Photos)
	if err != nil {
		return fmt.Errorf("encode photos: %w", err)
	}
	q := s.db.Rebind(`INSERT INTO venues (id, name, lat, lng, address, category, price_range, description, photos, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, lat = excluded.lat, lng = excluded.lng,
			address = excluded.address, category = excluded.category, price_range = excluded.price_range,
			description = excluded.description, photos = excluded.photos, created_by = excluded.created_by`)
	_, err = s.db.ExecContext(ctx, q, v.ID, v.Name, v.Lat, v.Lng, v.Address, v.Category, v.PriceRange, v.Description, string(photos), v.CreatedBy)
	if err != nil {
		return fmt.Errorf("upsert venue %s: %w", v.ID, err)
	}
	return nil
}

// InsertReview adds a review; existing ids are left untouched.
func (s *Store) InsertReview(ctx context.Context, r Review) error {
	q := s.db.Rebind(`INSERT INTO reviews (id, venue_id, user_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`)
	if _, err := s.db.ExecContext(ctx, q, r.ID, r.VenueID, r.UserID, r.Rating, r.Comment, r.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("insert review %s: %w", r.ID, err)
	}
	return nil
}
