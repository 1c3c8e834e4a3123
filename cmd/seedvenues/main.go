// Command seedvenues loads a JSON fixture of venues and reviews into the SQL
// venue store configured by VENUE_STORE and DATABASE_URL.
//
// Usage:
//
//	go run ./cmd/seedvenues -fixture data/venues.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/couchcryptid/venue-map/internal/adapter/sqlstore"
	"github.com/couchcryptid/venue-map/internal/config"
	"github.com/couchcryptid/venue-map/internal/domain"
	"github.com/google/uuid"
)

type fixture struct {
	Venues []struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Lat         *float64 `json:"lat"`
		Lng         *float64 `json:"lng"`
		Address     string   `json:"address"`
		Category    string   `json:"category"`
		PriceRange  string   `json:"price_range"`
		Description string   `json:"description"`
		Photos      []string `json:"photos"`
		CreatedBy   string   `json:"created_by"`
	} `json:"venues"`
	Reviews []struct {
		ID        string    `json:"id"`
		VenueID   string    `json:"venue_id"`
		UserID    string    `json:"user_id"`
		Rating    int       `json:"rating"`
		Comment   string    `json:"comment"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"reviews"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	path := flag.String("fixture", "data/venues.json", "path to the venues fixture")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.VenueStore == config.StoreSupabase {
		return errors.New("seedvenues writes to a SQL store; set VENUE_STORE to sqlite or postgres")
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}
	var fx fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("decode fixture: %w", err)
	}

	ctx := context.Background()
	store, err := sqlstore.Open(ctx, cfg.VenueStore, cfg.DatabaseURL, cfg.VenueLimit)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	for _, v := range fx.Venues {
		if err := store.UpsertVenue(ctx, domain.Venue(v)); err != nil {
			return err
		}
	}
	for _, r := range fx.Reviews {
		if r.ID == "" {
			// Derived ids keep re-seeding idempotent.
			r.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(r.VenueID+"|"+r.CreatedAt.Format(time.RFC3339Nano))).String()
		}
		if err := store.InsertReview(ctx, sqlstore.Review(r)); err != nil {
			return err
		}
	}

	log.Printf("seeded %d venues and %d reviews into %s", len(fx.Venues), len(fx.Reviews), cfg.VenueStore)
	return nil
}
