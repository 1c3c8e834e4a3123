// Command mapview mounts a headless map surface, resolves one query and
// prints the resulting markers to stdout. Logs go to stderr.
//
// Usage:
//
//	go run ./cmd/mapview -lat -3.7319 -lng -38.5267 -radius 10000 -details
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/couchcryptid/venue-map/internal/adapter/google"
	kafkaadapter "github.com/couchcryptid/venue-map/internal/adapter/kafka"
	"github.com/couchcryptid/venue-map/internal/adapter/placesproxy"
	"github.com/couchcryptid/venue-map/internal/adapter/sqlstore"
	"github.com/couchcryptid/venue-map/internal/adapter/supabase"
	"github.com/couchcryptid/venue-map/internal/config"
	"github.com/couchcryptid/venue-map/internal/discovery"
	"github.com/couchcryptid/venue-map/internal/domain"
	"github.com/couchcryptid/venue-map/internal/mapview"
	"github.com/couchcryptid/venue-map/internal/observability"
)

// venueStore is what the map needs from the local store.
type venueStore interface {
	discovery.VenueStore
	mapview.DetailFetcher
}

func main() {
	if err := run(); err != nil {
		slog.Error("mapview failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lat := flag.Float64("lat", cfg.MapCenterLat, "query center latitude")
	lng := flag.Float64("lng", cfg.MapCenterLng, "query center longitude")
	radius := flag.Int("radius", cfg.DefaultRadius, "search radius in meters")
	categories := flag.String("type", cfg.DefaultCategories, "pipe-delimited category filter")
	details := flag.Bool("details", false, "open every popup and print its recent comments")
	timeout := flag.Duration("timeout", 30*time.Second, "give up after this long")
	flag.Parse()

	logger := observability.NewStderrLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var opts []discovery.Option
	if cfg.EventsEnabled {
		recorder := kafkaadapter.NewRecorder(cfg, logger)
		defer func() {
			if err := recorder.Close(); err != nil {
				logger.Error("kafka recorder close error", "error", err)
			}
		}()
		opts = append(opts, discovery.WithRecorder(recorder))
		logger.Info("resolution events enabled", "topic", cfg.ResolutionTopic)
	}
	orch := discovery.New(placeSource(cfg, metrics, logger), store, metrics, logger, opts...)

	resolved := make(chan domain.ResolvedSet, 1)
	renderer := mapview.NewMemoryRenderer()
	surface := mapview.NewSurface(renderer, orch, store, metrics, logger,
		mapview.WithMapOptions(mapOptions(cfg)),
		mapview.WithDetailLimit(cfg.DetailReviewLimit),
		mapview.OnMaterialize(func(set domain.ResolvedSet) {
			select {
			case resolved <- set:
			default:
			}
		}),
	)
	defer surface.Unmount()

	q := domain.GeoQuery{Lat: *lat, Lng: *lng, RadiusMeters: *radius, Categories: *categories}
	if err := q.Validate(); err != nil {
		return err
	}
	if err := surface.Mount(q); err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	var set domain.ResolvedSet
	select {
	case set = <-resolved:
	case <-ctx.Done():
		return fmt.Errorf("waiting for markers: %w", ctx.Err())
	}

	if *details {
		if m := renderer.Last(); m != nil {
			for _, mk := range m.Markers() {
				mk.Open()
			}
		}
		if err := waitForDetails(ctx, surface); err != nil {
			logger.Warn("some popups did not finish loading", "error", err)
		}
	}

	printSnapshot(os.Stdout, set, surface.Snapshot(), *details)
	return nil
}

func placeSource(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) discovery.PlaceSource {
	if cfg.PlacesProxyURL != "" {
		return placesproxy.NewClient(cfg.PlacesProxyURL, cfg.PlacesProxyKey, cfg.ProviderTimeout)
	}
	return google.NewClient(cfg.GoogleAPIKey, google.Options{
		BaseURL:   cfg.GooglePlacesURL,
		Timeout:   cfg.ProviderTimeout,
		RateLimit: cfg.ProviderRateLimit,
		Burst:     cfg.ProviderBurst,
	}, metrics, logger)
}

func openStore(ctx context.Context, cfg *config.Config) (venueStore, func(), error) {
	switch cfg.VenueStore {
	case config.StoreSupabase:
		s, err := supabase.NewStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.VenueLimit, cfg.ProviderTimeout)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		s, err := sqlstore.Open(ctx, cfg.VenueStore, cfg.DatabaseURL, cfg.VenueLimit)
		if err != nil {
			return nil, nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
}

func mapOptions(cfg *config.Config) mapview.MapOptions {
	o := mapview.DefaultMapOptions()
	o.CenterLat, o.CenterLng = cfg.MapCenterLat, cfg.MapCenterLng
	o.Zoom = cfg.MapZoom
	o.Style = cfg.MapStyle
	return o
}

func waitForDetails(ctx context.Context, s *mapview.Surface) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		pending := 0
		for _, mk := range s.Snapshot().Markers {
			if mk.Detail == mapview.DetailLoading || mk.Detail == mapview.DetailUnopened {
				pending++
			}
		}
		if pending == 0 {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return errors.Join(fmt.Errorf("%d popups pending", pending), ctx.Err())
		}
	}
}

func printSnapshot(w io.Writer, set domain.ResolvedSet, snap mapview.Snapshot, details bool) {
	fmt.Fprintf(w, "source=%s markers=%d", set.Source, len(snap.Markers))
	if set.FallbackReason != "" {
		fmt.Fprintf(w, " fallback=%s", set.FallbackReason)
	}
	fmt.Fprintln(w)

	for _, mk := range snap.Markers {
		p := mk.Popup
		fmt.Fprintf(w, "\n%s (%.5f, %.5f)\n  %s\n", p.Title, mk.Lat, mk.Lng, p.RatingLine)
		if p.Address != "" {
			fmt.Fprintf(w, "  %s\n", p.Address)
		}
		fmt.Fprintf(w, "  %s\n", p.DetailsURL)
		if details && len(p.Comments) > 0 {
			fmt.Fprintf(w, "  %s\n", strings.Join(p.Comments, "\n  "))
		}
	}
}
