package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Venue store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreSupabase = "supabase"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Places provider, used by the proxy. The key is read once here; an
	// empty key makes every search fail with ErrProviderUnavailable.
	GoogleAPIKey      string
	GooglePlacesURL   string
	ProviderTimeout   time.Duration
	ProviderRateLimit float64 // requests per second
	ProviderBurst     int

	// Places proxy, as seen by the discovery side. Empty URL means the
	// provider is called in-process with GoogleAPIKey.
	PlacesProxyURL string
	PlacesProxyKey string

	VenueStore        string
	DatabaseURL       string
	SupabaseURL       string
	SupabaseKey       string
	VenueLimit        int
	DetailReviewLimit int

	// Map surface defaults.
	MapCenterLat      float64
	MapCenterLng      float64
	MapZoom           float64
	MapStyle          string
	DefaultRadius     int
	DefaultCategories string

	// Resolution events.
	EventsEnabled   bool
	KafkaBrokers    []string
	ResolutionTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	providerTimeout, err := parseDuration("PROVIDER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("PROVIDER_RATE_LIMIT", "10"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid PROVIDER_RATE_LIMIT")
	}

	burst, err := parsePositiveInt("PROVIDER_BURST", "5", 1000)
	if err != nil {
		return nil, err
	}
	venueLimit, err := parsePositiveInt("VENUE_LIMIT", "200", 5000)
	if err != nil {
		return nil, err
	}
	reviewLimit, err := parsePositiveInt("DETAIL_REVIEW_LIMIT", "2", 50)
	if err != nil {
		return nil, err
	}
	radius, err := parsePositiveInt("DEFAULT_RADIUS", "10000", 50000)
	if err != nil {
		return nil, err
	}

	lat, lng, err := parseCenter(sharedcfg.EnvOrDefault("MAP_CENTER", "-22.9083,-43.1964"))
	if err != nil {
		return nil, err
	}

	zoom, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("MAP_ZOOM", "10"), 64)
	if err != nil || zoom < 0 || zoom > 22 {
		return nil, errors.New("invalid MAP_ZOOM")
	}

	eventsEnabled := os.Getenv("RESOLUTION_EVENTS_ENABLED") == "true"

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GoogleAPIKey:      os.Getenv("GOOGLE_MAPS_API_KEY"),
		GooglePlacesURL:   sharedcfg.EnvOrDefault("GOOGLE_PLACES_URL", "https://maps.googleapis.com/maps/api/place"),
		ProviderTimeout:   providerTimeout,
		ProviderRateLimit: rateLimit,
		ProviderBurst:     burst,

		PlacesProxyURL: os.Getenv("PLACES_PROXY_URL"),
		PlacesProxyKey: os.Getenv("PLACES_PROXY_KEY"),

		VenueStore:        sharedcfg.EnvOrDefault("VENUE_STORE", StoreSQLite),
		DatabaseURL:       sharedcfg.EnvOrDefault("DATABASE_URL", "file:venues.db"),
		SupabaseURL:       os.Getenv("SUPABASE_URL"),
		SupabaseKey:       os.Getenv("SUPABASE_KEY"),
		VenueLimit:        venueLimit,
		DetailReviewLimit: reviewLimit,

		MapCenterLat:      lat,
		MapCenterLng:      lng,
		MapZoom:           zoom,
		MapStyle:          sharedcfg.EnvOrDefault("MAP_STYLE", "mapbox://styles/mapbox/light-v11"),
		DefaultRadius:     radius,
		DefaultCategories: sharedcfg.EnvOrDefault("DEFAULT_CATEGORIES", "restaurant|bar|night_club"),

		EventsEnabled:   eventsEnabled,
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		ResolutionTopic: sharedcfg.EnvOrDefault("KAFKA_RESOLUTION_TOPIC", "venue-map-resolutions"),
	}

	switch cfg.VenueStore {
	case StoreSQLite, StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required")
		}
	case StoreSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, errors.New("VENUE_STORE is supabase but SUPABASE_URL or SUPABASE_KEY is not set")
		}
	default:
		return nil, fmt.Errorf("invalid VENUE_STORE %q", cfg.VenueStore)
	}
	if cfg.EventsEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("RESOLUTION_EVENTS_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.ResolutionTopic == "" {
			return nil, errors.New("KAFKA_RESOLUTION_TOPIC is required")
		}
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key, def string, maxValue int) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n <= 0 || n > maxValue {
		return 0, fmt.Errorf("invalid %s: must be between 1 and %d", key, maxValue)
	}
	return n, nil
}

// parseCenter parses "lat,lng".
func parseCenter(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, errors.New("invalid MAP_CENTER: expected lat,lng")
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, errors.New("invalid MAP_CENTER: expected lat,lng")
	}
	return lat, lng, nil
}
