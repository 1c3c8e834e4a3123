package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/venue-map/internal/adapter/google"
	httpadapter "github.com/couchcryptid/venue-map/internal/adapter/http"
	"github.com/couchcryptid/venue-map/internal/config"
	"github.com/couchcryptid/venue-map/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	places := google.NewClient(cfg.GoogleAPIKey, google.Options{
		BaseURL:   cfg.GooglePlacesURL,
		Timeout:   cfg.ProviderTimeout,
		RateLimit: cfg.ProviderRateLimit,
		Burst:     cfg.ProviderBurst,
	}, metrics, logger)
	if !places.Configured() {
		// The proxy still serves; every search answers 503 until a key is set.
		logger.Warn("GOOGLE_MAPS_API_KEY not set, places searches will fail")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, places, places, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
