package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/cwwmbm/skycast/internal/api/http"
	"github.com/cwwmbm/skycast/internal/config"
	"github.com/cwwmbm/skycast/internal/forecast"
	"github.com/cwwmbm/skycast/internal/location"
	"github.com/cwwmbm/skycast/internal/providers"
	"github.com/cwwmbm/skycast/internal/session"
	"github.com/cwwmbm/skycast/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Providers with resilience (backoff + circuit breaker).
	forecastClient := providers.NewOpenMeteoClient(httpClient, cfg.OpenMeteoBaseURL)
	searchClient := providers.NewGeocodingClient(httpClient, cfg.GeocodingBaseURL)
	ipLocator := providers.NewIPLocator(httpClient, cfg.IPAPIBaseURL)

	// Nominatim needs no key; a Google API key switches the reverse geocoder.
	var reverse location.ReverseGeocoder = providers.NewNominatimClient(httpClient, cfg.NominatimBaseURL)
	if cfg.GoogleGeocoderAPIKey != "" {
		reverse = providers.NewGoogleGeocoder(cfg.GoogleGeocoderAPIKey)
	}

	// Persisted saved-location list.
	kv, err := store.NewFileKV(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to open data dir: %v", err)
	}
	saved := store.NewSavedStore(kv)

	// No native geolocator on a headless host; the IP locator is the only
	// positioning source, with the configured city as the last resort.
	resolver := location.NewResolver(nil, ipLocator, reverse, location.Config{
		PositionTimeout: cfg.PositionTimeout,
		ReverseTimeout:  cfg.ReverseGeocodeTimeout,
		Fallback:        cfg.Fallback,
	})

	orch := forecast.NewOrchestrator(forecastClient, forecast.Options{})
	defer orch.Close()

	notices := session.NewNoticeCenter(cfg.NoticeTTL)
	defer notices.Close()

	sess := session.New(resolver, orch, saved, searchClient, notices)
	defer sess.Close()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "skycast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "skycast",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Forecast: forecastClient,
		Searcher: searchClient,
		Saved:    saved,
		Session:  sess,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Resolve an initial location in the background so the first forecast is
	// ready without waiting for a client call.
	go func() {
		res := sess.UseCurrentLocation(context.Background())
		log.Printf("INFO: initial location %q (fallback=%v)", res.Coordinate.Label, res.UsedFallback)
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
