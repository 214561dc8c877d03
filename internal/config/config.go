package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/cwwmbm/skycast/internal/geo"
)

type AppConfig struct {
	Port string

	// HTTPTimeout is the shared client timeout for outbound provider calls.
	HTTPTimeout time.Duration

	// Resolver tuning.
	PositionTimeout       time.Duration
	ReverseGeocodeTimeout time.Duration

	// Search surface tuning.
	SearchDebounce time.Duration
	BlurGrace      time.Duration

	// NoticeTTL is how long transient advisories stay on display.
	NoticeTTL time.Duration

	// Fallback is the coordinate used when positioning fails entirely.
	Fallback geo.Coordinate

	// DataDir holds the persisted key-value files (saved locations).
	DataDir string

	// GoogleGeocoderAPIKey switches reverse geocoding from Nominatim to the
	// Google Geocoding API when set.
	GoogleGeocoderAPIKey string

	// Provider endpoints, overridable for tests and self-hosted mirrors.
	// Empty selects each provider's public default.
	OpenMeteoBaseURL string
	GeocodingBaseURL string
	NominatimBaseURL string
	IPAPIBaseURL     string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.DataDir = getenvDefault("DATA_DIR", "./data")
	cfg.GoogleGeocoderAPIKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")

	cfg.OpenMeteoBaseURL = os.Getenv("OPENMETEO_BASE_URL")
	cfg.GeocodingBaseURL = os.Getenv("GEOCODING_BASE_URL")
	cfg.NominatimBaseURL = os.Getenv("NOMINATIM_BASE_URL")
	cfg.IPAPIBaseURL = os.Getenv("IPAPI_BASE_URL")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.PositionTimeout, err = getenvDuration("POSITION_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.ReverseGeocodeTimeout, err = getenvDuration("REVERSE_GEOCODE_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if cfg.SearchDebounce, err = getenvDuration("SEARCH_DEBOUNCE", "250ms"); err != nil {
		return nil, err
	}
	if cfg.BlurGrace, err = getenvDuration("BLUR_GRACE", "200ms"); err != nil {
		return nil, err
	}
	if cfg.NoticeTTL, err = getenvDuration("NOTICE_TTL", "5s"); err != nil {
		return nil, err
	}

	fallback, err := loadFallback()
	if err != nil {
		return nil, err
	}
	cfg.Fallback = fallback

	return cfg, nil
}

func loadFallback() (geo.Coordinate, error) {
	lat, err := getenvFloat("FALLBACK_LAT", 49.2827)
	if err != nil {
		return geo.Coordinate{}, err
	}
	lon, err := getenvFloat("FALLBACK_LON", -123.1207)
	if err != nil {
		return geo.Coordinate{}, err
	}
	return geo.Coordinate{
		Latitude:  lat,
		Longitude: lon,
		Label:     getenvDefault("FALLBACK_LABEL", "Vancouver, BC, Canada"),
	}, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
