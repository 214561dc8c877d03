package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/cwwmbm/skycast/internal/location"
)

const defaultIPAPIBaseURL = "http://ip-api.com/json"

// IPLocator resolves a coarse position from the caller's IP address. It
// serves as the secondary positioning source when native positioning is
// unavailable or fails; city-level accuracy is enough for a weather view.
type IPLocator struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewIPLocator creates an IP-based positioner. baseURL may be empty to use
// the public ip-api.com endpoint.
func NewIPLocator(client *http.Client, baseURL string) *IPLocator {
	if baseURL == "" {
		baseURL = defaultIPAPIBaseURL
	}
	return &IPLocator{
		baseURL: baseURL,
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("ipapi"),
	}
}

// CurrentPosition returns the position the IP geolocation service reports.
func (l *IPLocator) CurrentPosition(ctx context.Context) (location.Position, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, l.baseURL, nil)
	}

	resp, err := doRequestWithResilience(ctx, l.httpCfg, l.circuit, buildRequest)
	if err != nil {
		return location.Position{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return location.Position{}, fmt.Errorf("decode ip geolocation response: %w", err)
	}

	if payload.Status != "success" {
		return location.Position{}, fmt.Errorf("ip geolocation failed: %s", payload.Message)
	}

	return location.Position{Latitude: payload.Lat, Longitude: payload.Lon}, nil
}
