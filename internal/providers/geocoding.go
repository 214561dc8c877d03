package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sony/gobreaker"

	"github.com/cwwmbm/skycast/internal/geo"
)

const defaultGeocodingBaseURL = "https://geocoding-api.open-meteo.com/v1/search"

// GeocodingClient searches places by free text against the Open-Meteo
// geocoding API. Results are cached for the session so repeated queries
// (backspacing, re-focusing the search box) do not re-hit the network.
type GeocodingClient struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	cache   *gocache.Cache
}

// NewGeocodingClient creates a place-search client. baseURL may be empty to
// use the public endpoint.
func NewGeocodingClient(client *http.Client, baseURL string) *GeocodingClient {
	if baseURL == "" {
		baseURL = defaultGeocodingBaseURL
	}
	return &GeocodingClient{
		baseURL: baseURL,
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("geocoding"),
		cache:   gocache.New(10*time.Minute, 15*time.Minute),
	}
}

// Search returns up to limit candidate places for the query.
func (c *GeocodingClient) Search(ctx context.Context, query string, limit int) ([]geo.GeocodeResult, error) {
	if limit <= 0 {
		limit = 5
	}

	cacheKey := query + ":" + strconv.Itoa(limit)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]geo.GeocodeResult), nil
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("name", query)
		values.Set("count", strconv.Itoa(limit))
		values.Set("language", "en")
		values.Set("format", "json")

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Results []struct {
			ID        int64   `json:"id"`
			Name      string  `json:"name"`
			Country   string  `json:"country"`
			Admin1    string  `json:"admin1"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}

	results := make([]geo.GeocodeResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		results = append(results, geo.GeocodeResult{
			ID:        r.ID,
			Name:      r.Name,
			Country:   r.Country,
			Admin1:    r.Admin1,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		})
	}

	c.cache.Set(cacheKey, results, gocache.DefaultExpiration)
	return results, nil
}
