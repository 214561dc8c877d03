package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sony/gobreaker"

	"github.com/cwwmbm/skycast/internal/location"
)

const defaultNominatimBaseURL = "https://nominatim.openstreetmap.org/reverse"

// nominatimUserAgent identifies us to Nominatim, which rejects anonymous clients.
const nominatimUserAgent = "skycast/1.0"

// NominatimClient reverse-geocodes a position into address components using
// OpenStreetMap Nominatim (free, no API key).
type NominatimClient struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	cache   *gocache.Cache
}

// NewNominatimClient creates a reverse geocoder. baseURL may be empty to use
// the public Nominatim endpoint.
func NewNominatimClient(client *http.Client, baseURL string) *NominatimClient {
	if baseURL == "" {
		baseURL = defaultNominatimBaseURL
	}
	return &NominatimClient{
		baseURL: baseURL,
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("nominatim"),
		cache:   gocache.New(30*time.Minute, 30*time.Minute),
	}
}

// Reverse resolves address components for the position. Missing components
// are left empty; callers decide how to degrade.
func (c *NominatimClient) Reverse(ctx context.Context, lat, lon float64) (location.Address, error) {
	// Cache on rounded coordinates; positions inside a few meters of each
	// other resolve to the same address anyway.
	cacheKey := fmt.Sprintf("%.4f:%.4f", lat, lon)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.(location.Address), nil
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", lat))
		values.Set("lon", fmt.Sprintf("%f", lon))
		values.Set("format", "json")
		values.Set("addressdetails", "1")

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", nominatimUserAgent)
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return location.Address{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Address struct {
			City         string `json:"city"`
			Town         string `json:"town"`
			Village      string `json:"village"`
			Suburb       string `json:"suburb"`
			Municipality string `json:"municipality"`
			State        string `json:"state"`
			Province     string `json:"province"`
			Country      string `json:"country"`
		} `json:"address"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return location.Address{}, fmt.Errorf("decode reverse geocode response: %w", err)
	}

	a := payload.Address
	addr := location.Address{
		City:         a.City,
		Town:         a.Town,
		Village:      a.Village,
		Suburb:       a.Suburb,
		Municipality: a.Municipality,
		State:        a.State,
		Province:     a.Province,
		Country:      a.Country,
	}

	c.cache.Set(cacheKey, addr, gocache.DefaultExpiration)
	return addr, nil
}
