package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/cwwmbm/skycast/internal/forecast"
)

const defaultOpenMeteoBaseURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoClient fetches daily and hourly forecasts from Open-Meteo.
// Open-Meteo requires no API key.
type OpenMeteoClient struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoClient creates a forecast client. baseURL may be empty to use
// the public Open-Meteo endpoint.
func NewOpenMeteoClient(client *http.Client, baseURL string) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = defaultOpenMeteoBaseURL
	}
	return &OpenMeteoClient{
		baseURL: baseURL,
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("openmeteo"),
	}
}

// FetchDaily returns a multi-day forecast for the position.
func (c *OpenMeteoClient) FetchDaily(ctx context.Context, lat, lon float64, days int) (*forecast.DailyForecast, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be greater than zero")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_probability_max")
		values.Set("forecast_days", strconv.Itoa(days))
		values.Set("timezone", "auto")

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Timezone  string  `json:"timezone"`
		Daily     struct {
			Time                     []string  `json:"time"`
			WeatherCode              []int     `json:"weather_code"`
			TemperatureMax           []float64 `json:"temperature_2m_max"`
			TemperatureMin           []float64 `json:"temperature_2m_min"`
			PrecipitationSum         []float64 `json:"precipitation_sum"`
			PrecipitationProbability []*int    `json:"precipitation_probability_max"`
		} `json:"daily"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode daily forecast: %w", err)
	}

	d := payload.Daily
	out := &forecast.DailyForecast{
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		Timezone:  payload.Timezone,
		Days:      make([]forecast.Day, 0, len(d.Time)),
	}

	for i, date := range d.Time {
		day := forecast.Day{Date: date}
		if i < len(d.WeatherCode) {
			day.WeatherCode = d.WeatherCode[i]
		}
		if i < len(d.TemperatureMax) {
			day.TemperatureMax = d.TemperatureMax[i]
		}
		if i < len(d.TemperatureMin) {
			day.TemperatureMin = d.TemperatureMin[i]
		}
		if i < len(d.PrecipitationSum) {
			day.PrecipitationMm = d.PrecipitationSum[i]
		}
		if i < len(d.PrecipitationProbability) {
			day.PrecipitationProbability = d.PrecipitationProbability[i]
		}
		out.Days = append(out.Days, day)
	}

	return out, nil
}

// FetchHourly returns an hour-by-hour forecast for the position.
func (c *OpenMeteoClient) FetchHourly(ctx context.Context, lat, lon float64, hours int) (*forecast.HourlyForecast, error) {
	if hours <= 0 {
		return nil, fmt.Errorf("hours must be greater than zero")
	}

	// Open-Meteo slices hourly data by whole days.
	days := (hours + 23) / 24

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("hourly", "temperature_2m,weather_code,is_day,precipitation,precipitation_probability")
		values.Set("forecast_days", strconv.Itoa(days))
		values.Set("timezone", "auto")

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Timezone  string  `json:"timezone"`
		Hourly    struct {
			Time                     []string  `json:"time"`
			Temperature              []float64 `json:"temperature_2m"`
			WeatherCode              []int     `json:"weather_code"`
			IsDay                    []int     `json:"is_day"`
			Precipitation            []float64 `json:"precipitation"`
			PrecipitationProbability []*int    `json:"precipitation_probability"`
		} `json:"hourly"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode hourly forecast: %w", err)
	}

	h := payload.Hourly
	out := &forecast.HourlyForecast{
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		Timezone:  payload.Timezone,
		Hours:     make([]forecast.Hour, 0, hours),
	}

	for i, ts := range h.Time {
		if len(out.Hours) >= hours {
			break
		}
		hour := forecast.Hour{Time: ts}
		if i < len(h.Temperature) {
			hour.TemperatureC = h.Temperature[i]
		}
		if i < len(h.WeatherCode) {
			hour.WeatherCode = h.WeatherCode[i]
		}
		if i < len(h.IsDay) {
			isDay := h.IsDay[i] == 1
			hour.IsDay = &isDay
		}
		if i < len(h.Precipitation) {
			hour.PrecipitationMm = h.Precipitation[i]
		}
		if i < len(h.PrecipitationProbability) {
			hour.PrecipitationProbability = h.PrecipitationProbability[i]
		}
		out.Hours = append(out.Hours, hour)
	}

	return out, nil
}
