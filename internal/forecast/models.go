package forecast

// Day is one entry of a multi-day forecast.
type Day struct {
	Date                     string  `json:"date"` // YYYY-MM-DD
	WeatherCode              int     `json:"weatherCode"`
	TemperatureMax           float64 `json:"temperatureMax"`
	TemperatureMin           float64 `json:"temperatureMin"`
	PrecipitationMm          float64 `json:"precipitationMm"`
	PrecipitationProbability *int    `json:"precipitationProbability,omitempty"`
}

// Hour is one entry of an hourly forecast.
type Hour struct {
	Time                     string  `json:"time"` // ISO minute, e.g. 2026-08-31T14:00
	WeatherCode              int     `json:"weatherCode"`
	IsDay                    *bool   `json:"isDay,omitempty"`
	TemperatureC             float64 `json:"temperatureC"`
	PrecipitationMm          float64 `json:"precipitationMm"`
	PrecipitationProbability *int    `json:"precipitationProbability,omitempty"`
}

// DailyForecast is the multi-day view for one position.
type DailyForecast struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone,omitempty"`
	Days      []Day   `json:"days"`
}

// HourlyForecast is the hour-by-hour view for one position.
type HourlyForecast struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone,omitempty"`
	Hours     []Hour  `json:"hours"`
}

// State is the display-ready forecast state for the active coordinate.
// It lives exactly one coordinate's worth of display and is never persisted.
type State struct {
	Daily   *DailyForecast  `json:"daily,omitempty"`
	Hourly  *HourlyForecast `json:"hourly,omitempty"`
	Loading bool            `json:"loading"`
	Error   string          `json:"error,omitempty"`
}
