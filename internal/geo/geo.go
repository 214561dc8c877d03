package geo

import (
	"fmt"
	"math"
)

// Coordinate is the position currently driving the forecast view. It is an
// immutable value: a change of place is a whole new Coordinate, never a
// partial mutation of the old one.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label"`
}

// GeocodeResult identifies a candidate place returned by a place search.
// ID is assigned by the geocoding provider and used as the dedup key.
type GeocodeResult struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SavedLocation is a GeocodeResult the user chose to keep, with a display
// label derived once at save time.
type SavedLocation struct {
	GeocodeResult
	Label   string `json:"label"`
	SavedAt int64  `json:"savedAt"` // unix milliseconds
}

// Coordinate returns the place as an active Coordinate using its display label.
func (p GeocodeResult) Coordinate() Coordinate {
	return Coordinate{Latitude: p.Latitude, Longitude: p.Longitude, Label: DisplayLabel(p)}
}

// Coordinate returns the saved place as an active Coordinate.
func (s SavedLocation) Coordinate() Coordinate {
	return Coordinate{Latitude: s.Latitude, Longitude: s.Longitude, Label: s.Label}
}

// DisplayLabel builds the "Name, Admin1, Country" label, omitting Admin1 when absent.
func DisplayLabel(p GeocodeResult) string {
	if p.Admin1 != "" {
		return fmt.Sprintf("%s, %s, %s", p.Name, p.Admin1, p.Country)
	}
	return fmt.Sprintf("%s, %s", p.Name, p.Country)
}

// Tolerance is the per-axis window for deciding two positions name the same
// place. Providers round coordinates differently, so exact float equality is
// never used.
const Tolerance = 0.01

// CloseTo reports whether c is within Tolerance of the given point on both axes.
func (c Coordinate) CloseTo(lat, lon float64) bool {
	return math.Abs(c.Latitude-lat) < Tolerance && math.Abs(c.Longitude-lon) < Tolerance
}

// CoordinateLabel is the label used when no address can be resolved for a position.
func CoordinateLabel(lat, lon float64) string {
	return fmt.Sprintf("Current Location (%.4f, %.4f)", lat, lon)
}
