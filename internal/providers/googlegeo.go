package providers

import (
	"context"
	"fmt"

	"github.com/kelvins/geocoder"

	"github.com/cwwmbm/skycast/internal/location"
)

// GoogleGeocoder adapts the kelvins/geocoder Google Maps client to the
// ReverseGeocoder contract. Used instead of Nominatim when a Google API key
// is configured.
type GoogleGeocoder struct{}

// NewGoogleGeocoder configures the underlying library with the API key.
// The library holds the key in package state, so only one instance makes sense.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{}
}

// Reverse resolves address components via the Google Geocoding API.
// The library does not take a context; the resolver's timeout race still
// bounds the caller's wait.
func (g *GoogleGeocoder) Reverse(_ context.Context, lat, lon float64) (location.Address, error) {
	addresses, err := geocoder.GeocodingReverse(geocoder.Location{Latitude: lat, Longitude: lon})
	if err != nil {
		return location.Address{}, err
	}
	if len(addresses) == 0 {
		return location.Address{}, fmt.Errorf("no address for %.4f, %.4f", lat, lon)
	}

	a := addresses[0]
	return location.Address{
		City:    a.City,
		Suburb:  a.District,
		State:   a.State,
		Country: a.Country,
	}, nil
}
