package location

import "context"

// PermissionState mirrors the platform geolocation permission answer.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

// Position is a raw device fix, before any label is attached.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Geolocator abstracts platform-native positioning, permissions included.
// Embedders bind it to real device APIs; on headless hosts it is absent.
type Geolocator interface {
	CheckPermission(ctx context.Context) (PermissionState, error)
	RequestPermission(ctx context.Context) (PermissionState, error)
	CurrentPosition(ctx context.Context, highAccuracy bool) (Position, error)
}

// Positioner is a coarse secondary position source used when native
// positioning is unavailable or fails (the browser-style fallback).
type Positioner interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// Address holds the components a reverse geocoder may resolve for a position.
// Any field may be empty; providers fill what they know.
type Address struct {
	City         string
	Town         string
	Village      string
	Suburb       string
	Municipality string
	State        string
	Province     string
	Country      string
}

// ReverseGeocoder turns a raw position into address components.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (Address, error)
}
