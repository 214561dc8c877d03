package location

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cwwmbm/skycast/internal/geo"
)

// State names a step of the acquisition state machine.
type State string

const (
	StateIdle              State = "idle"
	StatePermissionCheck   State = "permission_check"
	StatePermissionDenied  State = "permission_denied"
	StatePermissionGranted State = "permission_granted"
	StatePositioning       State = "positioning"
	StatePositioned        State = "positioned"
	StatePositionFailed    State = "position_failed"
	StateLabelResolution   State = "label_resolution"
	StateResolved          State = "resolved"
)

// fallbackNotice is the transient advisory shown when positioning failed and
// the fallback coordinate is in use.
const fallbackNotice = "Could not detect your location. Using default location. You can search for a city."

// Config carries resolver tuning. Zero values select the defaults.
type Config struct {
	// PositionTimeout bounds a single device fix attempt. Default 10s.
	PositionTimeout time.Duration
	// ReverseTimeout bounds the reverse-geocode label race. Default 5s.
	ReverseTimeout time.Duration
	// Fallback is the coordinate resolved when positioning fails entirely.
	Fallback geo.Coordinate
}

// DefaultFallback is used when Config.Fallback is left empty.
var DefaultFallback = geo.Coordinate{
	Latitude:  49.2827,
	Longitude: -123.1207,
	Label:     "Vancouver, BC, Canada",
}

// Result is what an acquisition yields. Acquire never fails: when positioning
// is impossible the fallback coordinate is returned with a transient notice.
type Result struct {
	Coordinate   geo.Coordinate
	UsedFallback bool
	// Notice is a non-blocking advisory for the user; empty on a clean resolve.
	Notice string
}

// Resolver acquires a best-effort coordinate plus a human-readable label.
// Any of the three collaborators may be nil; the resolver degrades through
// the remaining ones and ultimately to the fallback coordinate.
type Resolver struct {
	geolocator Geolocator
	secondary  Positioner
	reverse    ReverseGeocoder
	cfg        Config

	mu    sync.Mutex
	state State
}

// NewResolver creates a Resolver. geolocator is the platform-native source,
// secondary the coarse fallback source, reverse the label source.
func NewResolver(geolocator Geolocator, secondary Positioner, reverse ReverseGeocoder, cfg Config) *Resolver {
	if cfg.PositionTimeout <= 0 {
		cfg.PositionTimeout = 10 * time.Second
	}
	if cfg.ReverseTimeout <= 0 {
		cfg.ReverseTimeout = 5 * time.Second
	}
	if cfg.Fallback == (geo.Coordinate{}) {
		cfg.Fallback = DefaultFallback
	}
	return &Resolver{
		geolocator: geolocator,
		secondary:  secondary,
		reverse:    reverse,
		cfg:        cfg,
		state:      StateIdle,
	}
}

// State returns the last state the machine reached.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Resolver) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	log.Printf("DEBUG: location resolver -> %s", s)
}

// Acquire runs the state machine once and always resolves to some coordinate.
// Re-invocation (e.g. a manual "use current location" action) is the caller's
// responsibility; nothing is retried internally.
func (r *Resolver) Acquire(ctx context.Context) Result {
	pos, ok := r.position(ctx)
	if !ok {
		r.setState(StatePositionFailed)
		return Result{
			Coordinate:   r.cfg.Fallback,
			UsedFallback: true,
			Notice:       fallbackNotice,
		}
	}

	label := r.resolveLabel(ctx, pos)
	r.setState(StateResolved)
	return Result{
		Coordinate: geo.Coordinate{
			Latitude:  pos.Latitude,
			Longitude: pos.Longitude,
			Label:     label,
		},
	}
}

// position tries native positioning first, then the secondary source.
func (r *Resolver) position(ctx context.Context) (Position, bool) {
	if r.geolocator != nil {
		r.setState(StatePermissionCheck)

		granted := false
		perm, err := r.geolocator.CheckPermission(ctx)
		if err != nil {
			log.Printf("location: permission check failed: %v", err)
		} else {
			if perm == PermissionPrompt || perm == PermissionDenied {
				perm, err = r.geolocator.RequestPermission(ctx)
				if err != nil {
					log.Printf("location: permission request failed: %v", err)
				}
			}
			granted = err == nil && perm == PermissionGranted
		}

		if granted {
			r.setState(StatePermissionGranted)
			r.setState(StatePositioning)

			fixCtx, cancel := context.WithTimeout(ctx, r.cfg.PositionTimeout)
			pos, err := r.geolocator.CurrentPosition(fixCtx, true)
			cancel()
			if err == nil {
				r.setState(StatePositioned)
				return pos, true
			}
			log.Printf("location: native positioning failed: %v", err)
		} else {
			r.setState(StatePermissionDenied)
		}
	}

	if r.secondary != nil {
		r.setState(StatePositioning)

		fixCtx, cancel := context.WithTimeout(ctx, r.cfg.PositionTimeout)
		pos, err := r.secondary.CurrentPosition(fixCtx)
		cancel()
		if err == nil {
			r.setState(StatePositioned)
			return pos, true
		}
		log.Printf("location: fallback positioning failed: %v", err)
	}

	return Position{}, false
}

// resolveLabel races the reverse geocoder against the configured timeout.
// The loser's eventual settlement is discarded.
func (r *Resolver) resolveLabel(ctx context.Context, pos Position) string {
	r.setState(StateLabelResolution)

	if r.reverse == nil {
		return geo.CoordinateLabel(pos.Latitude, pos.Longitude)
	}

	raceCtx, cancel := context.WithTimeout(ctx, r.cfg.ReverseTimeout)
	defer cancel()

	type answer struct {
		addr Address
		err  error
	}
	done := make(chan answer, 1)

	go func() {
		addr, err := r.reverse.Reverse(raceCtx, pos.Latitude, pos.Longitude)
		done <- answer{addr, err}
	}()

	select {
	case <-raceCtx.Done():
		log.Printf("location: reverse geocoding timed out, using coordinates")
		return geo.CoordinateLabel(pos.Latitude, pos.Longitude)
	case a := <-done:
		if a.err != nil {
			log.Printf("location: reverse geocoding failed, using coordinates: %v", a.err)
			return geo.CoordinateLabel(pos.Latitude, pos.Longitude)
		}
		if label := labelFromAddress(a.addr); label != "" {
			return label
		}
		return geo.CoordinateLabel(pos.Latitude, pos.Longitude)
	}
}

// labelFromAddress builds "place, region, country" from whatever components
// resolved, preferring the most specific place name. Empty when nothing did.
func labelFromAddress(a Address) string {
	var parts []string

	for _, place := range []string{a.City, a.Town, a.Village, a.Suburb, a.Municipality} {
		if place != "" {
			parts = append(parts, place)
			break
		}
	}

	if a.State != "" {
		parts = append(parts, a.State)
	} else if a.Province != "" {
		parts = append(parts, a.Province)
	}

	if a.Country != "" {
		parts = append(parts, a.Country)
	}

	return strings.Join(parts, ", ")
}
