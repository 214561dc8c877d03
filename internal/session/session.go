package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cwwmbm/skycast/internal/forecast"
	"github.com/cwwmbm/skycast/internal/geo"
	"github.com/cwwmbm/skycast/internal/location"
	"github.com/cwwmbm/skycast/internal/search"
	"github.com/cwwmbm/skycast/internal/store"
)

// ErrNoActiveLocation is returned by ToggleSaved before a coordinate exists.
var ErrNoActiveLocation = errors.New("no active location")

// Session owns the active coordinate and wires the components around it:
// resolver output, search picks, and saved-location selections all land here,
// and every change is forwarded to the forecast orchestrator and to
// coordinate subscribers. It replaces the ambient globals of a UI layer with
// one explicit state container.
type Session struct {
	resolver *location.Resolver
	orch     *forecast.Orchestrator
	saved    *store.SavedStore
	searcher search.Searcher
	notices  *NoticeCenter

	mu       sync.Mutex
	coord    geo.Coordinate
	hasCoord bool
	subs     map[int]func(geo.Coordinate)
	nextSub  int
	closed   bool
}

// New creates a Session. searcher may be nil; ToggleSaved then always
// synthesizes the place from the label.
func New(resolver *location.Resolver, orch *forecast.Orchestrator, saved *store.SavedStore, searcher search.Searcher, notices *NoticeCenter) *Session {
	return &Session{
		resolver: resolver,
		orch:     orch,
		saved:    saved,
		searcher: searcher,
		notices:  notices,
		subs:     make(map[int]func(geo.Coordinate)),
	}
}

// Coordinate returns the active coordinate, if one has been installed.
func (s *Session) Coordinate() (geo.Coordinate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coord, s.hasCoord
}

// OnCoordinate registers a coordinate-change callback and returns its cancel func.
func (s *Session) OnCoordinate(fn func(geo.Coordinate)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// SetCoordinate installs a new active coordinate, notifies subscribers, and
// re-triggers the forecast orchestrator.
func (s *Session) SetCoordinate(c geo.Coordinate) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.coord = c
	s.hasCoord = true
	subs := make([]func(geo.Coordinate), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	log.Printf("INFO: active location is now %q (%.4f, %.4f)", c.Label, c.Latitude, c.Longitude)
	for _, fn := range subs {
		fn(c)
	}
	if s.orch != nil {
		s.orch.SetCoordinate(c)
	}
}

// UseCurrentLocation runs the resolver and installs its coordinate. When the
// fallback coordinate is used, the resolver's advisory is published as a
// transient notice.
func (s *Session) UseCurrentLocation(ctx context.Context) location.Result {
	res := s.resolver.Acquire(ctx)
	if res.Notice != "" && s.notices != nil {
		s.notices.Publish(res.Notice)
	}
	s.SetCoordinate(res.Coordinate)
	return res
}

// PickPlace installs a searched or saved place as the active coordinate.
func (s *Session) PickPlace(p geo.GeocodeResult) {
	s.SetCoordinate(p.Coordinate())
}

// Refresh re-fetches the forecast for the current coordinate.
func (s *Session) Refresh() {
	if s.orch != nil {
		s.orch.Refresh()
	}
}

// IsSaved reports whether a saved entry matches the active coordinate
// (within the matching tolerance).
func (s *Session) IsSaved() bool {
	c, ok := s.Coordinate()
	if !ok {
		return false
	}
	_, found := s.saved.FindNear(c.Latitude, c.Longitude)
	return found
}

// ToggleSaved saves or unsaves the active coordinate. Returns whether the
// location is saved after the call. Write failures propagate so the caller
// can leave its toggle un-flipped; callers await one toggle before starting
// another.
func (s *Session) ToggleSaved(ctx context.Context) (bool, error) {
	c, ok := s.Coordinate()
	if !ok {
		return false, ErrNoActiveLocation
	}

	if existing, found := s.saved.FindNear(c.Latitude, c.Longitude); found {
		if err := s.saved.Remove(existing.ID); err != nil {
			return true, err
		}
		return false, nil
	}

	place, ok := s.matchPlace(ctx, c)
	if !ok {
		// No provider entry matches the label; leave the toggle un-flipped.
		return false, nil
	}
	if err := s.saved.Add(place); err != nil {
		return false, err
	}
	return true, nil
}

// Close detaches all subscribers; no callback fires afterwards. The owned
// components are closed by whoever constructed them.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = nil
}

// matchPlace finds the full GeocodeResult for the active coordinate: search
// by the label's leading segment and prefer a nearby hit, falling back to
// the first result. A search that succeeds with an empty result set reports
// no match; only a failed or unavailable search synthesizes a place from
// the label.
func (s *Session) matchPlace(ctx context.Context, c geo.Coordinate) (geo.GeocodeResult, bool) {
	if s.searcher != nil {
		name := labelSegment(c.Label, 0)
		if name != "" {
			results, err := s.searcher.Search(ctx, name, 5)
			if err == nil {
				for _, r := range results {
					if c.CloseTo(r.Latitude, r.Longitude) {
						return r, true
					}
				}
				if len(results) > 0 {
					return results[0], true
				}
				return geo.GeocodeResult{}, false
			}
			log.Printf("session: place lookup for save failed, synthesizing: %v", err)
		}
	}
	return placeFromLabel(c), true
}

// placeFromLabel builds a synthetic GeocodeResult when no provider match
// exists. The id is the save instant in unix milliseconds; the dedup-by-id
// rule keeps it harmless.
func placeFromLabel(c geo.Coordinate) geo.GeocodeResult {
	parts := strings.Split(c.Label, ",")
	place := geo.GeocodeResult{
		ID:        time.Now().UnixMilli(),
		Name:      strings.TrimSpace(parts[0]),
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
	}
	if len(parts) > 1 {
		place.Country = strings.TrimSpace(parts[len(parts)-1])
	}
	if len(parts) > 2 {
		place.Admin1 = strings.TrimSpace(parts[1])
	}
	return place
}

func labelSegment(label string, i int) string {
	parts := strings.Split(label, ",")
	if i >= len(parts) {
		return ""
	}
	return strings.TrimSpace(parts[i])
}
