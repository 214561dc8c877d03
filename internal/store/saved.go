package store

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/cwwmbm/skycast/internal/geo"
)

// savedLocationsKey is the single fixed key the list is serialized under.
const savedLocationsKey = "savedLocations"

// SavedStore persists a deduplicated, newest-first list of user-chosen
// places. Each mutation is a full read-modify-write of the list, held under
// the store mutex so overlapping toggles (e.g. concurrent HTTP handlers)
// cannot lose entries.
type SavedStore struct {
	mu  sync.RWMutex
	kv  KV
	now func() time.Time
}

// NewSavedStore creates a store over the given KV.
func NewSavedStore(kv KV) *SavedStore {
	return &SavedStore{kv: kv, now: time.Now}
}

// List returns all saved locations, newest first. A missing, unreadable, or
// corrupt payload degrades to an empty list rather than an error.
func (s *SavedStore) List() []geo.SavedLocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// load reads and decodes the list. Callers hold s.mu.
func (s *SavedStore) load() []geo.SavedLocation {
	raw, ok, err := s.kv.Get(savedLocationsKey)
	if err != nil {
		log.Printf("saved locations: read failed, treating as empty: %v", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var locations []geo.SavedLocation
	if err := json.Unmarshal([]byte(raw), &locations); err != nil {
		log.Printf("saved locations: corrupt payload, treating as empty: %v", err)
		return nil
	}
	return locations
}

// Add saves the place unless its id is already present. New entries are
// prepended with a derived label and the save timestamp. Write failures
// propagate so the caller can leave its toggle un-flipped.
func (s *SavedStore) Add(place geo.GeocodeResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locations := s.load()

	for _, loc := range locations {
		if loc.ID == place.ID {
			return nil
		}
	}

	saved := geo.SavedLocation{
		GeocodeResult: place,
		Label:         geo.DisplayLabel(place),
		SavedAt:       s.now().UnixMilli(),
	}
	locations = append([]geo.SavedLocation{saved}, locations...)

	return s.write(locations)
}

// Remove drops the entry with the given id; a no-op when absent.
func (s *SavedStore) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locations := s.load()

	filtered := locations[:0]
	for _, loc := range locations {
		if loc.ID != id {
			filtered = append(filtered, loc)
		}
	}
	if len(filtered) == len(locations) {
		return nil
	}

	return s.write(filtered)
}

// Contains reports whether an entry with the given id is saved.
func (s *SavedStore) Contains(id int64) bool {
	for _, loc := range s.List() {
		if loc.ID == id {
			return true
		}
	}
	return false
}

// FindNear returns the first saved entry within the matching tolerance of
// the position. Linear scan; saved lists are user-scale.
func (s *SavedStore) FindNear(lat, lon float64) (geo.SavedLocation, bool) {
	for _, loc := range s.List() {
		if loc.Coordinate().CloseTo(lat, lon) {
			return loc, true
		}
	}
	return geo.SavedLocation{}, false
}

func (s *SavedStore) write(locations []geo.SavedLocation) error {
	data, err := json.Marshal(locations)
	if err != nil {
		return err
	}
	return s.kv.Set(savedLocationsKey, string(data))
}
