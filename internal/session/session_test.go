package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwwmbm/skycast/internal/geo"
	"github.com/cwwmbm/skycast/internal/store"
)

type stubSearcher struct {
	results []geo.GeocodeResult
	err     error
}

func (s *stubSearcher) Search(context.Context, string, int) ([]geo.GeocodeResult, error) {
	return s.results, s.err
}

func newTestSession(searcher *stubSearcher) (*Session, *store.SavedStore) {
	saved := store.NewSavedStore(store.NewMemoryKV())
	return New(nil, nil, saved, searcher, nil), saved
}

func TestToggleSavedAddsMatchedPlace(t *testing.T) {
	searcher := &stubSearcher{results: []geo.GeocodeResult{
		{ID: 99, Name: "Elsewhere", Country: "Canada", Latitude: 10, Longitude: 10},
		{ID: 42, Name: "Vancouver", Admin1: "British Columbia", Country: "Canada", Latitude: 49.283, Longitude: -123.12},
	}}
	s, saved := newTestSession(searcher)

	s.SetCoordinate(geo.Coordinate{Latitude: 49.2827, Longitude: -123.1207, Label: "Vancouver, British Columbia, Canada"})

	nowSaved, err := s.ToggleSaved(context.Background())
	require.NoError(t, err)
	assert.True(t, nowSaved)

	// The nearby hit wins over the first result.
	assert.True(t, saved.Contains(42))
	assert.False(t, saved.Contains(99))
	assert.True(t, s.IsSaved())
}

func TestToggleSavedRemovesExistingEntry(t *testing.T) {
	s, saved := newTestSession(&stubSearcher{})
	require.NoError(t, saved.Add(geo.GeocodeResult{ID: 1, Name: "Vancouver", Country: "Canada", Latitude: 49.2827, Longitude: -123.1207}))

	s.SetCoordinate(geo.Coordinate{Latitude: 49.2830, Longitude: -123.1210, Label: "Vancouver, Canada"})
	require.True(t, s.IsSaved())

	nowSaved, err := s.ToggleSaved(context.Background())
	require.NoError(t, err)
	assert.False(t, nowSaved)
	assert.Empty(t, saved.List())
}

func TestToggleSavedSynthesizesWhenSearchFails(t *testing.T) {
	s, saved := newTestSession(&stubSearcher{err: errors.New("offline")})

	s.SetCoordinate(geo.Coordinate{Latitude: 49.2827, Longitude: -123.1207, Label: "Vancouver, BC, Canada"})

	nowSaved, err := s.ToggleSaved(context.Background())
	require.NoError(t, err)
	assert.True(t, nowSaved)

	list := saved.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Vancouver", list[0].Name)
	assert.Equal(t, "BC", list[0].Admin1)
	assert.Equal(t, "Canada", list[0].Country)
	assert.Equal(t, 49.2827, list[0].Latitude)
}

func TestToggleSavedNoOpWhenSearchFindsNothing(t *testing.T) {
	s, saved := newTestSession(&stubSearcher{})

	s.SetCoordinate(geo.Coordinate{Latitude: 49.2827, Longitude: -123.1207, Label: "Vancouver, BC, Canada"})

	// An empty result set is not a failure: nothing is saved, nothing
	// synthesized, and the toggle stays un-flipped.
	nowSaved, err := s.ToggleSaved(context.Background())
	require.NoError(t, err)
	assert.False(t, nowSaved)
	assert.Empty(t, saved.List())
	assert.False(t, s.IsSaved())
}

func TestToggleSavedWithoutCoordinate(t *testing.T) {
	s, _ := newTestSession(&stubSearcher{})
	_, err := s.ToggleSaved(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveLocation)
}

func TestCoordinateSubscribers(t *testing.T) {
	s, _ := newTestSession(&stubSearcher{})

	var got []geo.Coordinate
	cancel := s.OnCoordinate(func(c geo.Coordinate) { got = append(got, c) })

	s.SetCoordinate(geo.Coordinate{Latitude: 1, Label: "one"})
	cancel()
	s.SetCoordinate(geo.Coordinate{Latitude: 2, Label: "two"})

	require.Len(t, got, 1)
	assert.Equal(t, "one", got[0].Label)

	// The active coordinate still advanced.
	c, ok := s.Coordinate()
	require.True(t, ok)
	assert.Equal(t, "two", c.Label)
}

func TestSetCoordinateAfterCloseIsIgnored(t *testing.T) {
	s, _ := newTestSession(&stubSearcher{})
	s.SetCoordinate(geo.Coordinate{Latitude: 1, Label: "before"})
	s.Close()
	s.SetCoordinate(geo.Coordinate{Latitude: 2, Label: "after"})

	c, _ := s.Coordinate()
	assert.Equal(t, "before", c.Label)
}

func TestNoticeAutoClears(t *testing.T) {
	n := NewNoticeCenter(40 * time.Millisecond)
	defer n.Close()

	changes := make(chan []Notice, 8)
	n.Subscribe(func(active []Notice) { changes <- active })

	id := n.Publish("Could not detect your location.")
	require.NotEmpty(t, id)
	require.Len(t, n.Active(), 1)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case active := <-changes:
			if len(active) == 0 {
				return // cleared
			}
		case <-deadline:
			t.Fatal("notice never auto-cleared")
		}
	}
}

func TestNoticeManualClearStopsTimer(t *testing.T) {
	n := NewNoticeCenter(time.Hour)
	defer n.Close()

	id := n.Publish("advisory")
	n.Clear(id)
	assert.Empty(t, n.Active())

	// Clearing twice is a no-op.
	n.Clear(id)
	assert.Empty(t, n.Active())
}
