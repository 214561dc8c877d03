package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwwmbm/skycast/internal/geo"
)

// failingKV reads fine but rejects writes.
type failingKV struct {
	inner KV
	err   error
}

func (f *failingKV) Get(key string) (string, bool, error) { return f.inner.Get(key) }
func (f *failingKV) Set(string, string) error             { return f.err }

// slowKV delays writes, widening the window between a read and the write
// that depends on it, the way a file-backed KV does.
type slowKV struct {
	inner KV
}

func (s *slowKV) Get(key string) (string, bool, error) { return s.inner.Get(key) }
func (s *slowKV) Set(key, value string) error {
	time.Sleep(time.Millisecond)
	return s.inner.Set(key, value)
}

func place(id int64, name string, lat, lon float64) geo.GeocodeResult {
	return geo.GeocodeResult{ID: id, Name: name, Country: "Canada", Admin1: "British Columbia", Latitude: lat, Longitude: lon}
}

func TestAddIsIdempotent(t *testing.T) {
	s := NewSavedStore(NewMemoryKV())

	require.NoError(t, s.Add(place(1, "Vancouver", 49.28, -123.12)))
	require.NoError(t, s.Add(place(2, "Victoria", 48.43, -123.37)))
	require.NoError(t, s.Add(place(1, "Vancouver", 49.28, -123.12)))

	list := s.List()
	require.Len(t, list, 2)
	// Duplicate add neither duplicated nor reordered.
	assert.Equal(t, int64(2), list[0].ID)
	assert.Equal(t, int64(1), list[1].ID)
}

func TestConcurrentAddsKeepEveryEntry(t *testing.T) {
	s := NewSavedStore(&slowKV{inner: NewMemoryKV()})

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := place(int64(i+1), fmt.Sprintf("City %d", i), 49.0+float64(i), -123.0)
			assert.NoError(t, s.Add(p))
		}(i)
	}
	wg.Wait()

	// Overlapping read-modify-writes must not drop entries.
	assert.Len(t, s.List(), n)
	for i := 0; i < n; i++ {
		assert.True(t, s.Contains(int64(i+1)))
	}
}

func TestListRoundTripNewestFirst(t *testing.T) {
	s := NewSavedStore(NewMemoryKV())
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	places := []geo.GeocodeResult{
		place(10, "Kelowna", 49.89, -119.50),
		place(11, "Kamloops", 50.67, -120.33),
		place(12, "Nanaimo", 49.17, -123.94),
	}
	for _, p := range places {
		require.NoError(t, s.Add(p))
	}

	list := s.List()
	require.Len(t, list, 3)
	// Reverse-insertion order with fields intact plus derived label and timestamp.
	for i, loc := range list {
		want := places[len(places)-1-i]
		assert.Equal(t, want, loc.GeocodeResult)
		assert.Equal(t, want.Name+", British Columbia, Canada", loc.Label)
		assert.Equal(t, base.UnixMilli(), loc.SavedAt)
	}
}

func TestRemove(t *testing.T) {
	s := NewSavedStore(NewMemoryKV())
	require.NoError(t, s.Add(place(1, "Vancouver", 49.28, -123.12)))
	require.NoError(t, s.Add(place(2, "Victoria", 48.43, -123.37)))

	require.NoError(t, s.Remove(1))
	assert.False(t, s.Contains(1))
	assert.True(t, s.Contains(2))

	// Removing an absent id is a no-op.
	require.NoError(t, s.Remove(99))
	assert.Len(t, s.List(), 1)
}

func TestCorruptPayloadDegradesToEmpty(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(savedLocationsKey, "{not json"))

	s := NewSavedStore(kv)
	assert.Empty(t, s.List())

	// The store recovers: the next add rewrites a clean list.
	require.NoError(t, s.Add(place(1, "Vancouver", 49.28, -123.12)))
	assert.Len(t, s.List(), 1)
}

func TestWriteFailurePropagates(t *testing.T) {
	wantErr := errors.New("disk full")
	s := NewSavedStore(&failingKV{inner: NewMemoryKV(), err: wantErr})

	err := s.Add(place(1, "Vancouver", 49.28, -123.12))
	assert.ErrorIs(t, err, wantErr)
	assert.Empty(t, s.List())
}

func TestFindNearTolerance(t *testing.T) {
	s := NewSavedStore(NewMemoryKV())
	require.NoError(t, s.Add(place(1, "Vancouver", 49.2827, -123.1207)))

	_, ok := s.FindNear(49.2827+0.009, -123.1207+0.009)
	assert.True(t, ok)

	_, ok = s.FindNear(49.2827+0.02, -123.1207)
	assert.False(t, ok)

	_, ok = s.FindNear(49.2827, -123.1207-0.02)
	assert.False(t, ok)
}
