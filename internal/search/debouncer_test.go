package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwwmbm/skycast/internal/geo"
)

type recordingSearcher struct {
	mu      sync.Mutex
	queries []string
	results []geo.GeocodeResult
	err     error
	block   chan struct{} // when set, Search waits on it
}

func (r *recordingSearcher) Search(ctx context.Context, query string, limit int) ([]geo.GeocodeResult, error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	block := r.block
	r.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.results, r.err
}

func (r *recordingSearcher) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

type staticSaved struct {
	list []geo.SavedLocation
}

func (s *staticSaved) List() []geo.SavedLocation { return s.list }

type effectSink struct {
	mu      sync.Mutex
	effects []Effect
}

func (s *effectSink) sink(e Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects = append(s.effects, e)
}

func (s *effectSink) all() []Effect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Effect(nil), s.effects...)
}

func (s *effectSink) waitFor(t *testing.T, kind EffectKind) Effect {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, e := range s.all() {
			if e.Kind == kind {
				return e
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %q effect observed", kind)
	return Effect{}
}

func shortConfig() Config {
	return Config{Debounce: 30 * time.Millisecond, BlurGrace: 30 * time.Millisecond}
}

func TestBurstIssuesOneSearchWithFinalQuery(t *testing.T) {
	searcher := &recordingSearcher{results: []geo.GeocodeResult{{ID: 1, Name: "Vancouver"}}}
	sink := &effectSink{}
	d := NewDebouncer(searcher, &staticSaved{}, sink.sink, shortConfig())
	defer d.Close()

	d.Focus()
	for _, q := range []string{"v", "va", "van", "vanc", "vancouver"} {
		d.SetQuery(q)
		time.Sleep(5 * time.Millisecond) // well under the debounce window
	}

	e := sink.waitFor(t, ShowResults)
	assert.Equal(t, "vancouver", e.Query)
	require.Len(t, e.Results, 1)
	assert.Equal(t, []string{"vancouver"}, searcher.seen())
}

func TestEmptyQueryWhileFocusedShowsSavedImmediately(t *testing.T) {
	saved := &staticSaved{list: []geo.SavedLocation{{
		GeocodeResult: geo.GeocodeResult{ID: 7, Name: "Victoria"},
		Label:         "Victoria, British Columbia, Canada",
	}}}
	sink := &effectSink{}
	d := NewDebouncer(&recordingSearcher{}, saved, sink.sink, shortConfig())
	defer d.Close()

	d.Focus()

	effects := sink.all()
	require.NotEmpty(t, effects)
	assert.Equal(t, ShowSaved, effects[0].Kind)
	require.Len(t, effects[0].Saved, 1)
	assert.Equal(t, int64(7), effects[0].Saved[0].ID)

	// Clearing a query while focused surfaces the saved list again, no debounce.
	d.SetQuery("van")
	d.SetQuery("")
	last := sink.all()[len(sink.all())-1]
	assert.Equal(t, ShowSaved, last.Kind)
}

func TestSearchFailureDegradesToEmptyResults(t *testing.T) {
	searcher := &recordingSearcher{err: errors.New("network down")}
	sink := &effectSink{}
	d := NewDebouncer(searcher, &staticSaved{}, sink.sink, shortConfig())
	defer d.Close()

	d.Focus()
	d.SetQuery("vancouver")

	e := sink.waitFor(t, ShowResults)
	assert.Empty(t, e.Results)
}

func TestNewKeystrokeDisregardsInFlightSearch(t *testing.T) {
	block := make(chan struct{})
	searcher := &recordingSearcher{
		results: []geo.GeocodeResult{{ID: 1, Name: "stale"}},
		block:   block,
	}
	sink := &effectSink{}
	d := NewDebouncer(searcher, &staticSaved{}, sink.sink, shortConfig())
	defer d.Close()

	d.Focus()
	d.SetQuery("old")
	// Wait until the first search is in flight.
	deadline := time.Now().Add(time.Second)
	for len(searcher.seen()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, []string{"old"}, searcher.seen())

	d.SetQuery("new")
	close(block)

	e := sink.waitFor(t, ShowResults)
	// Only the newer query's result surfaces.
	assert.Equal(t, "new", e.Query)
	for _, got := range sink.all() {
		if got.Kind == ShowResults {
			assert.NotEqual(t, "old", got.Query)
		}
	}
}

func TestResultsSurfaceInKeystrokeOrder(t *testing.T) {
	searcher := &recordingSearcher{results: []geo.GeocodeResult{{ID: 1}}}
	sink := &effectSink{}
	d := NewDebouncer(searcher, &staticSaved{}, sink.sink, Config{
		Debounce:  time.Millisecond,
		BlurGrace: 30 * time.Millisecond,
	})
	defer d.Close()

	d.Focus()
	for i := 0; i < 30; i++ {
		d.SetQuery(fmt.Sprintf("q%02d", i))
		time.Sleep(3 * time.Millisecond)
	}

	sink.waitFor(t, ShowResults)
	time.Sleep(50 * time.Millisecond)

	// A superseded search may be dropped, but its result must never land
	// after a newer query's result.
	last := -1
	for _, got := range sink.all() {
		if got.Kind != ShowResults {
			continue
		}
		var idx int
		_, err := fmt.Sscanf(got.Query, "q%d", &idx)
		require.NoError(t, err)
		assert.Greater(t, idx, last)
		last = idx
	}
}

func TestBlurClosesAfterGrace(t *testing.T) {
	sink := &effectSink{}
	d := NewDebouncer(&recordingSearcher{}, &staticSaved{}, sink.sink, shortConfig())
	defer d.Close()

	d.Focus()
	d.Blur()

	// Nothing closes before the grace window.
	for _, e := range sink.all() {
		assert.NotEqual(t, ShowNothing, e.Kind)
	}

	sink.waitFor(t, ShowNothing)
}

func TestRefocusDuringGraceKeepsSurfaceOpen(t *testing.T) {
	sink := &effectSink{}
	d := NewDebouncer(&recordingSearcher{}, &staticSaved{}, sink.sink, shortConfig())
	defer d.Close()

	d.Focus()
	d.Blur()
	d.Focus()

	time.Sleep(80 * time.Millisecond)
	for _, e := range sink.all() {
		assert.NotEqual(t, ShowNothing, e.Kind)
	}
}

func TestCloseSuppressesPendingWork(t *testing.T) {
	searcher := &recordingSearcher{results: []geo.GeocodeResult{{ID: 1}}}
	sink := &effectSink{}
	d := NewDebouncer(searcher, &staticSaved{}, sink.sink, shortConfig())

	d.Focus()
	d.SetQuery("vancouver")
	d.Close()

	time.Sleep(80 * time.Millisecond)
	for _, e := range sink.all() {
		assert.NotEqual(t, ShowResults, e.Kind)
	}
}
