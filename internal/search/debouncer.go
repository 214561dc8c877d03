package search

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cwwmbm/skycast/internal/geo"
)

// Searcher is the place-search contract.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]geo.GeocodeResult, error)
}

// SavedLister supplies the saved-location list surfaced on empty focus.
type SavedLister interface {
	List() []geo.SavedLocation
}

// EffectKind says what the suggestion surface should show.
type EffectKind string

const (
	// ShowSaved surfaces the saved-location list (plus the embedder's
	// "use current location" affordance).
	ShowSaved EffectKind = "show-saved"
	// ShowResults surfaces search results; an empty slice means "no results".
	ShowResults EffectKind = "show-results"
	// ShowNothing closes the suggestion surface.
	ShowNothing EffectKind = "show-nothing"
)

// Effect is one instruction for the suggestion surface.
type Effect struct {
	Kind    EffectKind
	Query   string
	Saved   []geo.SavedLocation
	Results []geo.GeocodeResult
}

// Config tunes a Debouncer. Zero values select the defaults.
type Config struct {
	Debounce      time.Duration // keystroke settle time, default 250ms
	BlurGrace     time.Duration // close delay after blur, default 200ms
	Limit         int           // max search results, default 5
	SearchTimeout time.Duration // bound on one search call, default 10s
}

// Debouncer turns free-text input into rate-limited place searches, or the
// saved-location list when the query is empty. Effects are delivered to the
// sink in arrival order; superseded timers and in-flight searches are
// disregarded (last write wins).
type Debouncer struct {
	searcher Searcher
	saved    SavedLister
	sink     func(Effect)
	cfg      Config

	mu         sync.Mutex
	deliverMu  sync.Mutex
	gen        uint64
	query      string
	focused    bool
	timer      *time.Timer
	graceTimer *time.Timer
	closed     bool
}

// NewDebouncer creates a Debouncer delivering effects to sink.
func NewDebouncer(searcher Searcher, saved SavedLister, sink func(Effect), cfg Config) *Debouncer {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 250 * time.Millisecond
	}
	if cfg.BlurGrace <= 0 {
		cfg.BlurGrace = 200 * time.Millisecond
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 10 * time.Second
	}
	return &Debouncer{
		searcher: searcher,
		saved:    saved,
		sink:     sink,
		cfg:      cfg,
	}
}

// Focus marks the input focused. With an empty query the saved list is
// surfaced immediately, no debounce.
func (d *Debouncer) Focus() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.focused = true
	d.stopGraceLocked()
	empty := strings.TrimSpace(d.query) == ""
	d.mu.Unlock()

	if empty {
		d.emitSaved()
	}
}

// SetQuery registers a keystroke. Empty queries surface the saved list (when
// focused) without debouncing; non-empty queries restart the debounce timer,
// and only the value live at expiry is searched.
func (d *Debouncer) SetQuery(q string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.query = q
	d.gen++ // disregard any pending timer or in-flight search
	d.stopTimerLocked()

	trimmed := strings.TrimSpace(q)
	if trimmed == "" {
		focused := d.focused
		d.mu.Unlock()
		if focused {
			d.emitSaved()
		} else {
			d.emit(Effect{Kind: ShowNothing})
		}
		return
	}

	gen := d.gen
	d.timer = time.AfterFunc(d.cfg.Debounce, func() {
		d.fire(gen, trimmed)
	})
	d.mu.Unlock()
}

// fire runs the search for the query captured when the timer elapsed, and
// applies the result only if no newer keystroke or blur happened since.
func (d *Debouncer) fire(gen uint64, query string) {
	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SearchTimeout)
	defer cancel()

	results, err := d.searcher.Search(ctx, query, d.cfg.Limit)
	if err != nil {
		// Degrades to "no results"; search failures are never user-visible.
		log.Printf("search: query %q failed: %v", query, err)
		results = nil
	}

	d.deliver(Effect{Kind: ShowResults, Query: query, Results: results}, func() bool {
		return gen == d.gen
	})
}

// Blur marks the input unfocused. The suggestion surface closes after a short
// grace delay so a concurrent tap on a suggestion is not lost; pending work
// is disregarded immediately.
func (d *Debouncer) Blur() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.focused = false
	d.gen++
	d.stopTimerLocked()
	d.stopGraceLocked()
	d.graceTimer = time.AfterFunc(d.cfg.BlurGrace, func() {
		d.deliver(Effect{Kind: ShowNothing}, func() bool {
			return !d.focused
		})
	})
	d.mu.Unlock()
}

// Close tears the debouncer down; no effect is delivered afterwards.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.gen++
	d.stopTimerLocked()
	d.stopGraceLocked()
}

func (d *Debouncer) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) stopGraceLocked() {
	if d.graceTimer != nil {
		d.graceTimer.Stop()
		d.graceTimer = nil
	}
}

func (d *Debouncer) emitSaved() {
	var saved []geo.SavedLocation
	if d.saved != nil {
		saved = d.saved.List()
	}
	d.emit(Effect{Kind: ShowSaved, Saved: saved})
}

func (d *Debouncer) emit(e Effect) {
	d.deliver(e, nil)
}

// deliver sinks the effect unless the debouncer closed or current reports it
// superseded. The check and the sink call happen under the delivery mutex so
// a stale effect can never land after a newer one. current runs under d.mu.
func (d *Debouncer) deliver(e Effect, current func() bool) {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	d.mu.Lock()
	ok := !d.closed && (current == nil || current())
	d.mu.Unlock()

	if !ok || d.sink == nil {
		return
	}
	d.sink(e)
}
