package forecast

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwwmbm/skycast/internal/geo"
)

// Client is the forecast data source contract.
type Client interface {
	FetchDaily(ctx context.Context, lat, lon float64, days int) (*DailyForecast, error)
	FetchHourly(ctx context.Context, lat, lon float64, hours int) (*HourlyForecast, error)
}

// Options tunes an Orchestrator. Zero values select the defaults.
type Options struct {
	Days         int           // default 14
	Hours        int           // default 48
	FetchTimeout time.Duration // default 30s
}

// Orchestrator turns coordinate changes into forecast state. Each coordinate
// change dispatches one joined daily+hourly fetch; results of superseded
// dispatches are discarded so state always reflects the most recently
// requested coordinate.
type Orchestrator struct {
	client Client
	opts   Options

	mu       sync.Mutex
	notifyMu sync.Mutex
	gen      uint64
	coord    geo.Coordinate
	hasCoord bool
	state    State
	subs     map[int]func(State)
	nextSub  int
	closed   bool
}

// NewOrchestrator creates an Orchestrator around the given client.
func NewOrchestrator(client Client, opts Options) *Orchestrator {
	if opts.Days <= 0 {
		opts.Days = 14
	}
	if opts.Hours <= 0 {
		opts.Hours = 48
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	return &Orchestrator{
		client: client,
		opts:   opts,
		subs:   make(map[int]func(State)),
	}
}

// State returns the current forecast state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe registers a state-change callback and returns its cancel func.
// Callbacks run outside the orchestrator lock, serialized in state order;
// they must not block for long or call back into the orchestrator.
func (o *Orchestrator) Subscribe(fn func(State)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return func() {}
	}
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

// SetCoordinate installs a new active coordinate and dispatches a fetch for
// it. Loading is raised and any previous error cleared immediately; the
// previously displayed data is kept until fresh data lands (no flicker).
func (o *Orchestrator) SetCoordinate(c geo.Coordinate) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.coord = c
	o.hasCoord = true
	o.dispatchLocked(c)
}

// Refresh re-dispatches a fetch for the current coordinate. Used by manual
// refresh affordances; a no-op before the first coordinate arrives.
func (o *Orchestrator) Refresh() {
	o.mu.Lock()
	if o.closed || !o.hasCoord {
		o.mu.Unlock()
		return
	}
	o.dispatchLocked(o.coord)
}

// dispatchLocked bumps the generation, flips loading state, and starts the
// fetch. The caller must hold o.mu; it is released here. The notify mutex is
// taken before o.mu is dropped so subscribers see snapshots in state order.
func (o *Orchestrator) dispatchLocked(c geo.Coordinate) {
	o.gen++
	gen := o.gen
	o.state.Loading = true
	o.state.Error = ""
	st := o.state
	subs := o.subscribersLocked()
	o.notifyMu.Lock()
	o.mu.Unlock()

	notify(subs, st)
	o.notifyMu.Unlock()
	go o.fetch(gen, c)
}

// fetch runs the joined daily+hourly fetch and applies the result only if
// this dispatch is still the latest.
func (o *Orchestrator) fetch(gen uint64, c geo.Coordinate) {
	ctx, cancel := context.WithTimeout(context.Background(), o.opts.FetchTimeout)
	defer cancel()

	var (
		daily  *DailyForecast
		hourly *HourlyForecast
	)

	// Both requests run in parallel against the same coordinate; either
	// failure fails the pair.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := o.client.FetchDaily(gctx, c.Latitude, c.Longitude, o.opts.Days)
		daily = d
		return err
	})
	g.Go(func() error {
		h, err := o.client.FetchHourly(gctx, c.Latitude, c.Longitude, o.opts.Hours)
		hourly = h
		return err
	})
	err := g.Wait()

	o.mu.Lock()
	if o.closed || gen != o.gen {
		o.mu.Unlock()
		log.Printf("DEBUG: discarding stale forecast result for %q", c.Label)
		return
	}

	o.state.Loading = false
	if err != nil {
		log.Printf("forecast fetch failed for %q: %v", c.Label, err)
		o.state.Error = "Failed to load forecast: " + err.Error()
	} else {
		o.state.Daily = daily
		o.state.Hourly = hourly
		o.state.Error = ""
	}
	st := o.state
	subs := o.subscribersLocked()
	o.notifyMu.Lock()
	o.mu.Unlock()

	notify(subs, st)
	o.notifyMu.Unlock()
}

// Close tears the orchestrator down. No state mutation or subscriber
// callback happens after Close; in-flight fetches settle into the void.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.gen++
	o.subs = nil
}

func (o *Orchestrator) subscribersLocked() []func(State) {
	out := make([]func(State), 0, len(o.subs))
	for _, fn := range o.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(State), st State) {
	for _, fn := range subs {
		fn(st)
	}
}
