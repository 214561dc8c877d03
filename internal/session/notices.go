package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notice is a transient, non-blocking advisory shown to the user.
type Notice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// NoticeCenter holds active notices and auto-clears each one after its TTL.
type NoticeCenter struct {
	ttl time.Duration

	mu      sync.Mutex
	notices []Notice
	timers  map[string]*time.Timer
	subs    map[int]func([]Notice)
	nextSub int
	closed  bool
}

// NewNoticeCenter creates a center with the given default TTL (5s when zero).
func NewNoticeCenter(ttl time.Duration) *NoticeCenter {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &NoticeCenter{
		ttl:    ttl,
		timers: make(map[string]*time.Timer),
		subs:   make(map[int]func([]Notice)),
	}
}

// Publish adds a notice and schedules its auto-clear. Returns the notice id.
func (n *NoticeCenter) Publish(text string) string {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return ""
	}
	id := uuid.NewString()
	n.notices = append(n.notices, Notice{ID: id, Text: text})
	n.timers[id] = time.AfterFunc(n.ttl, func() { n.Clear(id) })
	active := n.activeLocked()
	subs := n.subscribersLocked()
	n.mu.Unlock()

	for _, fn := range subs {
		fn(active)
	}
	return id
}

// Clear removes a notice early (or when its TTL fires).
func (n *NoticeCenter) Clear(id string) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	kept := n.notices[:0]
	removed := false
	for _, notice := range n.notices {
		if notice.ID == id {
			removed = true
			continue
		}
		kept = append(kept, notice)
	}
	n.notices = kept
	if !removed {
		n.mu.Unlock()
		return
	}
	active := n.activeLocked()
	subs := n.subscribersLocked()
	n.mu.Unlock()

	for _, fn := range subs {
		fn(active)
	}
}

// Active returns the notices currently on display.
func (n *NoticeCenter) Active() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.activeLocked()
}

// Subscribe registers a change callback and returns its cancel func.
func (n *NoticeCenter) Subscribe(fn func([]Notice)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return func() {}
	}
	id := n.nextSub
	n.nextSub++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Close cancels all pending clears; no callback fires afterwards.
func (n *NoticeCenter) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for _, t := range n.timers {
		t.Stop()
	}
	n.timers = nil
	n.subs = nil
}

func (n *NoticeCenter) activeLocked() []Notice {
	return append([]Notice(nil), n.notices...)
}

func (n *NoticeCenter) subscribersLocked() []func([]Notice) {
	out := make([]func([]Notice), 0, len(n.subs))
	for _, fn := range n.subs {
		out = append(out, fn)
	}
	return out
}
