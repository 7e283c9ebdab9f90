// Package events carries session state changes to the gateway's observers:
// WebSocket clients, the on-disk journal and the /api/events feed.
package events

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event.
type EventType string

const (
	EventHistoryAppended EventType = "history.appended"
	EventHistoryCleared  EventType = "history.cleared"

	EventUserSignedIn  EventType = "user.signed_in"
	EventUserSignedOut EventType = "user.signed_out"

	EventVariableSet   EventType = "variable.set"
	EventVariableUnset EventType = "variable.unset"

	// Plot ranges and display preferences.
	EventViewChanged EventType = "view.changed"
)

// EventSource identifies the component that emitted an event.
type EventSource string

const (
	SourceSession EventSource = "session"
	SourceGateway EventSource = "gateway"
)

// Event is one state change, stamped with the session it happened in.
type Event struct {
	ID        string         `json:"id"`
	Session   string         `json:"session,omitempty"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    EventSource    `json:"source"`
	Payload   map[string]any `json:"payload"`
}

// NewEvent creates an event with an untyped payload.
func NewEvent(eventType EventType, source EventSource, payload map[string]any) Event {
	return Event{
		ID:        generateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    source,
		Payload:   payload,
	}
}

func generateEventID() string {
	return "evt_" + uuid.New().String()[:8]
}

// Subscriber receives events in publish order.
type Subscriber func(Event)

// Filter selects events from the recent buffer. Zero fields match anything.
type Filter struct {
	Session string
	Types   []EventType
}

func (f Filter) matches(e Event) bool {
	if f.Session != "" && e.Session != f.Session {
		return false
	}
	return len(f.Types) == 0 || slices.Contains(f.Types, e.Type)
}

type subscription struct {
	filter  Filter
	handler Subscriber
	queue   chan Event
	done    chan struct{}
	once    sync.Once
}

func (s *subscription) run() {
	defer close(s.done)
	for e := range s.queue {
		s.handler(e)
	}
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.queue) })
}

// Bus fans events out to subscribers and keeps the most recent ones.
// Each subscriber has its own queue so a slow journal write never delays
// WebSocket clients; an overflowing queue drops the event.
type Bus struct {
	mu        sync.RWMutex
	subs      map[int]*subscription
	nextID    int
	queueSize int
	recent    *ring
	closed    bool
	dropped   atomic.Int64
}

// NewBus creates a bus that keeps size recent events and queues up to size
// events per subscriber.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = 1
	}
	return &Bus{
		subs:      make(map[int]*subscription),
		queueSize: size,
		recent:    newRing(size),
	}
}

// Publish records e and hands it to every matching subscriber. It never
// blocks and is a no-op after Close.
func (b *Bus) Publish(e Event) {
	if e.ID == "" {
		e.ID = generateEventID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	b.recent.add(e)
	for _, sub := range b.subs {
		if !sub.filter.matches(e) {
			continue
		}
		select {
		case sub.queue <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe registers handler for the given event types (all when none).
// The returned func unsubscribes and waits for queued events to be
// handled; it must not be called from within handler.
func (b *Bus) Subscribe(handler Subscriber, eventTypes ...EventType) func() {
	sub := &subscription{
		filter:  Filter{Types: eventTypes},
		handler: handler,
		queue:   make(chan Event, b.queueSize),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	go sub.run()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		sub.stop()
		b.mu.Unlock()
		<-sub.done
	}
}

// History returns up to limit recent events, oldest first.
func (b *Bus) History(limit int) []Event {
	return b.recent.get(limit, Filter{})
}

// Recent is History restricted to events matching f.
func (b *Bus) Recent(limit int, f Filter) []Event {
	return b.recent.get(limit, f)
}

// Dropped reports how many deliveries were lost to full subscriber queues.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close stops accepting events and waits for subscribers to drain.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*subscription, 0, len(b.subs))
	for id, sub := range b.subs {
		sub.stop()
		subs = append(subs, sub)
		delete(b.subs, id)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		<-sub.done
	}
}

// ring is a fixed-size buffer of the latest events.
type ring struct {
	mu     sync.RWMutex
	events []Event
	pos    int
	count  int
}

func newRing(size int) *ring {
	return &ring{events: make([]Event, size)}
}

func (r *ring) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.pos] = e
	r.pos = (r.pos + 1) % len(r.events)
	if r.count < len(r.events) {
		r.count++
	}
}

// get walks back from the newest event collecting up to n matches.
func (r *ring) get(n int, f Filter) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 {
		return nil
	}

	var out []Event
	size := len(r.events)
	for i := 1; i <= r.count && len(out) < n; i++ {
		e := r.events[(r.pos-i+size)%size]
		if f.matches(e) {
			out = append(out, e)
		}
	}
	slices.Reverse(out)
	return out
}
