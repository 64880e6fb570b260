// Package events carries the appraise audit stream: a small in-memory
// bus, the typed payloads that ride it, and a ring of recent events
// backing the gateway's history endpoint.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var ErrBusClosed = errors.New("event bus is closed")

// EventType represents the type of event.
type EventType string

const (
	// Task lifecycle
	EventTaskCreated EventType = "task.created"
	EventTaskDeleted EventType = "task.deleted"

	// Judgments
	EventEvaluationSaved EventType = "evaluation.saved"

	// Results
	EventExportWritten EventType = "export.written"

	// Evaluation walk
	EventSessionOpened EventType = "session.opened"
	EventSessionMoved  EventType = "session.moved"
)

// EventSource identifies the component that emitted an event.
type EventSource string

const (
	SourceCLI     EventSource = "cli"
	SourceGateway EventSource = "gateway"
	SourceTUI     EventSource = "tui"
	SourceMCP     EventSource = "mcp"
)

// Event represents an event in the system. TaskID scopes the event to one
// evaluation task when it concerns one.
type Event struct {
	ID        string         `json:"id"`
	TaskID    string         `json:"task_id,omitempty"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    EventSource    `json:"source"`
	Payload   map[string]any `json:"payload"`
}

var eventSeq uint64

// NewEvent creates a new event with the current timestamp. IDs order
// events from the same process even when timestamps collide.
func NewEvent(eventType EventType, source EventSource, payload map[string]any) Event {
	return Event{
		ID:        fmt.Sprintf("%d-%d", time.Now().UnixNano(), atomic.AddUint64(&eventSeq, 1)),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    source,
		Payload:   payload,
	}
}

// Subscriber is a function that receives events.
type Subscriber func(Event)

type subscription struct {
	eventTypes []EventType
	handler    Subscriber
	inline     bool
}

// matches reports whether the subscription wants the event. An empty
// type list subscribes to everything.
func (s *subscription) matches(event Event) bool {
	if len(s.eventTypes) == 0 {
		return true
	}
	for _, t := range s.eventTypes {
		if t == event.Type {
			return true
		}
	}
	return false
}

// Bus fans published events out to subscribers and keeps the recent
// tail in a ring.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscription
	nextID      int
	eventChan   chan Event
	ring        *ring
	closed      bool
	done        chan struct{}
}

// NewBus creates a bus whose publish buffer and history ring both hold
// bufferSize events.
func NewBus(bufferSize int) *Bus {
	b := &Bus{
		subscribers: make(map[int]*subscription),
		eventChan:   make(chan Event, bufferSize),
		ring:        newRing(bufferSize),
		done:        make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *Bus) dispatch() {
	for {
		select {
		case event := <-b.eventChan:
			b.ring.add(event)
			b.notifySubscribers(event)
		case <-b.done:
			return
		}
	}
}

func (b *Bus) notifySubscribers(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if !sub.matches(event) {
			continue
		}
		// Inline handlers run on the dispatch goroutine and must not block.
		if sub.inline {
			sub.handler(event)
		} else {
			go sub.handler(event)
		}
	}
}

func (b *Bus) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// Publish sends an event to the bus. Drops the event when the buffer is full.
func (b *Bus) Publish(event Event) {
	if b.isClosed() {
		return
	}

	select {
	case b.eventChan <- event:
	default:
	}
}

// PublishAsync sends an event, waiting for buffer space until ctx ends.
// For events that must not be dropped.
func (b *Bus) PublishAsync(ctx context.Context, event Event) error {
	if b.isClosed() {
		return ErrBusClosed
	}

	select {
	case b.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a handler for specific event types. Each delivery runs
// on its own goroutine. Returns an unsubscribe function.
func (b *Bus) Subscribe(handler Subscriber, eventTypes ...EventType) func() {
	return b.subscribe(handler, false, eventTypes...)
}

func (b *Bus) subscribe(handler Subscriber, inline bool, eventTypes ...EventType) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	b.subscribers[id] = &subscription{
		eventTypes: eventTypes,
		handler:    handler,
		inline:     inline,
	}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers, id)
	}
}

// SubscribeChan returns a channel that receives events in publish order.
// Events are dropped when the channel is full. The cancel func closes the
// channel; unsubscribing first makes that safe because inline delivery
// cannot outlive the subscription.
func (b *Bus) SubscribeChan(bufSize int, eventTypes ...EventType) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)

	unsubscribe := b.subscribe(func(e Event) {
		select {
		case ch <- e:
		default:
		}
	}, true, eventTypes...)

	return ch, func() {
		unsubscribe()
		close(ch)
	}
}

// History returns up to limit recent events, oldest first.
func (b *Bus) History(limit int) []Event {
	return b.ring.get(limit)
}

// Close shuts down the event bus. Events still in the publish buffer are
// dropped. eventChan stays open so a publish racing the close cannot
// panic; the dispatch goroutine exits through done.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	close(b.done)
}

// ring is a fixed-size buffer of the most recent events.
type ring struct {
	mu     sync.RWMutex
	events []Event
	size   int
	pos    int
	count  int
}

func newRing(size int) *ring {
	return &ring{
		events: make([]Event, size),
		size:   size,
	}
}

func (r *ring) add(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.pos] = event
	r.pos = (r.pos + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

func (r *ring) get(n int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}

	out := make([]Event, n)
	start := (r.pos - n + r.size) % r.size
	for i := range out {
		out[i] = r.events[(start+i)%r.size]
	}
	return out
}
