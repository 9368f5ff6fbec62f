// Package status carries progress and outcome events from long-running
// history operations to whoever displays them.
package status

import (
	"sync"

	"github.com/rs/zerolog"
)

// Level is the kind of a status event.
type Level string

const (
	Busy    Level = "busy"
	Success Level = "success"
	Error   Level = "error"
	Info    Level = "info"
)

// Event is a single status message.
type Event struct {
	Status      Level          `json:"status"`
	Message     string         `json:"message"`
	Cancellable bool           `json:"cancellable,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// Emitter receives status events. Emit must not block.
type Emitter interface {
	Emit(Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(Event) {}

// Bus is an in-process pub-sub backed by a buffered channel.
type Bus struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// NewBus creates a bus with the given buffer size.
func NewBus(buffer int) *Bus {
	return &Bus{ch: make(chan Event, buffer)}
}

// Emit enqueues the event without blocking; it is dropped when the buffer
// is full.
func (b *Bus) Emit(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.ch <- evt:
	default:
	}
}

// Close ends the subscription channel. Later events are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}

// Subscribe returns a read-only channel for consumers.
func (b *Bus) Subscribe() <-chan Event {
	return b.ch
}

// Logger writes events to a zerolog logger.
type Logger struct {
	Log zerolog.Logger
}

func (l Logger) Emit(evt Event) {
	var e *zerolog.Event
	switch evt.Status {
	case Error:
		e = l.Log.Error()
	case Busy:
		e = l.Log.Debug()
	default:
		e = l.Log.Info()
	}
	e.Str("status", string(evt.Status)).
		Bool("cancellable", evt.Cancellable).
		Fields(evt.Data).
		Msg(evt.Message)
}

// Multi fans events out to several emitters.
type Multi []Emitter

func (m Multi) Emit(evt Event) {
	for _, e := range m {
		e.Emit(evt)
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Last returns the most recent event with the given level.
func (r *Recorder) Last(level Level) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Status == level {
			return r.events[i], true
		}
	}
	return Event{}, false
}
