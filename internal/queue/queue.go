// Package queue holds the process-wide queue of internal events that
// components append to and the status bar drains.
package queue

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventKind classifies an InternalEvent.
type EventKind int

const (
	// EventPushFailed: a push ended with an error.
	EventPushFailed EventKind = iota
	// EventError: any other error worth showing.
	EventError
	// EventInfo: informational message.
	EventInfo
)

func (k EventKind) String() string {
	switch k {
	case EventPushFailed:
		return "push_failed"
	case EventError:
		return "error"
	case EventInfo:
		return "info"
	default:
		return "unknown"
	}
}

// InternalEvent is a message for the user.
type InternalEvent struct {
	Kind    EventKind
	Message string
	Time    time.Time
}

// IsError reports whether the event describes a failure.
func (e InternalEvent) IsError() bool {
	return e.Kind == EventPushFailed || e.Kind == EventError
}

// DefaultBufferSize is used when New is given a non-positive size.
const DefaultBufferSize = 64

// Queue is a multi-producer, single-consumer event queue. Push never
// blocks: when the buffer is full the event is dropped and counted.
type Queue struct {
	ch      chan InternalEvent
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// New creates a queue buffering up to size events.
func New(size int) *Queue {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Queue{ch: make(chan InternalEvent, size)}
}

// Push appends ev. A zero Time is set to now.
func (q *Queue) Push(ev InternalEvent) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.dropped.Add(1)
		return
	}
	select {
	case q.ch <- ev:
	default:
		q.dropped.Add(1)
	}
}

// Events returns the channel to consume events from. It is closed by Close.
func (q *Queue) Events() <-chan InternalEvent {
	return q.ch
}

// Drain returns all buffered events without blocking.
func (q *Queue) Drain() []InternalEvent {
	var out []InternalEvent
	for {
		select {
		case ev, ok := <-q.ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Len returns the number of buffered events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Dropped returns how many events were discarded because the queue was
// full or closed.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Close stops accepting events and closes the events channel. Buffered
// events can still be drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
