package orchestrator

import (
	"sync"
	"time"
)

// Severity grades an event for the logs view.
type Severity string

const (
	SeverityDebug   Severity = "debug"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

// Event is one entry in a run's log stream.
type Event struct {
	// Time is when the event was recorded.
	Time time.Time

	// Phase is the run state the event was emitted from.
	Phase State

	// Severity grades the event.
	Severity Severity

	// Message is the human-readable text.
	Message string
}

// EventLog is an append-only event sequence. The worker goroutine appends;
// the presentation layer may read snapshots or subscribe concurrently.
type EventLog struct {
	mu     sync.RWMutex
	events []Event
	subs   []chan Event
	closed bool
}

// NewEventLog creates an empty event log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append records an event and fans it out to subscribers. Slow subscribers
// are skipped rather than blocking the worker.
func (l *EventLog) Append(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, e)
	for _, ch := range l.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Snapshot returns a copy of all events recorded so far, in order.
func (l *EventLog) Snapshot() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Subscribe returns a channel receiving events appended after the call.
// The channel is buffered; events overflowing the buffer are dropped for
// that subscriber, never lost from the log itself.
func (l *EventLog) Subscribe() <-chan Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Event, 256)
	if l.closed {
		close(ch)
		return ch
	}
	l.subs = append(l.subs, ch)
	return ch
}

// Follow returns a channel that first replays every event recorded so far,
// then streams events appended after the call. On a closed log the backlog
// is still replayed before the channel closes, so a late follower sees the
// complete history exactly once.
func (l *EventLog) Follow() <-chan Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	// The buffer covers the backlog so the replay never blocks under
	// the lock.
	ch := make(chan Event, len(l.events)+256)
	for _, e := range l.events {
		ch <- e
	}
	if l.closed {
		close(ch)
		return ch
	}
	l.subs = append(l.subs, ch)
	return ch
}

// Close closes all subscriber channels. Called once the run is terminal.
func (l *EventLog) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, ch := range l.subs {
		close(ch)
	}
	l.subs = nil
	l.closed = true
}
