package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/models"
	"github.com/google/uuid"
)

// State names one stage of the extraction state machine.
type State string

const (
	StateIdle           State = "idle"
	StateStarting       State = "starting"
	StateAuthenticating State = "authenticating"
	StateNavigating     State = "navigating"
	StateExtracting     State = "extracting"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
	StateCancelled      State = "cancelled"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Run is the handle to one end-to-end extraction attempt. At most one run
// is active at a time; the orchestrator rejects overlapping starts.
type Run struct {
	// ID uniquely identifies the run.
	ID string

	// StartedAt is when the run was accepted.
	StartedAt time.Time

	mu     sync.RWMutex
	state  State
	err    error
	table  *models.VariableTable
	events *EventLog
	cancel context.CancelFunc
	done   chan struct{}
}

func newRun(cancel context.CancelFunc) *Run {
	return &Run{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		state:     StateStarting,
		events:    NewEventLog(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// State returns the run's current state.
func (r *Run) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Err returns the failure cause for a run in StateFailed, nil otherwise.
func (r *Run) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Table returns the extracted variable table. Non-nil only once the run has
// reached StateCompleted; the caller treats it read-only.
func (r *Run) Table() *models.VariableTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state != StateCompleted {
		return nil
	}
	return r.table
}

// Events returns a snapshot of the run's log entries, in order.
func (r *Run) Events() []Event {
	return r.events.Snapshot()
}

// Subscribe returns a live channel of events appended after the call.
func (r *Run) Subscribe() <-chan Event {
	return r.events.Subscribe()
}

// Follow returns a channel that replays the run's event history and then
// streams new events. Use this when the run may already be under way.
func (r *Run) Follow() <-chan Event {
	return r.events.Follow()
}

// Cancel requests cooperative cancellation. The worker aborts at its next
// poll checkpoint; the session is closed before the run becomes Cancelled.
func (r *Run) Cancel() {
	r.cancel()
}

// Done returns a channel closed when the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run is terminal and returns its final state.
func (r *Run) Wait() State {
	<-r.done
	return r.State()
}

func (r *Run) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Run) finish(s State, err error, table *models.VariableTable) {
	r.mu.Lock()
	r.state = s
	r.err = err
	r.table = table
	r.mu.Unlock()
}
