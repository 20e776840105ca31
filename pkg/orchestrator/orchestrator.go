// Package orchestrator implements the extraction state machine. It owns the
// browser session for the duration of a run, sequences the authentication,
// navigation and extraction phases with bounded retries, and publishes
// progress through an append-only event log.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/config"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/models"
)

// Session is the opaque handle to one live browser connection. The active
// run owns it exclusively and the orchestrator guarantees it is closed on
// every terminal transition.
type Session interface {
	Close() error
}

// Backend opens browser sessions.
type Backend interface {
	Open(ctx context.Context, visible bool) (Session, error)
}

// Authenticator performs the identity-provider login inside the session.
type Authenticator interface {
	Login(ctx context.Context, s Session, creds config.Credentials) error
}

// Navigator drives the session to the project's variable table view and
// waits for it to stabilize.
type Navigator interface {
	OpenProject(ctx context.Context, s Session, project models.ProjectReference) error
}

// Extractor reads the rendered tables into a variable table. Must not
// return partial results: either a complete table or an error.
type Extractor interface {
	Extract(ctx context.Context, s Session, project models.ProjectReference) (*models.VariableTable, error)
}

// Deps bundles the collaborators a run is executed against. Production
// wiring comes from scrape.Pipeline; tests supply fakes.
type Deps struct {
	Backend       Backend
	Authenticator Authenticator
	Navigator     Navigator
	Extractor     Extractor
}

// DiagLogger mirrors run events into a diagnostic log. Optional.
type DiagLogger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// RunConfig parameterizes one extraction run. Credentials are borrowed for
// the duration of the run only and are never logged.
type RunConfig struct {
	Credentials config.Credentials
	Project     models.ProjectReference

	// Visible shows the browser window for debugging.
	Visible bool

	// MaxRetries is the total attempt count for the retryable phases.
	// Zero means DefaultMaxRetries.
	MaxRetries int

	// RetryDelay is the pause between attempts. Zero means
	// DefaultRetryDelay.
	RetryDelay time.Duration
}

// Defaults for run configuration.
const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 2 * time.Second
)

// Orchestrator is the control surface for extraction runs. Safe for
// concurrent use; only one run may be active at a time.
type Orchestrator struct {
	mu     sync.Mutex
	deps   Deps
	log    DiagLogger
	active *Run
}

// New creates an orchestrator around the given collaborators. log may be
// nil.
func New(deps Deps, log DiagLogger) *Orchestrator {
	return &Orchestrator{deps: deps, log: log}
}

// State returns the active run's state, or StateIdle when no run is active
// or the previous run has been consumed.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return StateIdle
	}
	return o.active.State()
}

// Start begins a new extraction run on its own worker goroutine and returns
// the handle immediately. Starting while a run is active fails with
// ErrAlreadyRunning; a finished previous run is replaced.
func (o *Orchestrator) Start(ctx context.Context, cfg RunConfig) (*Run, error) {
	if cfg.Credentials.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if cfg.Credentials.Password == "" {
		return nil, fmt.Errorf("password is required")
	}
	if cfg.Project == "" {
		return nil, fmt.Errorf("project reference is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active != nil && !o.active.State().Terminal() {
		return nil, ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := newRun(cancel)
	o.active = run

	go o.execute(runCtx, run, cfg)
	return run, nil
}

// Cancel cancels the active run, if any.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil && !o.active.State().Terminal() {
		o.active.Cancel()
	}
}

// execute drives one run through the state machine on the worker goroutine.
// All blocking waits happen here, never on the caller's goroutine.
func (o *Orchestrator) execute(ctx context.Context, run *Run, cfg RunConfig) {
	defer close(run.done)
	defer run.events.Close()

	o.transition(run, StateStarting, "Opening browser session")

	session, err := o.deps.Backend.Open(ctx, cfg.Visible)
	if err != nil {
		if ctx.Err() != nil {
			o.cancelled(run)
			return
		}
		o.failed(run, fmt.Errorf("session start: %w", err))
		return
	}
	// The session never outlives the run, whatever path ends it.
	defer session.Close()

	o.transition(run, StateAuthenticating, fmt.Sprintf("Signing in as %s", cfg.Credentials.Email))
	if err := o.withRetries(ctx, run, cfg, "sign-in", func() error {
		return o.deps.Authenticator.Login(ctx, session, cfg.Credentials)
	}); err != nil {
		if ctx.Err() != nil {
			o.cancelled(run)
			return
		}
		o.failed(run, err)
		return
	}
	o.emit(run, SeveritySuccess, "Signed in")

	o.transition(run, StateNavigating, fmt.Sprintf("Opening project %s", cfg.Project))
	if err := o.withRetries(ctx, run, cfg, "project load", func() error {
		return o.deps.Navigator.OpenProject(ctx, session, cfg.Project)
	}); err != nil {
		if ctx.Err() != nil {
			o.cancelled(run)
			return
		}
		o.failed(run, err)
		return
	}
	o.emit(run, SeveritySuccess, "Variable table view is ready")

	if ctx.Err() != nil {
		o.cancelled(run)
		return
	}

	// Extraction is never auto-retried: a structural failure here means
	// version skew, not a transient hiccup.
	o.transition(run, StateExtracting, "Reading variable tables")
	table, err := o.deps.Extractor.Extract(ctx, session, cfg.Project)
	if err != nil {
		if ctx.Err() != nil {
			o.cancelled(run)
			return
		}
		o.failed(run, err)
		return
	}

	run.finish(StateCompleted, nil, table)
	o.emit(run, SeveritySuccess, fmt.Sprintf("Extraction completed: %d variables", table.Len()))
	o.emitState(run, StateCompleted)
}

// withRetries runs a retryable phase up to cfg.MaxRetries attempts. Only
// transient causes consume further attempts; anything else fails
// immediately.
func (o *Orchestrator) withRetries(ctx context.Context, run *Run, cfg RunConfig, label string, phase func() error) error {
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = phase()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !Transient(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxRetries {
			break
		}

		o.emit(run, SeverityWarning,
			fmt.Sprintf("%s attempt %d/%d failed (%v), retrying", label, attempt, cfg.MaxRetries, lastErr))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.RetryDelay):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", label, cfg.MaxRetries, lastErr)
}

func (o *Orchestrator) transition(run *Run, s State, message string) {
	run.setState(s)
	run.events.Append(Event{Time: time.Now(), Phase: s, Severity: SeverityInfo, Message: message})
	if o.log != nil {
		o.log.Infof("[%s] %s", s, message)
	}
}

func (o *Orchestrator) emitState(run *Run, s State) {
	run.events.Append(Event{Time: time.Now(), Phase: s, Severity: SeverityInfo, Message: string(s)})
	if o.log != nil {
		o.log.Infof("run %s: %s", run.ID, s)
	}
}

func (o *Orchestrator) emit(run *Run, sev Severity, message string) {
	run.events.Append(Event{Time: time.Now(), Phase: run.State(), Severity: sev, Message: message})
	if o.log == nil {
		return
	}
	switch sev {
	case SeverityError:
		o.log.Errorf("%s", message)
	case SeverityWarning:
		o.log.Warnf("%s", message)
	case SeverityDebug:
		o.log.Debugf("%s", message)
	default:
		o.log.Infof("%s", message)
	}
}

func (o *Orchestrator) failed(run *Run, err error) {
	run.finish(StateFailed, err, nil)
	msg := err.Error()
	if hint := Remediation(err); hint != "" {
		msg = fmt.Sprintf("%s (%s)", msg, hint)
	}
	o.emit(run, SeverityError, msg)
	o.emitState(run, StateFailed)
}

func (o *Orchestrator) cancelled(run *Run) {
	run.finish(StateCancelled, nil, nil)
	o.emit(run, SeverityInfo, "Run cancelled")
	o.emitState(run, StateCancelled)
}

// IsCancellation reports whether an error is a context cancellation rather
// than a real failure.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
