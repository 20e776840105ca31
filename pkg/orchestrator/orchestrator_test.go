package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/config"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/models"
)

// fakeSession counts how many handles are alive so tests can prove the
// orchestrator never leaks one.
type fakeSession struct {
	backend *fakeBackend
	once    sync.Once
}

func (s *fakeSession) Close() error {
	s.once.Do(func() {
		s.backend.mu.Lock()
		s.backend.open--
		s.backend.mu.Unlock()
	})
	return nil
}

type fakeBackend struct {
	mu      sync.Mutex
	open    int
	opened  int
	openErr error
}

func (b *fakeBackend) Open(ctx context.Context, visible bool) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.open++
	b.opened++
	return &fakeSession{backend: b}, nil
}

func (b *fakeBackend) liveSessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// phaseScript returns its queued errors one call at a time, then nil.
type phaseScript struct {
	mu    sync.Mutex
	errs  []error
	calls int

	// block, when set, is closed by the test to release a call that
	// first signals entered.
	entered chan struct{}
	block   chan struct{}
}

func (p *phaseScript) next(ctx context.Context) error {
	p.mu.Lock()
	idx := p.calls
	p.calls++
	entered, block := p.entered, p.block
	p.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if idx < len(p.errs) {
		return p.errs[idx]
	}
	return nil
}

func (p *phaseScript) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeAuth struct{ phaseScript }

func (a *fakeAuth) Login(ctx context.Context, _ Session, _ config.Credentials) error {
	return a.next(ctx)
}

type fakeNav struct{ phaseScript }

func (n *fakeNav) OpenProject(ctx context.Context, _ Session, _ models.ProjectReference) error {
	return n.next(ctx)
}

type fakeExtract struct {
	phaseScript
	table *models.VariableTable
}

func (e *fakeExtract) Extract(ctx context.Context, _ Session, project models.ProjectReference) (*models.VariableTable, error) {
	if err := e.next(ctx); err != nil {
		return nil, err
	}
	if e.table != nil {
		return e.table, nil
	}
	t := models.NewVariableTable(project.String())
	t.Append(models.NewVariableRecord("I0.0", "Emergency stop", "1"))
	return t, nil
}

type harness struct {
	backend *fakeBackend
	auth    *fakeAuth
	nav     *fakeNav
	extract *fakeExtract
	orch    *Orchestrator
}

func newHarness() *harness {
	h := &harness{
		backend: &fakeBackend{},
		auth:    &fakeAuth{},
		nav:     &fakeNav{},
		extract: &fakeExtract{},
	}
	h.orch = New(Deps{
		Backend:       h.backend,
		Authenticator: h.auth,
		Navigator:     h.nav,
		Extractor:     h.extract,
	}, nil)
	return h
}

func runConfig() RunConfig {
	return RunConfig{
		Credentials: config.Credentials{Email: "user@example.com", Password: "secret"},
		Project:     models.ProjectReference("P-4711"),
		MaxRetries:  2,
		RetryDelay:  time.Millisecond,
	}
}

func TestRunCompletes(t *testing.T) {
	h := newHarness()

	run, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, run.Wait())
	require.NotNil(t, run.Table())
	assert.Equal(t, 1, run.Table().Len())
	assert.NoError(t, run.Err())
	assert.Equal(t, 0, h.backend.liveSessions())
}

func TestStartValidatesInput(t *testing.T) {
	h := newHarness()

	cfg := runConfig()
	cfg.Credentials.Email = ""
	_, err := h.orch.Start(context.Background(), cfg)
	assert.Error(t, err)

	cfg = runConfig()
	cfg.Credentials.Password = ""
	_, err = h.orch.Start(context.Background(), cfg)
	assert.Error(t, err)

	cfg = runConfig()
	cfg.Project = ""
	_, err = h.orch.Start(context.Background(), cfg)
	assert.Error(t, err)

	assert.Equal(t, 0, h.backend.opened)
}

func TestStartRejectsConcurrentRun(t *testing.T) {
	h := newHarness()
	h.auth.entered = make(chan struct{}, 1)
	h.auth.block = make(chan struct{})

	run, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)
	<-h.auth.entered

	_, err = h.orch.Start(context.Background(), runConfig())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(h.auth.block)
	assert.Equal(t, StateCompleted, run.Wait())

	// A finished run no longer blocks new starts.
	run2, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, run2.Wait())
}

func TestTransientAuthFailureRetriedToSuccess(t *testing.T) {
	h := newHarness()
	h.auth.errs = []error{ErrAuthTimeout}

	run, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, run.Wait())
	assert.Equal(t, 2, h.auth.callCount())
}

// TestAuthRetrySucceedsThenExtractsFullTable walks the happy path with a
// bumpy sign-in: the first attempt times out, the second succeeds, and the
// run still delivers the full table in source order.
func TestAuthRetrySucceedsThenExtractsFullTable(t *testing.T) {
	h := newHarness()
	h.auth.errs = []error{ErrAuthTimeout}

	table := models.NewVariableTable("P-4711")
	table.Append(models.NewVariableRecord("I0.0", "Emergency stop", "1"))
	table.Append(models.NewVariableRecord("Q2.4", "Conveyor motor", "2"))
	table.Append(models.NewVariableRecord("MW10", "Cycle counter", "3"))
	h.extract.table = table

	run, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)

	require.Equal(t, StateCompleted, run.Wait())
	assert.Equal(t, 2, h.auth.callCount())
	assert.Equal(t, 1, h.nav.callCount())
	assert.Equal(t, 1, h.extract.callCount())

	got := run.Table()
	require.NotNil(t, got)
	require.Equal(t, 3, got.Len())
	var addrs []string
	for _, r := range got.Records {
		addrs = append(addrs, r.Address)
	}
	assert.Equal(t, []string{"I0.0", "Q2.4", "MW10"}, addrs)
	assert.Equal(t, 0, h.backend.liveSessions())
}

func TestRetryBudgetIsTotalAttempts(t *testing.T) {
	h := newHarness()
	h.auth.errs = []error{ErrAuthTimeout, ErrAuthTimeout, ErrAuthTimeout}

	cfg := runConfig()
	cfg.MaxRetries = 3
	run, err := h.orch.Start(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, run.Wait())
	assert.Equal(t, 3, h.auth.callCount())
	assert.ErrorIs(t, run.Err(), ErrAuthTimeout)
	assert.Equal(t, 0, h.backend.liveSessions())
}

func TestInvalidCredentialsFailImmediately(t *testing.T) {
	h := newHarness()
	h.auth.errs = []error{ErrInvalidCredentials}

	run, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)

	assert.Equal(t, StateFailed, run.Wait())
	assert.Equal(t, 1, h.auth.callCount())
	assert.ErrorIs(t, run.Err(), ErrInvalidCredentials)
}

func TestProjectNotFoundFailsImmediately(t *testing.T) {
	h := newHarness()
	h.nav.errs = []error{ErrProjectNotFound}

	run, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)

	assert.Equal(t, StateFailed, run.Wait())
	assert.Equal(t, 1, h.nav.callCount())
	assert.Equal(t, 0, h.extract.callCount())
}

func TestNavigationTimeoutRetried(t *testing.T) {
	h := newHarness()
	h.nav.errs = []error{ErrLoadTimeout}

	run, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, run.Wait())
	assert.Equal(t, 2, h.nav.callCount())
}

func TestExtractionNeverRetried(t *testing.T) {
	h := newHarness()
	h.extract.errs = []error{ErrSchemaMismatch}

	run, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)

	assert.Equal(t, StateFailed, run.Wait())
	assert.Equal(t, 1, h.extract.callCount())
	assert.ErrorIs(t, run.Err(), ErrSchemaMismatch)
	assert.Nil(t, run.Table())
}

func TestCancelDuringNavigation(t *testing.T) {
	h := newHarness()
	h.nav.entered = make(chan struct{}, 1)
	h.nav.block = make(chan struct{})

	run, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)

	<-h.nav.entered
	h.orch.Cancel()

	assert.Equal(t, StateCancelled, run.Wait())
	assert.NoError(t, run.Err())
	assert.Nil(t, run.Table())
	assert.Equal(t, 0, h.backend.liveSessions())
	assert.Equal(t, 0, h.extract.callCount())
}

func TestBackendOpenFailure(t *testing.T) {
	h := newHarness()
	h.backend.openErr = errors.New("driver exploded")

	run, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)

	assert.Equal(t, StateFailed, run.Wait())
	assert.ErrorContains(t, run.Err(), "driver exploded")
	assert.Equal(t, 0, h.auth.callCount())
}

func TestSessionClosedOnEveryOutcome(t *testing.T) {
	outcomes := []struct {
		name  string
		wire  func(h *harness)
		state State
	}{
		{"completed", func(h *harness) {}, StateCompleted},
		{"auth failed", func(h *harness) {
			h.auth.errs = []error{ErrInvalidCredentials}
		}, StateFailed},
		{"extract failed", func(h *harness) {
			h.extract.errs = []error{ErrSchemaMismatch}
		}, StateFailed},
	}

	for _, tc := range outcomes {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			tc.wire(h)

			run, err := h.orch.Start(context.Background(), runConfig())
			require.NoError(t, err)
			assert.Equal(t, tc.state, run.Wait())
			assert.Equal(t, 0, h.backend.liveSessions())
		})
	}
}

func TestStateProgressionEvents(t *testing.T) {
	h := newHarness()

	run, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)
	require.Equal(t, StateCompleted, run.Wait())

	var phases []State
	for _, e := range run.Events() {
		if len(phases) == 0 || phases[len(phases)-1] != e.Phase {
			phases = append(phases, e.Phase)
		}
	}
	assert.Equal(t, []State{
		StateStarting, StateAuthenticating, StateNavigating, StateExtracting, StateCompleted,
	}, phases)
}

func TestSubscribeStreamsUntilTerminal(t *testing.T) {
	h := newHarness()
	h.auth.entered = make(chan struct{}, 1)
	h.auth.block = make(chan struct{})

	run, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)
	<-h.auth.entered

	sub := run.Subscribe()
	close(h.auth.block)

	var seen []Event
	for e := range sub {
		seen = append(seen, e)
	}
	assert.Equal(t, StateCompleted, run.State())
	assert.NotEmpty(t, seen)
}

func TestFollowReplaysEventsBeforeTheCall(t *testing.T) {
	h := newHarness()
	h.nav.entered = make(chan struct{}, 1)
	h.nav.block = make(chan struct{})

	run, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)
	<-h.nav.entered

	// By now Starting and Authenticating have already been logged.
	follow := run.Follow()
	close(h.nav.block)

	var seen []Event
	for e := range follow {
		seen = append(seen, e)
	}
	require.Equal(t, StateCompleted, run.Wait())

	var phases []State
	for _, e := range seen {
		if len(phases) == 0 || phases[len(phases)-1] != e.Phase {
			phases = append(phases, e.Phase)
		}
	}
	assert.Equal(t, []State{
		StateStarting, StateAuthenticating, StateNavigating, StateExtracting, StateCompleted,
	}, phases)
}

func TestFollowAfterTerminalReplaysFullHistory(t *testing.T) {
	h := newHarness()

	run, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)
	require.Equal(t, StateCompleted, run.Wait())

	var seen []Event
	for e := range run.Follow() {
		seen = append(seen, e)
	}
	assert.Equal(t, run.Events(), seen)
}

func TestOrchestratorStateReflectsActiveRun(t *testing.T) {
	h := newHarness()
	assert.Equal(t, StateIdle, h.orch.State())

	h.auth.entered = make(chan struct{}, 1)
	h.auth.block = make(chan struct{})

	run, err := h.orch.Start(context.Background(), runConfig())
	require.NoError(t, err)
	<-h.auth.entered
	assert.Equal(t, StateAuthenticating, h.orch.State())

	close(h.auth.block)
	run.Wait()
	assert.Equal(t, StateCompleted, h.orch.State())
}

func TestCancellationClassification(t *testing.T) {
	assert.True(t, IsCancellation(context.Canceled))
	assert.True(t, IsCancellation(fmt.Errorf("job 2: %w", context.Canceled)))
	assert.True(t, IsCancellation(context.DeadlineExceeded))
	assert.False(t, IsCancellation(ErrAuthTimeout))
	assert.False(t, IsCancellation(nil))
}

func TestTransientClassification(t *testing.T) {
	assert.True(t, Transient(ErrAuthTimeout))
	assert.True(t, Transient(ErrLoadTimeout))
	assert.False(t, Transient(ErrInvalidCredentials))
	assert.False(t, Transient(ErrProjectNotFound))
	assert.False(t, Transient(ErrSchemaMismatch))
	assert.False(t, Transient(errors.New("anything else")))
}
