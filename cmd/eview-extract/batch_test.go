package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/config"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/models"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/orchestrator"
)

type stubSession struct{}

func (stubSession) Close() error { return nil }

type stubBackend struct{}

func (stubBackend) Open(ctx context.Context, visible bool) (orchestrator.Session, error) {
	return stubSession{}, nil
}

type stubAuth struct{}

func (stubAuth) Login(ctx context.Context, _ orchestrator.Session, _ config.Credentials) error {
	return nil
}

type stubNav struct{}

func (stubNav) OpenProject(ctx context.Context, _ orchestrator.Session, _ models.ProjectReference) error {
	return nil
}

// stubExtract returns a one-row table per project and fires an optional
// hook on every call so tests can interleave side effects with jobs.
type stubExtract struct {
	mu     sync.Mutex
	calls  int
	onCall func()
}

func (e *stubExtract) Extract(ctx context.Context, _ orchestrator.Session, project models.ProjectReference) (*models.VariableTable, error) {
	e.mu.Lock()
	e.calls++
	hook := e.onCall
	e.mu.Unlock()
	if hook != nil {
		hook()
	}

	table := models.NewVariableTable(project.String())
	table.Append(models.NewVariableRecord("I0.0", "Emergency stop", "1"))
	return table, nil
}

func (e *stubExtract) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func newStubOrchestrator() (*orchestrator.Orchestrator, *stubExtract) {
	extract := &stubExtract{}
	orch := orchestrator.New(orchestrator.Deps{
		Backend:       stubBackend{},
		Authenticator: stubAuth{},
		Navigator:     stubNav{},
		Extractor:     extract,
	}, nil)
	return orch, extract
}

func writeBatchFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func testCreds() config.Credentials {
	return config.Credentials{Email: "user@example.com", Password: "secret"}
}

func testDefaults(outputDir string) batchDefaults {
	return batchDefaults{
		OutputDir:  outputDir,
		Formats:    []string{"json"},
		MaxRetries: 2,
	}
}

func TestRunBatchExtractsAllJobs(t *testing.T) {
	orch, extract := newStubOrchestrator()
	outDir := t.TempDir()
	path := writeBatchFile(t, "jobs:\n  - project: P-4711\n  - project: P-4712\n")

	err := runBatch(context.Background(), orch, path, testCreds(), testDefaults(outDir))
	require.NoError(t, err)
	assert.Equal(t, 2, extract.callCount())

	assert.FileExists(t, filepath.Join(outDir, "P-4711-variables.json"))
	assert.FileExists(t, filepath.Join(outDir, "P-4712-variables.json"))
}

func TestRunBatchStopsOnCancelledContext(t *testing.T) {
	orch, extract := newStubOrchestrator()
	outDir := t.TempDir()
	path := writeBatchFile(t, "jobs:\n  - project: P-4711\n  - project: P-4712\n")

	// The cancellation arrives while job 1 is still finishing, mirroring
	// an interrupt between jobs. Job 1 completes; job 2 must not start.
	ctx, cancel := context.WithCancel(context.Background())
	extract.onCall = cancel

	err := runBatch(ctx, orch, path, testCreds(), testDefaults(outDir))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, orchestrator.IsCancellation(err))
	assert.Equal(t, 1, extract.callCount())

	assert.FileExists(t, filepath.Join(outDir, "P-4711-variables.json"))
	assert.NoFileExists(t, filepath.Join(outDir, "P-4712-variables.json"))
}

func TestRunBatchRejectsFileWithoutJobs(t *testing.T) {
	orch, extract := newStubOrchestrator()
	path := writeBatchFile(t, "jobs: []\n")

	err := runBatch(context.Background(), orch, path, testCreds(), testDefaults(t.TempDir()))
	assert.Error(t, err)
	assert.Equal(t, 0, extract.callCount())
}

func TestRunBatchJobOverridesDefaults(t *testing.T) {
	orch, _ := newStubOrchestrator()
	defaultDir := t.TempDir()
	jobDir := filepath.Join(t.TempDir(), "custom")
	path := writeBatchFile(t,
		"jobs:\n  - project: P-4711\n    output: "+jobDir+"\n    formats: [csv]\n")

	err := runBatch(context.Background(), orch, path, testCreds(), testDefaults(defaultDir))
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(jobDir, "P-4711-variables.csv"))
	assert.NoFileExists(t, filepath.Join(defaultDir, "P-4711-variables.json"))
}
