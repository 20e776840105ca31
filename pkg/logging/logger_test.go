package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetLogging points the package at a fresh directory and re-arms the
// one-time directory init so each test starts clean.
func resetLogging(t *testing.T, dir string) {
	t.Helper()
	logDir = dir
	initOnce = sync.Once{}
	initErr = nil
}

func TestLoggersShareOneRunFile(t *testing.T) {
	resetLogging(t, t.TempDir())

	a, err := NewLogger("orchestrator")
	require.NoError(t, err)
	defer a.Close()

	b, err := NewLogger("scrape")
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, a.RunID(), b.RunID())
	assert.Equal(t, a.LogPath(), b.LogPath())
	assert.True(t, strings.HasSuffix(a.LogPath(), "-eview.log"))
}

func TestLogEntriesCarryComponentAndLevel(t *testing.T) {
	resetLogging(t, t.TempDir())

	l, err := NewLogger("extractor")
	require.NoError(t, err)

	l.Infof("read %d records", 42)
	l.Warnf("page skipped")
	l.Errorf("schema drift")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.LogPath())
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "[extractor] [INFO] read 42 records")
	assert.Contains(t, text, "[extractor] [WARN] page skipped")
	assert.Contains(t, text, "[extractor] [ERROR] schema drift")
}

func TestWriterTargetsRunLogFile(t *testing.T) {
	resetLogging(t, t.TempDir())

	l, err := NewLogger("browser")
	require.NoError(t, err)

	// External writers, such as the automation driver's output, land in
	// the same run log as formatted entries.
	_, err = l.Writer().Write([]byte("driver: launching chromium\n"))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.LogPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "driver: launching chromium")
}

func TestCloseIsIdempotent(t *testing.T) {
	resetLogging(t, t.TempDir())

	l, err := NewLogger("main")
	require.NoError(t, err)
	require.NoError(t, l.Close())
	assert.NoError(t, l.Close())
}

func TestGetLogDirectoryCreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "logs")
	resetLogging(t, nested)

	dir, err := GetLogDirectory()
	require.NoError(t, err)
	assert.Equal(t, nested, dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
