// Package browser owns the lifecycle of the Playwright-controlled browser
// used to drive EPLAN eVIEW. It provides scoped session acquisition and
// release; higher layers never touch the automation driver directly.
package browser

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Manager launches the automation driver and hands out sessions. A single
// extraction run holds at most one session; the manager still tracks every
// open session so Shutdown can guarantee nothing outlives the process.
type Manager struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	sessions    map[*Session]struct{}
	initialized bool
}

// NewManager creates a session manager. Initialize must be called before
// opening sessions.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[*Session]struct{}),
	}
}

// Initialize installs (if needed) and starts the Playwright driver. Driver
// output goes to driverOut so it cannot interleave with the event stream on
// the caller's console; a nil writer discards it.
func (m *Manager) Initialize(driverOut io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	if driverOut == nil {
		driverOut = io.Discard
	}
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  driverOut,
		Stderr:  driverOut,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("%w: install: %v", ErrLaunchFailed, err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrConnectTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// Open launches a browser, creates an isolated context and page, and returns
// the session. The context is consulted so a cancelled run does not keep
// waiting on a slow launch.
func (m *Manager) Open(ctx context.Context, opts OpenOptions) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("%w: manager not initialized", ErrLaunchFailed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	headless := !opts.Visible
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
	}
	br, err := m.playwright.Chromium.Launch(launchOpts)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrConnectTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	}
	bctx, err := br.NewContext(contextOpts)
	if err != nil {
		br.Close()
		return nil, fmt.Errorf("%w: context: %v", ErrLaunchFailed, err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		br.Close()
		return nil, fmt.Errorf("%w: page: %v", ErrLaunchFailed, err)
	}

	page.SetDefaultTimeout(opts.Timeout)

	session := &Session{
		Browser:   br,
		Context:   bctx,
		Page:      page,
		Visible:   opts.Visible,
		CreatedAt: time.Now(),
		closed:    make(chan struct{}),
	}
	session.onClosed = func() { m.forget(session) }

	m.sessions[session] = struct{}{}
	return session, nil
}

// forget drops a closed session from the tracking set.
func (m *Manager) forget(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s)
}

// OpenCount returns the number of sessions not yet closed.
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes any remaining sessions and stops the Playwright driver.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	remaining := make([]*Session, 0, len(m.sessions))
	for s := range m.sessions {
		remaining = append(remaining, s)
	}
	m.mu.Unlock()

	for _, s := range remaining {
		_ = s.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		m.initialized = false
	}
	return nil
}

// isTimeout reports whether a playwright error text indicates a timeout.
// The driver does not expose a typed timeout error.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out")
}
