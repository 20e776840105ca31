package browser

import (
	"errors"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Sentinel errors for session startup failures. Callers classify with
// errors.Is; the orchestrator surfaces both as environment problems with a
// remediation hint.
var (
	// ErrLaunchFailed indicates the browser process could not be started.
	ErrLaunchFailed = errors.New("browser launch failed")

	// ErrConnectTimeout indicates the automation driver never became
	// responsive within the init timeout.
	ErrConnectTimeout = errors.New("browser driver connect timeout")

	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("browser session closed")
)

// Session represents one live controlled browser instance. It is exclusively
// owned by the extraction run that opened it and must be closed on every
// terminal path.
type Session struct {
	// Browser is the Playwright browser instance.
	Browser playwright.Browser

	// Context is the isolated browser context for this session.
	Context playwright.BrowserContext

	// Page is the single page the extraction drives.
	Page playwright.Page

	// Visible indicates the browser window is shown (debug mode).
	Visible bool

	// CreatedAt is the timestamp when the session was opened.
	CreatedAt time.Time

	closed   chan struct{}
	onClosed func()
}

// OpenOptions configures a new browser session.
type OpenOptions struct {
	// Visible shows the browser window instead of running headless.
	// Presentation only; control semantics are identical either way.
	Visible bool

	// Viewport sets the initial viewport size. Defaults apply when nil.
	Viewport *Viewport

	// Timeout is the default per-operation timeout in milliseconds.
	Timeout float64
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Default values for session setup.
const (
	DefaultTimeout        = 30000.0 // per-operation default, milliseconds
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
)
