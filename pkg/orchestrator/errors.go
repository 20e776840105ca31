package orchestrator

import (
	"errors"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/browser"
)

// Failure taxonomy for extraction runs. Components wrap these sentinels so
// the orchestrator can classify causes with errors.Is; the presentation
// layer only ever sees the run state plus the message attached here.
var (
	// ErrAlreadyRunning is returned by Start while a run is active.
	// Concurrent runs are rejected, not queued.
	ErrAlreadyRunning = errors.New("an extraction run is already active")

	// ErrInvalidCredentials indicates the identity provider rejected the
	// email/password pair. User error; never retried.
	ErrInvalidCredentials = errors.New("sign-in rejected: check email and password")

	// ErrAuthTimeout indicates the login flow never reached a terminal
	// condition within the phase timeout. Transient; retried.
	ErrAuthTimeout = errors.New("sign-in timed out")

	// ErrProjectNotFound indicates the application has no such project or
	// access is denied. User/data error; never retried.
	ErrProjectNotFound = errors.New("project not found or not accessible")

	// ErrLoadTimeout indicates the variable table view never stabilized
	// within the phase timeout. Transient; retried.
	ErrLoadTimeout = errors.New("variable table view did not finish loading")

	// ErrSchemaMismatch indicates the rendered page lacked the expected
	// structure. Version skew with the remote UI, not a credentials or
	// network problem; never retried automatically.
	ErrSchemaMismatch = errors.New("page content does not match the expected layout")
)

// Transient reports whether a phase failure may be retried. Timeouts and
// driver connect hiccups are transient; credential, lookup, and schema
// failures are not.
func Transient(err error) bool {
	return errors.Is(err, ErrAuthTimeout) ||
		errors.Is(err, ErrLoadTimeout) ||
		errors.Is(err, browser.ErrConnectTimeout)
}

// Remediation returns a short user-facing hint for a terminal failure
// cause, or an empty string when there is nothing actionable to add.
func Remediation(err error) string {
	switch {
	case errors.Is(err, browser.ErrLaunchFailed), errors.Is(err, browser.ErrConnectTimeout):
		return "check that the browser automation backend is installed and reachable"
	case errors.Is(err, ErrInvalidCredentials):
		return "verify the configured email and password"
	case errors.Is(err, ErrProjectNotFound):
		return "verify the project number and your access rights"
	case errors.Is(err, ErrSchemaMismatch):
		return "the eVIEW page layout may have changed; an application update is likely required"
	case errors.Is(err, ErrAuthTimeout), errors.Is(err, ErrLoadTimeout):
		return "the remote service responded slowly; try again"
	default:
		return ""
	}
}
