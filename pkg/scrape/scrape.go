// Package scrape implements the three extraction phases against a live
// eVIEW session: the Microsoft sign-in, navigation to the project's
// variable table view, and reading the rendered diagram pages into a
// variable table. Every wait is bounded by a poll interval and a phase
// timeout, and every poll loop is a cancellation checkpoint.
package scrape

import (
	"context"
	"errors"
	"time"
)

// Page is the subset of browser session operations the scrape phases use.
// *browser.Session implements it; tests script a fake.
type Page interface {
	Navigate(url string) error
	CurrentURL() string
	PageSource() (string, error)
	Click(selector string, timeoutMs float64) error
	Fill(selector, value string, timeoutMs float64) error
	Press(selector, key string) error
	WaitVisible(selector string, timeoutMs float64) error
	IsVisible(selector string) bool
	Count(selector string) int
	Texts(selector string) []string
	Attr(selector, name string) (string, bool)
	Evaluate(expression string, args ...interface{}) (interface{}, error)
}

// Logger receives diagnostic messages from the scrape phases.
// *logging.Logger satisfies it; the orchestrator wiring mirrors messages
// into the run's event stream.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// nopLogger discards everything; used when no logger is wired.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// Config carries the timing knobs shared by all phases.
type Config struct {
	// BaseURL is the eVIEW entry point.
	BaseURL string

	// PollInterval separates consecutive condition checks.
	PollInterval time.Duration

	// PhaseTimeout bounds each phase's overall wait.
	PhaseTimeout time.Duration

	// StableReads is the number of consecutive equal row counts required
	// before the table view counts as populated.
	StableReads int
}

// withDefaults fills unset fields with conservative values.
func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 400 * time.Millisecond
	}
	if c.PhaseTimeout <= 0 {
		c.PhaseTimeout = 45 * time.Second
	}
	if c.StableReads < 2 {
		c.StableReads = 3
	}
	return c
}

// errPollTimeout signals that a poll loop exhausted its deadline. Phases
// translate it into their own timeout sentinel.
var errPollTimeout = errors.New("poll deadline exceeded")

// pollUntil checks cond every interval until it reports done, the timeout
// elapses (errPollTimeout) or the context is cancelled. cond errors abort
// the poll immediately.
func pollUntil(ctx context.Context, interval, timeout time.Duration, cond func() (bool, error)) error {
	deadline := time.Now().Add(timeout)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := cond()
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if time.Now().After(deadline) {
			return errPollTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// timeoutMs converts a duration to playwright's millisecond float.
func timeoutMs(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
