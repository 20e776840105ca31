package config

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// SectionIDScraper is the identifier for the extraction settings section
	SectionIDScraper = "scraper"
)

// Defaults for the scraper section. The poll interval and phase timeout
// bound every wait against the remote UI.
const (
	DefaultBaseURL          = "https://eview.epulse.cloud"
	DefaultMaxRetries       = 2
	DefaultPollIntervalMs   = 400
	DefaultPhaseTimeoutSecs = 45
	DefaultStableReads      = 3
)

// ScraperSection manages the extraction settings: the target service, the
// account email, the project number, and the timing/retry knobs. The
// password is deliberately not part of this section and is never persisted.
type ScraperSection struct {
	BaseURL          string
	Email            string
	Project          string
	Visible          bool
	MaxRetries       int
	PollIntervalMs   int
	PhaseTimeoutSecs int
	StableReads      int
	mu               sync.RWMutex
}

// NewScraperSection creates a scraper section with default settings.
func NewScraperSection() *ScraperSection {
	return &ScraperSection{
		BaseURL:          DefaultBaseURL,
		MaxRetries:       DefaultMaxRetries,
		PollIntervalMs:   DefaultPollIntervalMs,
		PhaseTimeoutSecs: DefaultPhaseTimeoutSecs,
		StableReads:      DefaultStableReads,
	}
}

// ID returns the section identifier.
func (s *ScraperSection) ID() string {
	return SectionIDScraper
}

// Title returns the section title.
func (s *ScraperSection) Title() string {
	return "Extraction Settings"
}

// Description returns the section description.
func (s *ScraperSection) Description() string {
	return "Target service, account email, project number and timing/retry behaviour for extraction runs. The password is never stored."
}

// Data returns the current configuration data.
func (s *ScraperSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"base_url":           s.BaseURL,
		"email":              s.Email,
		"project":            s.Project,
		"visible_browser":    s.Visible,
		"max_retries":        s.MaxRetries,
		"poll_interval_ms":   s.PollIntervalMs,
		"phase_timeout_secs": s.PhaseTimeoutSecs,
		"stable_reads":       s.StableReads,
	}
}

// SetData updates the configuration from the provided data. Missing keys
// keep their current values so partial files degrade to defaults.
func (s *ScraperSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["base_url"].(string); ok && v != "" {
		s.BaseURL = v
	}
	if v, ok := data["email"].(string); ok {
		s.Email = v
	}
	if v, ok := data["project"].(string); ok {
		s.Project = v
	}
	if v, ok := data["visible_browser"].(bool); ok {
		s.Visible = v
	}
	if v, ok := intValue(data["max_retries"]); ok && v > 0 {
		s.MaxRetries = v
	}
	if v, ok := intValue(data["poll_interval_ms"]); ok && v > 0 {
		s.PollIntervalMs = v
	}
	if v, ok := intValue(data["phase_timeout_secs"]); ok && v > 0 {
		s.PhaseTimeoutSecs = v
	}
	if v, ok := intValue(data["stable_reads"]); ok && v > 0 {
		s.StableReads = v
	}
	return nil
}

// Validate validates the current configuration.
func (s *ScraperSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !strings.HasPrefix(s.BaseURL, "http://") && !strings.HasPrefix(s.BaseURL, "https://") {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", s.BaseURL)
	}
	if s.MaxRetries < 1 || s.MaxRetries > 10 {
		return fmt.Errorf("max_retries must be between 1 and 10, got %d", s.MaxRetries)
	}
	if s.PollIntervalMs < 100 || s.PollIntervalMs > 5000 {
		return fmt.Errorf("poll_interval_ms must be between 100 and 5000, got %d", s.PollIntervalMs)
	}
	if s.PhaseTimeoutSecs < 5 || s.PhaseTimeoutSecs > 600 {
		return fmt.Errorf("phase_timeout_secs must be between 5 and 600, got %d", s.PhaseTimeoutSecs)
	}
	if s.StableReads < 2 {
		return fmt.Errorf("stable_reads must be at least 2, got %d", s.StableReads)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *ScraperSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BaseURL = DefaultBaseURL
	s.Email = ""
	s.Project = ""
	s.Visible = false
	s.MaxRetries = DefaultMaxRetries
	s.PollIntervalMs = DefaultPollIntervalMs
	s.PhaseTimeoutSecs = DefaultPhaseTimeoutSecs
	s.StableReads = DefaultStableReads
}

// GetBaseURL returns the configured service URL.
func (s *ScraperSection) GetBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.BaseURL
}

// GetEmail returns the configured account email.
func (s *ScraperSection) GetEmail() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Email
}

// GetProject returns the configured project number.
func (s *ScraperSection) GetProject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Project
}

// GetVisible returns whether the browser window is shown.
func (s *ScraperSection) GetVisible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Visible
}

// GetMaxRetries returns the attempt ceiling for retryable phases.
func (s *ScraperSection) GetMaxRetries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.MaxRetries
}

// PollInterval returns the poll interval as a duration.
func (s *ScraperSection) PollInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// PhaseTimeout returns the per-phase timeout as a duration.
func (s *ScraperSection) PhaseTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.PhaseTimeoutSecs) * time.Second
}

// GetStableReads returns the consecutive equal row-count reads required
// before the table view counts as loaded.
func (s *ScraperSection) GetStableReads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.StableReads
}

// intValue converts a JSON-decoded number (float64) or a plain int.
func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
