package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// Close releases the page, context and browser process. Idempotent: closing
// an already-closed session is a no-op.
func (s *Session) Close() error {
	select {
	case <-s.closed:
		return nil
	default:
	}
	close(s.closed)

	_ = s.Page.Close()    // ignore errors, continue cleanup
	_ = s.Context.Close() // ignore errors, continue cleanup
	err := s.Browser.Close()

	if s.onClosed != nil {
		s.onClosed()
	}
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

// Closed reports whether the session has been released.
func (s *Session) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Navigate loads the given URL and waits for the load event.
func (s *Session) Navigate(url string) error {
	if s.Closed() {
		return ErrSessionClosed
	}

	_, err := s.Page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// CurrentURL returns the URL of the active page.
func (s *Session) CurrentURL() string {
	return s.Page.URL()
}

// PageSource returns the full serialized HTML of the current page,
// including rendered SVG content.
func (s *Session) PageSource() (string, error) {
	if s.Closed() {
		return "", ErrSessionClosed
	}

	content, err := s.Page.Content()
	if err != nil {
		return "", fmt.Errorf("page source read failed: %w", err)
	}
	return content, nil
}

// Click clicks the first element matching the selector, waiting up to
// timeoutMs for it to become actionable.
func (s *Session) Click(selector string, timeoutMs float64) error {
	if s.Closed() {
		return ErrSessionClosed
	}

	opts := playwright.PageClickOptions{}
	if timeoutMs > 0 {
		opts.Timeout = &timeoutMs
	}
	if err := s.Page.Click(selector, opts); err != nil {
		return fmt.Errorf("click %q failed: %w", selector, err)
	}
	return nil
}

// Fill clears and types into the input matching the selector.
func (s *Session) Fill(selector, value string, timeoutMs float64) error {
	if s.Closed() {
		return ErrSessionClosed
	}

	opts := playwright.PageFillOptions{}
	if timeoutMs > 0 {
		opts.Timeout = &timeoutMs
	}
	if err := s.Page.Fill(selector, value, opts); err != nil {
		return fmt.Errorf("fill %q failed: %w", selector, err)
	}
	return nil
}

// Press sends a key press (e.g. "Enter") to the element matching the
// selector.
func (s *Session) Press(selector, key string) error {
	if s.Closed() {
		return ErrSessionClosed
	}

	if err := s.Page.Press(selector, key); err != nil {
		return fmt.Errorf("press %q on %q failed: %w", key, selector, err)
	}
	return nil
}

// WaitVisible waits up to timeoutMs for the selector to become visible.
func (s *Session) WaitVisible(selector string, timeoutMs float64) error {
	if s.Closed() {
		return ErrSessionClosed
	}

	state := playwright.WaitForSelectorStateVisible
	opts := playwright.PageWaitForSelectorOptions{State: state}
	if timeoutMs > 0 {
		opts.Timeout = &timeoutMs
	}
	if _, err := s.Page.WaitForSelector(selector, opts); err != nil {
		return fmt.Errorf("wait for %q failed: %w", selector, err)
	}
	return nil
}

// IsVisible reports whether at least one element matching the selector is
// currently visible. Lookup errors count as not visible; presence checks on
// conditional UI must never block or fail the run.
func (s *Session) IsVisible(selector string) bool {
	if s.Closed() {
		return false
	}

	element, err := s.Page.QuerySelector(selector)
	if err != nil || element == nil {
		return false
	}
	visible, err := element.IsVisible()
	return err == nil && visible
}

// Count returns the number of elements matching the selector.
func (s *Session) Count(selector string) int {
	if s.Closed() {
		return 0
	}

	elements, err := s.Page.QuerySelectorAll(selector)
	if err != nil {
		return 0
	}
	return len(elements)
}

// Texts returns the text content of every element matching the selector, in
// document order.
func (s *Session) Texts(selector string) []string {
	if s.Closed() {
		return nil
	}

	elements, err := s.Page.QuerySelectorAll(selector)
	if err != nil {
		return nil
	}

	texts := make([]string, 0, len(elements))
	for _, el := range elements {
		text, err := el.TextContent()
		if err != nil {
			text = ""
		}
		texts = append(texts, text)
	}
	return texts
}

// Attr returns the named attribute of the first element matching the
// selector. The second return is false when the element or attribute is
// absent.
func (s *Session) Attr(selector, name string) (string, bool) {
	if s.Closed() {
		return "", false
	}

	element, err := s.Page.QuerySelector(selector)
	if err != nil || element == nil {
		return "", false
	}
	value, err := element.GetAttribute(name)
	if err != nil {
		return "", false
	}
	return value, true
}

// Evaluate runs a JavaScript expression in the page and returns its result.
// Used for scroll positioning on virtualized containers.
func (s *Session) Evaluate(expression string, args ...interface{}) (interface{}, error) {
	if s.Closed() {
		return nil, ErrSessionClosed
	}

	result, err := s.Page.Evaluate(expression, args...)
	if err != nil {
		return nil, fmt.Errorf("evaluate failed: %w", err)
	}
	return result, nil
}
