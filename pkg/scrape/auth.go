package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/config"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/orchestrator"
)

// Selector candidates for the Microsoft sign-in flow. The provider renders
// slightly different markup across tenants, so each step tries a list.
var (
	microsoftEntrySelectors = []string{
		`button:has-text("Microsoft")`,
		`[title*="Microsoft"]`,
		`a:has-text("Microsoft")`,
		`text=Microsoft`,
	}
	emailSelectors = []string{
		`input[type="email"]`,
		`input[name="loginfmt"]`,
		`input[id="i0116"]`,
	}
	passwordSelectors = []string{
		`input[type="password"]`,
		`input[name="passwd"]`,
		`input[id="i0118"]`,
	}
	submitSelectors = []string{
		`input[type="submit"]`,
		`input[id="idSIButton9"]`,
		`button[type="submit"]`,
	}
	staySignedInSelectors = []string{
		`input[id="idSIButton9"]`,
		`input[value="Yes"]`,
		`input[value="Ja"]`,
		`button[id="idSIButton9"]`,
	}
	credentialErrorSelectors = []string{
		`#passwordError`,
		`#usernameError`,
		`#i0116Error`,
		`.alert-error`,
	}
)

// Authenticator performs the Microsoft credential handshake inside a
// session. Stateless; safe to reuse across runs.
type Authenticator struct {
	cfg Config
	log Logger
}

// NewAuthenticator creates an authenticator with the given timing config.
func NewAuthenticator(cfg Config, log Logger) *Authenticator {
	if log == nil {
		log = nopLogger{}
	}
	return &Authenticator{cfg: cfg.withDefaults(), log: log}
}

// Login implements orchestrator.Authenticator.
func (a *Authenticator) Login(ctx context.Context, s orchestrator.Session, creds config.Credentials) error {
	page, ok := s.(Page)
	if !ok {
		return fmt.Errorf("session does not expose page operations")
	}
	return a.login(ctx, page, creds)
}

// login drives the multi-step provider flow. The whole phase shares one
// deadline; a parent cancellation is reported as such, the deadline as
// ErrAuthTimeout.
func (a *Authenticator) login(parent context.Context, page Page, creds config.Credentials) error {
	ctx, cancel := context.WithTimeout(parent, a.cfg.PhaseTimeout)
	defer cancel()

	phaseErr := func(err error) error {
		if parent.Err() != nil {
			return parent.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errPollTimeout) {
			return orchestrator.ErrAuthTimeout
		}
		return err
	}

	a.log.Infof("navigating to %s", a.cfg.BaseURL)
	if err := page.Navigate(a.cfg.BaseURL); err != nil {
		return phaseErr(err)
	}

	if err := a.clickMicrosoftEntry(ctx, page); err != nil {
		return phaseErr(err)
	}

	if err := a.submitEmail(ctx, page, creds.Email); err != nil {
		return phaseErr(err)
	}

	if err := a.submitPassword(ctx, page, creds.Password); err != nil {
		return phaseErr(err)
	}

	a.acceptInterstitials(ctx, page)

	if err := a.waitAuthenticated(ctx, page); err != nil {
		return phaseErr(err)
	}

	a.log.Infof("signed in as %s", creds.Email)
	return nil
}

// clickMicrosoftEntry clicks the "Sign in with Microsoft" control on the
// eVIEW landing page and waits until the provider's login surface is
// reached. The SPA may still be rendering, so the click is retried.
func (a *Authenticator) clickMicrosoftEntry(ctx context.Context, page Page) error {
	return pollUntil(ctx, a.cfg.PollInterval, a.cfg.PhaseTimeout, func() (bool, error) {
		if onProviderLogin(page) || a.anyVisible(page, emailSelectors) {
			return true, nil
		}
		for _, sel := range microsoftEntrySelectors {
			if !page.IsVisible(sel) {
				continue
			}
			if err := page.Click(sel, timeoutMs(a.cfg.PollInterval)); err != nil {
				a.log.Debugf("entry click on %q failed: %v", sel, err)
				continue
			}
			a.log.Debugf("clicked sign-in entry %q", sel)
			break
		}
		return false, nil
	})
}

// submitEmail fills the provider's email form and advances. Federated
// tenants can skip the form entirely: a password field or the
// application itself appearing first also ends this step.
func (a *Authenticator) submitEmail(ctx context.Context, page Page, email string) error {
	var filled bool
	return pollUntil(ctx, a.cfg.PollInterval, a.cfg.PhaseTimeout, func() (bool, error) {
		if filled || a.authenticated(page) || a.anyVisible(page, passwordSelectors) {
			return true, nil
		}
		for _, sel := range emailSelectors {
			if !page.IsVisible(sel) {
				continue
			}
			if err := page.Fill(sel, email, timeoutMs(a.cfg.PollInterval)); err != nil {
				return false, nil
			}
			a.submitForm(page, sel)
			a.log.Debugf("email submitted via %q", sel)
			filled = true
			return true, nil
		}
		return false, nil
	})
}

// submitPassword waits for the password form, a credential error, or an
// SSO shortcut straight into the application.
func (a *Authenticator) submitPassword(ctx context.Context, page Page, password string) error {
	var submitted bool
	return pollUntil(ctx, a.cfg.PollInterval, a.cfg.PhaseTimeout, func() (bool, error) {
		if submitted || a.authenticated(page) {
			return true, nil
		}
		if a.anyVisible(page, credentialErrorSelectors) {
			return false, orchestrator.ErrInvalidCredentials
		}
		for _, sel := range passwordSelectors {
			if !page.IsVisible(sel) {
				continue
			}
			if err := page.Fill(sel, password, timeoutMs(a.cfg.PollInterval)); err != nil {
				return false, nil
			}
			a.submitForm(page, sel)
			a.log.Debugf("password submitted")
			submitted = true
			return true, nil
		}
		return false, nil
	})
}

// submitForm clicks the first visible submit control, falling back to
// pressing Enter on the field itself.
func (a *Authenticator) submitForm(page Page, fieldSelector string) {
	for _, sel := range submitSelectors {
		if page.IsVisible(sel) {
			if err := page.Click(sel, timeoutMs(a.cfg.PollInterval)); err == nil {
				return
			}
		}
	}
	_ = page.Press(fieldSelector, "Enter")
}

// acceptInterstitials handles the optional "Stay signed in?" prompt. The
// prompt is conditional UI: accepted when present, its absence is not an
// error and the wait for it is short.
func (a *Authenticator) acceptInterstitials(ctx context.Context, page Page) {
	wait := a.cfg.PhaseTimeout / 4
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}

	_ = pollUntil(ctx, a.cfg.PollInterval, wait, func() (bool, error) {
		if a.authenticated(page) {
			return true, nil
		}
		for _, sel := range staySignedInSelectors {
			if page.IsVisible(sel) {
				if err := page.Click(sel, timeoutMs(a.cfg.PollInterval)); err == nil {
					a.log.Debugf("accepted stay-signed-in prompt")
					return true, nil
				}
			}
		}
		return false, nil
	})
}

// waitAuthenticated polls for one of the three terminal conditions:
// application reached, credential error shown, or deadline.
func (a *Authenticator) waitAuthenticated(ctx context.Context, page Page) error {
	return pollUntil(ctx, a.cfg.PollInterval, a.cfg.PhaseTimeout, func() (bool, error) {
		if a.anyVisible(page, credentialErrorSelectors) {
			return false, orchestrator.ErrInvalidCredentials
		}
		return a.authenticated(page), nil
	})
}

// authenticated reports whether the session is back on the application's
// landing surface.
func (a *Authenticator) authenticated(page Page) bool {
	url := strings.ToLower(page.CurrentURL())
	if strings.Contains(url, "login") {
		return false
	}
	return strings.Contains(url, "eview") || strings.Contains(url, strings.ToLower(baseHost(a.cfg.BaseURL)))
}

func (a *Authenticator) anyVisible(page Page, selectors []string) bool {
	for _, sel := range selectors {
		if page.IsVisible(sel) {
			return true
		}
	}
	return false
}

// onProviderLogin reports whether the session has reached the Microsoft
// login surface.
func onProviderLogin(page Page) bool {
	return strings.Contains(strings.ToLower(page.CurrentURL()), "login.microsoft")
}

// baseHost strips scheme and path from a URL for loose matching.
func baseHost(url string) string {
	host := url
	if idx := strings.Index(host, "://"); idx >= 0 {
		host = host[idx+3:]
	}
	if idx := strings.IndexByte(host, '/'); idx >= 0 {
		host = host[:idx]
	}
	return host
}
