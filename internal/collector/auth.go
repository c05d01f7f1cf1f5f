package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pv-reviews/internal/browser"
	"pv-reviews/internal/config"
)

// Credentials for the identity provider.
type Credentials struct {
	Email    string
	Password string
}

// Authenticator logs a page in to the identity provider.
type Authenticator struct {
	creds            Credentials
	Timeout          time.Duration // wait for the password field and the final redirect
	Settle           time.Duration
	DismissSelectors []string
	LoginURL         string
	SuccessURL       string
}

// NewAuthenticator returns an Authenticator with the default login flow.
func NewAuthenticator(creds Credentials, timeout, settle time.Duration) *Authenticator {
	return &Authenticator{
		creds:            creds,
		Timeout:          timeout,
		Settle:           settle,
		DismissSelectors: config.PopupDismissSelectors,
		LoginURL:         config.LoginURL,
		SuccessURL:       config.LoginSuccessURL,
	}
}

// Login fills email and password, clears interstitial dialogs and waits for
// the account page. Any failure is returned; there is no credential retry.
func (a *Authenticator) Login(ctx context.Context, page browser.Page) error {
	if a.creds.Email == "" || a.creds.Password == "" {
		return errors.New("missing credentials")
	}
	if err := page.Goto(ctx, a.LoginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	if err := page.Locator(config.SelectorEmail).Fill(a.creds.Email); err != nil {
		return fmt.Errorf("fill email: %w", err)
	}
	if err := page.Locator(config.SelectorLoginNext).Click(); err != nil {
		return fmt.Errorf("submit email: %w", err)
	}

	password := page.Locator(config.SelectorPassword)
	if err := password.WaitVisible(a.Timeout); err != nil {
		return fmt.Errorf("wait for password field: %w", err)
	}
	if err := password.Fill(a.creds.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := page.Locator(config.SelectorLoginNext).Click(); err != nil {
		return fmt.Errorf("submit password: %w", err)
	}

	if err := browser.Sleep(ctx, a.Settle); err != nil {
		return err
	}
	a.DismissPopups(page)

	if err := page.WaitForURL(a.SuccessURL, a.Timeout*3); err != nil {
		return fmt.Errorf("wait for account page: %w", err)
	}
	slog.Info("authentication successful")
	return nil
}

// DismissPopups clicks the first visible dismissal control and returns its
// selector, or "" when no dialog is showing.
func (a *Authenticator) DismissPopups(page browser.Page) string {
	for _, sel := range a.DismissSelectors {
		btn := page.Locator(sel).First()
		if !btn.Visible() {
			continue
		}
		if err := btn.Click(); err != nil {
			slog.Debug("dismiss popup failed", "selector", sel, "error", err)
			continue
		}
		slog.Info("closed popup", "selector", sel)
		return sel
	}
	return ""
}
