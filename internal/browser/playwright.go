package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Options configures the launched browser.
type Options struct {
	Headless  bool
	UserAgent string
	Width     int
	Height    int
	Timeout   time.Duration // default action and navigation timeout
}

// PlaywrightSession is a chromium session driven by playwright-go.
type PlaywrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    *playwrightPage
}

// InstallBrowsers downloads the playwright driver and chromium.
func InstallBrowsers() error {
	return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
}

// Launch starts playwright, a chromium instance and one page.
func Launch(opts Options) (*PlaywrightSession, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	s := &PlaywrightSession{pw: pw}

	s.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{}
	if opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	if opts.Width > 0 && opts.Height > 0 {
		ctxOpts.Viewport = &playwright.Size{Width: opts.Width, Height: opts.Height}
	}
	s.context, err = s.browser.NewContext(ctxOpts)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("new browser context: %w", err)
	}

	page, err := s.context.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	if opts.Timeout > 0 {
		page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))
		page.SetDefaultNavigationTimeout(float64(opts.Timeout.Milliseconds()))
	}
	s.page = &playwrightPage{page: page}

	slog.Info("browser launched", "headless", opts.Headless)
	return s, nil
}

// Page returns the session's page.
func (s *PlaywrightSession) Page() Page {
	return s.page
}

// Close shuts the browser and the playwright driver down.
func (s *PlaywrightSession) Close() error {
	var firstErr error
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			firstErr = fmt.Errorf("close browser: %w", err)
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop playwright: %w", err)
		}
	}
	return firstErr
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (p *playwrightPage) Locator(selector string) Element {
	return &playwrightElement{loc: p.page.Locator(selector)}
}

func (p *playwrightPage) FrameLocator(selector string) Frame {
	return &playwrightFrame{fl: p.page.FrameLocator(selector).First()}
}

func (p *playwrightPage) WaitForURL(url string, timeout time.Duration) error {
	return p.page.WaitForURL(url, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

func (p *playwrightPage) Screenshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

type playwrightFrame struct {
	fl playwright.FrameLocator
}

func (f *playwrightFrame) Locator(selector string) Element {
	return &playwrightElement{loc: f.fl.Locator(selector)}
}

type playwrightElement struct {
	loc playwright.Locator
}

func (e *playwrightElement) Locator(selector string) Element {
	return &playwrightElement{loc: e.loc.Locator(selector)}
}

func (e *playwrightElement) All() ([]Element, error) {
	locs, err := e.loc.All()
	if err != nil {
		return nil, err
	}
	out := make([]Element, len(locs))
	for i, l := range locs {
		out[i] = &playwrightElement{loc: l}
	}
	return out, nil
}

func (e *playwrightElement) Count() (int, error) {
	return e.loc.Count()
}

func (e *playwrightElement) First() Element {
	return &playwrightElement{loc: e.loc.First()}
}

func (e *playwrightElement) Last() Element {
	return &playwrightElement{loc: e.loc.Last()}
}

// present guards reads so a missing optional node fails fast instead of
// waiting for the default timeout.
func (e *playwrightElement) present() error {
	n, err := e.loc.Count()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (e *playwrightElement) Attribute(name string) (string, error) {
	if err := e.present(); err != nil {
		return "", err
	}
	return e.loc.First().GetAttribute(name)
}

func (e *playwrightElement) Text() (string, error) {
	if err := e.present(); err != nil {
		return "", err
	}
	return e.loc.First().InnerText()
}

func (e *playwrightElement) Visible() bool {
	ok, err := e.loc.First().IsVisible()
	return err == nil && ok
}

func (e *playwrightElement) Enabled() bool {
	if e.present() != nil {
		return false
	}
	ok, err := e.loc.First().IsEnabled()
	return err == nil && ok
}

func (e *playwrightElement) Click() error {
	if err := e.present(); err != nil {
		return err
	}
	return e.loc.First().Click()
}

func (e *playwrightElement) Fill(value string) error {
	if err := e.present(); err != nil {
		return err
	}
	return e.loc.First().Fill(value)
}

func (e *playwrightElement) ScrollIntoView() error {
	if err := e.present(); err != nil {
		return err
	}
	return e.loc.First().ScrollIntoViewIfNeeded()
}

func (e *playwrightElement) WaitVisible(timeout time.Duration) error {
	return e.loc.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}
