// Package pipeline wires the collection, generation and posting steps to the
// record store and runs them one at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pv-reviews/internal/browser"
	"pv-reviews/internal/collector"
	"pv-reviews/internal/config"
	"pv-reviews/internal/domain"
	"pv-reviews/internal/llm"
	"pv-reviews/internal/notify"
	"pv-reviews/internal/poster"
	"pv-reviews/internal/processor"
	"pv-reviews/internal/progress"
	"pv-reviews/internal/responder"
	"pv-reviews/internal/storage"
	pvsync "pv-reviews/internal/sync"
	"pv-reviews/internal/types"
)

// SummaryDays is the run log window of the daily summary.
const SummaryDays = 7

// browserKey serializes every step that drives the browser.
const browserKey = "browser"

// ErrBusy is returned when another step holds the browser.
var ErrBusy = errors.New("browser session already in use")

// Launcher opens a browser session.
type Launcher func(ctx context.Context) (browser.Session, error)

// PlaywrightLauncher launches chromium with the configured browser settings.
func PlaywrightLauncher(cfg *config.Config) Launcher {
	return func(ctx context.Context) (browser.Session, error) {
		return browser.Launch(browser.Options{
			Headless:  cfg.Browser.Headless,
			UserAgent: cfg.Browser.UserAgent,
			Width:     cfg.Browser.ViewportWidth,
			Height:    cfg.Browser.ViewportHeight,
			Timeout:   cfg.Browser.Timeout,
		})
	}
}

// Pipeline executes the review workflow against one store
type Pipeline struct {
	cfg      *config.Config
	store    storage.Repository
	launch   Launcher
	llm      llm.Client
	progress progress.Store
	notifier notify.Notifier
	locks    *pvsync.KeyLock
}

// New creates a pipeline. llmClient, prog and notifier may be nil for
// commands that do not use them.
func New(cfg *config.Config, store storage.Repository, launch Launcher, llmClient llm.Client, prog progress.Store, notifier notify.Notifier) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    store,
		launch:   launch,
		llm:      llmClient,
		progress: prog,
		notifier: notifier,
		locks:    pvsync.NewKeyLock(),
	}
}

func (p *Pipeline) authenticator() *collector.Authenticator {
	creds := collector.Credentials{Email: p.cfg.Google.Email, Password: p.cfg.Google.Password}
	return collector.NewAuthenticator(creds, p.cfg.Browser.Timeout, p.cfg.Browser.Settle)
}

func (p *Pipeline) paginator() *collector.Paginator {
	return collector.NewPaginator(p.cfg.Collection.MaxPageAttempts, p.cfg.Browser.Settle)
}

// withBrowser runs fn with a fresh browser session, holding the browser lock.
func (p *Pipeline) withBrowser(ctx context.Context, fn func(page browser.Page) error) error {
	if !p.locks.TryLock(browserKey) {
		return ErrBusy
	}
	defer p.locks.Unlock(browserKey)

	session, err := p.launch(ctx)
	if err != nil {
		return types.NewFatalError("browser", fmt.Errorf("launch browser: %w", err))
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("close browser failed", "error", err)
		}
	}()
	return fn(session.Page())
}

// Collect runs one collection and returns its result. The run log is written
// even when collection fails.
func (p *Pipeline) Collect(ctx context.Context) (collector.Result, error) {
	var res collector.Result
	err := p.withBrowser(ctx, func(page browser.Page) error {
		opts := collector.Options{
			ListingID:     p.cfg.Business.ListingID,
			BusinessURL:   p.cfg.Business.URL,
			MaxReviews:    p.cfg.Collection.MaxReviews,
			Settle:        p.cfg.Browser.Settle,
			ScreenshotDir: p.cfg.Browser.ScreenshotDir,
		}
		if p.cfg.Browser.DebugScreenshots {
			opts.ScreenshotEvery = p.cfg.Collection.ScreenshotEvery
		}
		orch := collector.NewOrchestrator(page, p.authenticator(), p.paginator(), collector.NewExtractor(), p.store, opts)
		res = orch.Run(ctx)
		return res.Err
	})
	if err != nil {
		return res, fmt.Errorf("collect reviews: %w", err)
	}
	slog.Info("collection finished",
		"examined", res.Examined,
		"new", res.New,
		"duplicates", res.Duplicates,
		"invalid", res.Invalid,
		"failed", res.Failed,
		"duration", res.Duration)
	return res, nil
}

// Generate drafts replies for up to limit unreplied reviews.
func (p *Pipeline) Generate(ctx context.Context, limit int) (processor.Result, error) {
	if p.llm == nil {
		return processor.Result{}, errors.New("generate replies: no llm client configured")
	}
	gen := responder.NewGenerator(p.llm, responder.NewPromptLoader(p.cfg.Prompts.Dir),
		p.cfg.Business.ListingID, p.cfg.Business.Name, p.cfg.LLM.MaxRetries)
	proc := processor.NewReplyProcessor(gen, p.store, p.cfg.Generation.ReviewCutoffWeeks)

	res, err := proc.ProcessUnreplied(ctx, limit)
	if err != nil {
		return res, fmt.Errorf("generate replies: %w", err)
	}
	slog.Info("generation finished",
		"processed", res.Processed,
		"generated", res.Generated,
		"skipped", res.Skipped,
		"failed", res.Failed)
	return res, nil
}

// Post posts up to limit pending replies in batches. The page logs in once
// and reopens the unreplied list before every batch.
func (p *Pipeline) Post(ctx context.Context, limit int) (poster.RunResult, error) {
	var res poster.RunResult
	if p.progress == nil {
		return res, errors.New("post replies: no progress store configured")
	}

	pending, err := p.store.PendingResponses(ctx, limit)
	if err != nil {
		return res, types.NewFatalError("store", fmt.Errorf("load pending replies: %w", err))
	}
	if len(pending) == 0 {
		slog.Info("no pending replies to post")
		return res, nil
	}

	err = p.withBrowser(ctx, func(page browser.Page) error {
		if err := p.authenticator().Login(ctx, page); err != nil {
			return types.NewFatalError("auth", err)
		}
		nav := &collector.Navigator{
			Page:        page,
			ListingID:   p.cfg.Business.ListingID,
			BusinessURL: p.cfg.Business.URL,
			Settle:      p.cfg.Browser.Settle,
		}
		pag := p.paginator()
		open := func(ctx context.Context) (browser.Frame, error) {
			frame, _, err := nav.OpenUnreplied(ctx, pag)
			return frame, err
		}

		post := poster.NewPoster(p.store, p.progress, open, p.cfg.Posting.ConfirmWait)
		var err error
		res, err = post.ProcessInBatches(ctx, pending, p.cfg.Posting.BatchSize, p.cfg.Posting.BatchDelay)
		return err
	})
	if err != nil {
		return res, fmt.Errorf("post replies: %w", err)
	}
	slog.Info("posting finished",
		"total", res.Total,
		"already_done", res.AlreadyDone,
		"batches", res.Batches,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"skipped", res.Skipped)
	return res, nil
}

// Summary aggregates the store state and the recent run logs.
func (p *Pipeline) Summary(ctx context.Context) (*domain.RunSummary, error) {
	s, err := p.store.RunSummary(ctx, SummaryDays)
	if err != nil {
		return nil, fmt.Errorf("load run summary: %w", err)
	}
	return s, nil
}

// Notify sends the daily summary. A summary that cannot be loaded is sent
// empty so the recipient still hears about the run.
func (p *Pipeline) Notify(ctx context.Context) bool {
	if p.notifier == nil {
		return false
	}
	summary, err := p.Summary(ctx)
	if err != nil {
		slog.Error("load summary for notification failed", "error", err)
		summary = &domain.RunSummary{}
	}
	return p.notifier.SendDailySummary(ctx, summary)
}
