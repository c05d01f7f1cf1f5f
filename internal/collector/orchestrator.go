package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/tidwall/sjson"

	"pv-reviews/internal/browser"
	"pv-reviews/internal/config"
	"pv-reviews/internal/dedup"
	"pv-reviews/internal/domain"
	"pv-reviews/internal/metrics"
	"pv-reviews/internal/storage"
	"pv-reviews/internal/types"
)

// State is a step of a collection run.
type State string

const (
	StateAuthenticating State = "AUTHENTICATING"
	StateNavigating     State = "NAVIGATING"
	StateFiltering      State = "FILTERING"
	StatePaginating     State = "PAGINATING"
	StateExtracting     State = "EXTRACTING"
	StatePersisting     State = "PERSISTING"
	StateDone           State = "DONE"
	StateFailed         State = "FAILED"
)

// Store is the part of the record store a collection run needs.
type Store interface {
	dedup.IDSource
	UpsertReviews(ctx context.Context, reviews []domain.Review) (storage.UpsertResult, error)
	LogRun(ctx context.Context, run *domain.RunLog) (string, error)
}

// LoginFlow logs the page in.
type LoginFlow interface {
	Login(ctx context.Context, page browser.Page) error
}

// Options tune a collection run.
type Options struct {
	ListingID       string
	BusinessURL     string
	MaxReviews      int
	Settle          time.Duration
	ScreenshotEvery int // 0 disables debug screenshots
	ScreenshotDir   string
}

// Result summarizes a collection run. Counts are zero when the run failed.
type Result struct {
	Examined   int // cards looked at, capped by MaxReviews
	Extracted  int // valid reviews read from cards
	New        int // rows the store did not have
	Duplicates int // known before this run
	Invalid    int // cards without id or rating
	Failed     int // extraction or write errors
	Pagination PaginationResult
	Duration   time.Duration
	State      State // DONE or FAILED
	FailedAt   State // step that failed
	RunID      string
	Err        error
}

// Orchestrator runs one collection: login, open the unreplied list, expand it,
// extract every card, drop known reviews and persist the rest.
type Orchestrator struct {
	page      browser.Page
	auth      LoginFlow
	paginator *Paginator
	extractor *Extractor
	store     Store
	opts      Options
	now       func() time.Time
}

// NewOrchestrator wires a collection run.
func NewOrchestrator(page browser.Page, auth LoginFlow, paginator *Paginator, extractor *Extractor, store Store, opts Options) *Orchestrator {
	if opts.MaxReviews <= 0 {
		opts.MaxReviews = 1000
	}
	return &Orchestrator{
		page:      page,
		auth:      auth,
		paginator: paginator,
		extractor: extractor,
		store:     store,
		opts:      opts,
		now:       time.Now,
	}
}

// Run executes the collection state machine. It never panics out and always
// writes exactly one run log, completed or failed.
func (o *Orchestrator) Run(ctx context.Context) (res Result) {
	start := o.now()
	state := StateAuthenticating

	fail := func(err error) Result {
		return Result{State: StateFailed, FailedAt: state, Err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			res = fail(fmt.Errorf("panic: %v", p))
		}
		res.Duration = o.now().Sub(start)
		o.finalize(ctx, &res, start)
	}()

	slog.Info("collection started", "listing", o.opts.ListingID, "max_reviews", o.opts.MaxReviews)

	// AUTHENTICATING
	if err := o.auth.Login(ctx, o.page); err != nil {
		return fail(types.NewFatalError("auth", err))
	}

	// NAVIGATING
	state = StateNavigating
	nav := &Navigator{Page: o.page, ListingID: o.opts.ListingID, BusinessURL: o.opts.BusinessURL, Settle: o.opts.Settle}
	frame, err := nav.OpenReviews(ctx)
	if err != nil {
		return fail(err)
	}

	// FILTERING
	state = StateFiltering
	if err := nav.FilterUnreplied(ctx, frame); err != nil {
		return fail(err)
	}

	// PAGINATING
	state = StatePaginating
	p := *o.paginator
	p.Target = o.opts.MaxReviews
	res.Pagination = p.Expand(ctx, frame)
	if res.Pagination.Outcome == OutcomeCanceled {
		return fail(ctx.Err())
	}

	// EXTRACTING
	state = StateExtracting
	index := dedup.Build(ctx, o.store)
	fresh, err := o.extractAll(ctx, frame, index, &res)
	if err != nil {
		return fail(err)
	}

	// PERSISTING
	state = StatePersisting
	if len(fresh) > 0 {
		up, err := o.store.UpsertReviews(ctx, fresh)
		if err != nil {
			return fail(types.NewFatalError("store", fmt.Errorf("persist reviews: %w", err)))
		}
		res.New = up.Inserted
		res.Invalid += up.Invalid
		res.Failed += up.Failed
	}

	res.State = StateDone
	return res
}

func (o *Orchestrator) extractAll(ctx context.Context, frame browser.Frame, index *dedup.Index, res *Result) ([]domain.Review, error) {
	cards, err := frame.Locator(config.SelectorReviewCard).All()
	if err != nil {
		return nil, fmt.Errorf("list review cards: %w", err)
	}
	if len(cards) > o.opts.MaxReviews {
		cards = cards[:o.opts.MaxReviews]
	}

	var extracted []domain.Review
	for i, card := range cards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Examined++

		if err := card.ScrollIntoView(); err != nil {
			slog.Debug("scroll review into view failed", "index", i, "error", err)
		}

		rv, err := o.extractor.Extract(card)
		switch {
		case errors.Is(err, ErrInvalidReview):
			slog.Warn("skip invalid review", "index", i, "error", err)
			res.Invalid++
			metrics.ReviewsCollected.WithLabelValues("invalid").Inc()
			continue
		case err != nil:
			slog.Warn("extract review failed", "index", i, "error", err)
			res.Failed++
			metrics.ReviewsCollected.WithLabelValues("failed").Inc()
			continue
		}
		res.Extracted++
		extracted = append(extracted, *rv)

		if o.opts.ScreenshotEvery > 0 && res.Examined%o.opts.ScreenshotEvery == 0 {
			path := filepath.Join(o.opts.ScreenshotDir, fmt.Sprintf("collect_%d.png", res.Examined))
			if err := o.page.Screenshot(path); err != nil {
				slog.Debug("debug screenshot failed", "error", err)
			}
		}
	}

	fresh, dupes := index.Filter(extracted)
	res.Duplicates += dupes
	metrics.ReviewsCollected.WithLabelValues("duplicate").Add(float64(dupes))
	metrics.ReviewsCollected.WithLabelValues("new").Add(float64(len(fresh)))

	slog.Info("reviews extracted", "examined", res.Examined, "new", len(fresh), "duplicates", res.Duplicates, "invalid", res.Invalid)
	return fresh, nil
}

// finalize writes the run log. It runs detached from ctx so a canceled run
// is still recorded.
func (o *Orchestrator) finalize(ctx context.Context, res *Result, start time.Time) {
	status := domain.RunCompleted
	errMsg := ""
	if res.State != StateDone {
		res.State = StateFailed
		status = domain.RunFailed
		if res.Err != nil {
			errMsg = res.Err.Error()
		}
	}

	details := "{}"
	details, _ = sjson.Set(details, "pagination.outcome", string(res.Pagination.Outcome))
	details, _ = sjson.Set(details, "pagination.clicks", res.Pagination.Clicks)
	details, _ = sjson.Set(details, "duplicates", res.Duplicates)
	details, _ = sjson.Set(details, "invalid", res.Invalid)
	details, _ = sjson.Set(details, "failed", res.Failed)
	if res.FailedAt != "" {
		details, _ = sjson.Set(details, "failed_at", string(res.FailedAt))
	}

	completed := o.now().UTC()
	run := &domain.RunLog{
		ProcessType: domain.ProcessCollection,
		Status:      status,
		RunCounts: domain.RunCounts{
			ReviewsProcessed: res.Extracted,
			NewReviews:       res.New,
		},
		DurationSeconds: res.Duration.Seconds(),
		ErrorMessage:    errMsg,
		Details:         details,
		StartedAt:       start.UTC(),
		CompletedAt:     &completed,
	}

	id, err := o.store.LogRun(context.WithoutCancel(ctx), run)
	if err != nil {
		slog.Error("log collection run failed", "error", err)
	}
	res.RunID = id

	metrics.RunDuration.WithLabelValues(domain.ProcessCollection, status).Observe(res.Duration.Seconds())
	if res.State == StateDone {
		slog.Info("collection completed",
			"examined", res.Examined, "new", res.New, "duplicates", res.Duplicates,
			"invalid", res.Invalid, "failed", res.Failed, "duration", res.Duration)
	} else {
		slog.Error("collection failed", "step", res.FailedAt, "error", res.Err, "duration", res.Duration)
	}
}
