// Package poster submits generated replies through the review management UI
// in throttled, resumable batches.
package poster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"pv-reviews/internal/browser"
	"pv-reviews/internal/config"
	"pv-reviews/internal/domain"
	"pv-reviews/internal/metrics"
	"pv-reviews/internal/progress"
	"pv-reviews/internal/types"
)

// Store is the part of the record store the poster needs.
type Store interface {
	MarkPosted(ctx context.Context, reviewIDs []string) error
	LogProcessStart(ctx context.Context, processType string, details map[string]any) (string, error)
	LogProcessComplete(ctx context.Context, id, status string, counts domain.RunCounts, errMsg string) error
}

// ListOpener returns a freshly loaded unreplied review list. It is called
// once per batch since the list goes stale during the pause between batches.
type ListOpener func(ctx context.Context) (browser.Frame, error)

// BatchResult is the outcome of one batch.
type BatchResult struct {
	Succeeded int
	Failed    int
	Skipped   int      // reply already present
	Posted    []string // ids now answered, including skipped ones
}

// RunResult aggregates a multi-batch run.
type RunResult struct {
	Total       int // replies handed in
	AlreadyDone int // found in progress and not retried
	Batches     int
	Succeeded   int
	Failed      int
	Skipped     int
}

// Poster posts replies.
type Poster struct {
	store       Store
	progress    progress.Store
	open        ListOpener
	confirmWait time.Duration
	now         func() time.Time
	jitter      func() float64 // uniform in [0, 1)
}

// NewPoster wires a poster. confirmWait is how long to wait after submitting
// before checking for the reply marker.
func NewPoster(store Store, prog progress.Store, open ListOpener, confirmWait time.Duration) *Poster {
	return &Poster{
		store:       store,
		progress:    prog,
		open:        open,
		confirmWait: confirmWait,
		now:         time.Now,
		jitter:      rand.Float64,
	}
}

// ProcessInBatches posts replies oldest first in batches of batchSize,
// skipping ids already recorded in progress. Progress is saved and posted
// replies are marked after every batch; a jittered delay (±20% of meanDelay)
// separates batches.
func (p *Poster) ProcessInBatches(ctx context.Context, replies []domain.PendingReply, batchSize int, meanDelay time.Duration) (res RunResult, err error) {
	if batchSize <= 0 {
		batchSize = 25
	}
	start := p.now()
	res.Total = len(replies)

	runID, err := p.store.LogProcessStart(ctx, domain.ProcessPosting, map[string]any{
		"batch_size": batchSize,
		"replies":    len(replies),
	})
	if err != nil {
		return res, types.NewFatalError("store", fmt.Errorf("log posting start: %w", err))
	}
	defer func() {
		p.finish(ctx, runID, res, err, p.now().Sub(start))
	}()

	done, err := p.progress.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("load progress: %w", err)
	}

	todo := make([]domain.PendingReply, 0, len(replies))
	for _, r := range replies {
		if done.Has(r.Review.ReviewID) {
			res.AlreadyDone++
			continue
		}
		todo = append(todo, r)
	}
	SortOldestFirst(todo, p.now())

	total := (len(todo) + batchSize - 1) / batchSize
	slog.Info("posting replies", "pending", len(todo), "already_done", res.AlreadyDone, "batches", total)

	for b := 0; b < total; b++ {
		batch := todo[b*batchSize : min((b+1)*batchSize, len(todo))]
		slog.Info("processing batch", "batch", b+1, "of", total, "size", len(batch))

		frame, err := p.open(ctx)
		if err != nil {
			return res, fmt.Errorf("open review list: %w", err)
		}

		br := p.PostBatch(ctx, frame, batch)
		res.Batches++
		res.Succeeded += br.Succeeded
		res.Failed += br.Failed
		res.Skipped += br.Skipped

		done.Add(br.Posted...)
		if err := p.progress.Save(ctx, done); err != nil {
			return res, fmt.Errorf("save progress: %w", err)
		}
		if err := p.store.MarkPosted(ctx, br.Posted); err != nil {
			return res, fmt.Errorf("mark posted: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if b < total-1 {
			delay := p.batchDelay(meanDelay)
			slog.Info("batch complete, pausing", "delay", delay.Round(time.Second))
			if err := browser.Sleep(ctx, delay); err != nil {
				return res, err
			}
		}
	}

	slog.Info("reply posting completed",
		"succeeded", res.Succeeded, "failed", res.Failed, "skipped", res.Skipped, "already_done", res.AlreadyDone)
	return res, nil
}

// batchDelay returns a uniform delay in [0.8, 1.2) x mean.
func (p *Poster) batchDelay(mean time.Duration) time.Duration {
	return time.Duration(float64(mean) * (0.8 + 0.4*p.jitter()))
}

// PostBatch posts each reply in order. Per-record failures are counted, never
// returned; cancellation stops the batch early.
func (p *Poster) PostBatch(ctx context.Context, frame browser.Frame, batch []domain.PendingReply) BatchResult {
	var res BatchResult
	for i, r := range batch {
		if ctx.Err() != nil {
			break
		}
		id := r.Review.ReviewID
		log := slog.With("review_id", id, "index", i+1, "of", len(batch))

		skipped, err := p.postOne(ctx, frame, r)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return res
		case err != nil:
			log.Error("post reply failed", "error", err)
			res.Failed++
			metrics.RepliesPosted.WithLabelValues(failureLabel(err)).Inc()
		case skipped:
			log.Info("reply already present, skipping")
			res.Skipped++
			res.Posted = append(res.Posted, id)
			metrics.RepliesPosted.WithLabelValues("existing").Inc()
		default:
			log.Info("reply posted")
			res.Succeeded++
			res.Posted = append(res.Posted, id)
			metrics.RepliesPosted.WithLabelValues("posted").Inc()
		}
	}
	return res
}

var (
	errReviewMissing = errors.New("review not found in list")
	errNotConfirmed  = errors.New("reply marker absent after submit")
)

func failureLabel(err error) string {
	switch {
	case errors.Is(err, errReviewMissing):
		return "missing"
	case errors.Is(err, errNotConfirmed):
		return "unconfirmed"
	default:
		return "failed"
	}
}

func (p *Poster) postOne(ctx context.Context, frame browser.Frame, r domain.PendingReply) (skipped bool, err error) {
	container := frame.Locator(fmt.Sprintf(config.SelectorReplyContainer, r.Review.ReviewID)).First()
	if !browser.Exists(container) {
		return false, errReviewMissing
	}
	if hasBusinessReply(container) {
		return true, nil
	}

	reply := container.Locator(config.SelectorReplyButton).First()
	if !reply.Visible() || !reply.Enabled() {
		return false, errors.New("reply button not found or not enabled")
	}
	if err := reply.Click(); err != nil {
		return false, fmt.Errorf("click reply: %w", err)
	}

	// The reply form opens inside the review's own container; an earlier
	// unconfirmed reply may have left another form open elsewhere in the frame.
	if err := container.Locator(config.SelectorReplyTextarea).First().Fill(r.Response.ResponseText); err != nil {
		return false, fmt.Errorf("fill reply: %w", err)
	}
	if err := container.Locator(config.SelectorReplySubmit).First().Click(); err != nil {
		return false, fmt.Errorf("submit reply: %w", err)
	}

	if err := browser.Sleep(ctx, p.confirmWait); err != nil {
		return false, err
	}
	if !hasBusinessReply(container) {
		return false, errNotConfirmed
	}
	return false, nil
}

func hasBusinessReply(container browser.Element) bool {
	text, err := container.Text()
	return err == nil && strings.Contains(text, config.BusinessReplyMarker)
}

func (p *Poster) finish(ctx context.Context, runID string, res RunResult, runErr error, elapsed time.Duration) {
	status := domain.RunCompleted
	msg := ""
	if runErr != nil {
		status = domain.RunFailed
		msg = runErr.Error()
	}
	metrics.RunDuration.WithLabelValues(domain.ProcessPosting, status).Observe(elapsed.Seconds())
	if runID == "" {
		return
	}
	counts := domain.RunCounts{
		ReviewsProcessed: res.Succeeded + res.Failed + res.Skipped,
		ResponsesPosted:  res.Succeeded + res.Skipped,
	}
	if err := p.store.LogProcessComplete(context.WithoutCancel(ctx), runID, status, counts, msg); err != nil {
		slog.Error("log posting completion failed", "error", err)
	}
}
