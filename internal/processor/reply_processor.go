package processor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pv-reviews/internal/domain"
	"pv-reviews/internal/metrics"
	"pv-reviews/internal/poster"
	"pv-reviews/internal/responder"
)

// Generator drafts a reply for one review
type Generator interface {
	Generate(ctx context.Context, in responder.ReviewInput) responder.Result
}

// Store is the part of the record store generation needs
type Store interface {
	Unreplied(ctx context.Context, limit int) ([]domain.Review, error)
	SaveResponse(ctx context.Context, reviewID, text, sentiment, issues string) (bool, error)
	LogProcessStart(ctx context.Context, processType string, details map[string]any) (string, error)
	LogProcessComplete(ctx context.Context, id, status string, counts domain.RunCounts, errMsg string) error
}

// Result summarizes a generation run
type Result struct {
	Processed int
	Generated int
	Skipped   int // older than the cutoff
	Failed    int
	Errors    []string
}

// ReplyProcessor drafts replies for unreplied reviews and stores them
type ReplyProcessor struct {
	generator Generator
	store     Store
	cutoff    time.Duration
	now       func() time.Time
}

// NewReplyProcessor creates a processor. Reviews older than cutoffWeeks are
// left alone; 0 disables the cutoff.
func NewReplyProcessor(generator Generator, store Store, cutoffWeeks int) *ReplyProcessor {
	return &ReplyProcessor{
		generator: generator,
		store:     store,
		cutoff:    time.Duration(cutoffWeeks) * 7 * 24 * time.Hour,
		now:       time.Now,
	}
}

// ProcessUnreplied generates and saves a reply for up to limit unreplied
// reviews. Per-review failures are counted; only store failures at the
// start abort the run.
func (p *ReplyProcessor) ProcessUnreplied(ctx context.Context, limit int) (res Result, err error) {
	start := p.now()
	slog.Info("generating replies", "limit", limit)

	runID, err := p.store.LogProcessStart(ctx, domain.ProcessGeneration, map[string]any{"limit": limit})
	if err != nil {
		return res, fmt.Errorf("log generation start: %w", err)
	}
	defer func() {
		p.complete(ctx, runID, res, err)
		metrics.RunDuration.WithLabelValues(domain.ProcessGeneration, runStatus(err)).Observe(p.now().Sub(start).Seconds())
	}()

	reviews, err := p.store.Unreplied(ctx, limit)
	if err != nil {
		return res, fmt.Errorf("load unreplied reviews: %w", err)
	}
	slog.Info("unreplied reviews loaded", "count", len(reviews))

	for _, rv := range reviews {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Processed++

		if p.tooOld(rv) {
			slog.Debug("skip old review", "review_id", rv.ReviewID, "time", rv.ReviewTime)
			res.Skipped++
			metrics.RepliesGenerated.WithLabelValues("skipped").Inc()
			continue
		}

		out := p.generator.Generate(ctx, responder.ReviewInput{
			Text:         rv.ReviewText,
			Rating:       rv.Rating,
			ReviewerName: rv.ReviewerName,
		})
		if !out.Success {
			p.fail(&res, rv.ReviewID, out.Error)
			continue
		}

		if _, err := p.store.SaveResponse(ctx, rv.ReviewID, out.ResponseText, out.Sentiment, out.Issues); err != nil {
			p.fail(&res, rv.ReviewID, fmt.Errorf("save response: %w", err))
			continue
		}
		res.Generated++
		slog.Info("reply generated", "review_id", rv.ReviewID, "sentiment", out.Sentiment, "issues", out.Issues)
	}

	slog.Info("generation completed",
		"processed", res.Processed, "generated", res.Generated, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

func (p *ReplyProcessor) tooOld(rv domain.Review) bool {
	if p.cutoff <= 0 {
		return false
	}
	now := p.now()
	t, ok := poster.ParseReviewTime(rv.ReviewTime, now)
	return ok && now.Sub(t) > p.cutoff
}

func (p *ReplyProcessor) fail(res *Result, reviewID string, err error) {
	slog.Warn("generate reply failed", "review_id", reviewID, "error", err)
	res.Failed++
	res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", reviewID, err))
}

func (p *ReplyProcessor) complete(ctx context.Context, runID string, res Result, runErr error) {
	status := runStatus(runErr)
	msg := ""
	switch {
	case runErr != nil:
		msg = runErr.Error()
	case len(res.Errors) > 0:
		msg = strings.Join(res.Errors[:min(3, len(res.Errors))], "; ")
	}
	counts := domain.RunCounts{
		ReviewsProcessed:   res.Processed,
		ResponsesGenerated: res.Generated,
	}
	if err := p.store.LogProcessComplete(context.WithoutCancel(ctx), runID, status, counts, msg); err != nil {
		slog.Error("log generation completion failed", "error", err)
	}
}

func runStatus(err error) string {
	if err != nil {
		return domain.RunFailed
	}
	return domain.RunCompleted
}
