package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pv-reviews/internal/collector"
	"pv-reviews/internal/poster"
	"pv-reviews/internal/processor"
)

// DailyResult aggregates one daily run.
type DailyResult struct {
	Collection collector.Result
	Generation processor.Result
	Posting    poster.RunResult
	Posted     bool // posting step ran
	Notified   bool
	Duration   time.Duration
	Err        error // all step errors, joined
}

// RunDaily collects, generates, optionally posts, then notifies. A failing
// step is logged and does not stop the later ones; notification is always
// attempted.
func (p *Pipeline) RunDaily(ctx context.Context) DailyResult {
	start := time.Now()
	var res DailyResult
	var errs []error

	slog.Info("daily run started")

	col, err := p.Collect(ctx)
	res.Collection = col
	if err != nil {
		slog.Error("collection step failed", "error", err)
		errs = append(errs, err)
	}

	if ctx.Err() == nil {
		gen, err := p.Generate(ctx, p.cfg.Generation.Limit)
		res.Generation = gen
		if err != nil {
			slog.Error("generation step failed", "error", err)
			errs = append(errs, err)
		}
	}

	if p.cfg.Posting.Auto && ctx.Err() == nil {
		post, err := p.Post(ctx, p.cfg.Posting.Limit)
		res.Posting, res.Posted = post, true
		if err != nil {
			slog.Error("posting step failed", "error", err)
			errs = append(errs, err)
		}
	}

	// Notify on a detached context so an interrupted run is still reported
	res.Notified = p.Notify(context.WithoutCancel(ctx))
	res.Duration = time.Since(start)
	res.Err = errors.Join(errs...)

	slog.Info("daily run finished",
		"new_reviews", res.Collection.New,
		"generated", res.Generation.Generated,
		"posted", res.Posting.Succeeded,
		"notified", res.Notified,
		"duration", res.Duration,
		"failed", res.Err != nil)
	return res
}
