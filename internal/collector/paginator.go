package collector

import (
	"context"
	"log/slog"
	"time"

	"pv-reviews/internal/browser"
	"pv-reviews/internal/config"
	"pv-reviews/internal/metrics"
)

// Outcome is the terminal state of a pagination loop.
type Outcome string

const (
	// OutcomeDone means the list stopped growing or reached the target.
	OutcomeDone Outcome = "DONE"
	// OutcomeExhausted means the retry ceiling was hit. The caller proceeds
	// with what was loaded.
	OutcomeExhausted Outcome = "EXHAUSTED"
	// OutcomeCanceled means the context ended the loop.
	OutcomeCanceled Outcome = "CANCELED"
)

// PaginationResult reports how far the list was expanded.
type PaginationResult struct {
	Count    int
	Clicks   int
	Attempts int
	Outcome  Outcome
}

// Paginator clicks "More Reviews" until the review list stops growing.
type Paginator struct {
	MaxAttempts int           // consecutive attempts without growth before giving up
	Settle      time.Duration // wait after each click or scroll
	Target      int           // stop once this many cards are loaded, 0 = no target
}

// NewPaginator creates a Paginator with the given ceiling and settle time.
func NewPaginator(maxAttempts int, settle time.Duration) *Paginator {
	if maxAttempts <= 0 {
		maxAttempts = 30
	}
	return &Paginator{MaxAttempts: maxAttempts, Settle: settle}
}

type pageState int

const (
	stateLoading pageState = iota
	stateChecking
)

// Expand drives the LOADING / CHECKING loop. Click and wait failures count as
// an attempt without progress; only growth resets the attempt counter.
func (p *Paginator) Expand(ctx context.Context, frame browser.Frame) PaginationResult {
	cards := frame.Locator(config.SelectorReviewCard)
	res := PaginationResult{Count: countOf(cards, 0)}

	state := stateLoading
	before := res.Count
	for {
		if ctx.Err() != nil {
			res.Outcome = OutcomeCanceled
			return res
		}
		if p.Target > 0 && res.Count >= p.Target {
			res.Outcome = OutcomeDone
			return res
		}

		switch state {
		case stateLoading:
			if res.Attempts >= p.MaxAttempts {
				slog.Warn("pagination retry ceiling hit, continuing with partial list", "count", res.Count, "attempts", res.Attempts)
				res.Outcome = OutcomeExhausted
				return res
			}
			res.Attempts++
			before = res.Count

			more := frame.Locator(config.SelectorMoreReviews).First()
			if !more.Visible() {
				// No control: let the list lazy-load by scrolling to its end.
				p.scrollToEnd(frame)
			} else if err := more.Click(); err != nil {
				slog.Warn("click more reviews failed", "attempt", res.Attempts, "error", err)
				continue
			} else {
				res.Clicks++
				metrics.PaginationClicks.Inc()
			}
			if err := browser.Sleep(ctx, p.Settle); err != nil {
				continue
			}
			state = stateChecking

		case stateChecking:
			res.Count = countOf(cards, res.Count)
			if res.Count > before {
				slog.Debug("loaded more reviews", "from", before, "to", res.Count)
				res.Attempts = 0
				state = stateLoading
				continue
			}

			// One scroll fallback before declaring the list complete
			p.scrollToEnd(frame)
			if err := browser.Sleep(ctx, p.Settle); err != nil {
				continue
			}
			res.Count = countOf(cards, res.Count)
			if res.Count > before {
				res.Attempts = 0
				state = stateLoading
				continue
			}
			slog.Info("no more reviews to load", "count", res.Count)
			res.Outcome = OutcomeDone
			return res
		}
	}
}

func (p *Paginator) scrollToEnd(frame browser.Frame) {
	if err := frame.Locator(config.SelectorScrollAnchor).Last().ScrollIntoView(); err != nil {
		slog.Debug("scroll review list failed", "error", err)
	}
}

// countOf returns the number of nodes behind el, or prev when the count
// cannot be read.
func countOf(el browser.Element, prev int) int {
	n, err := el.Count()
	if err != nil {
		slog.Warn("count reviews failed", "error", err)
		return prev
	}
	return n
}
