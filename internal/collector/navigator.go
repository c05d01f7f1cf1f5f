package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pv-reviews/internal/browser"
	"pv-reviews/internal/config"
)

// Navigator opens the review management surface of one listing.
type Navigator struct {
	Page        browser.Page
	ListingID   string
	BusinessURL string
	Settle      time.Duration
}

// OpenReviews loads the business page, opens the reviews panel and returns
// the embedded review-list frame.
func (n *Navigator) OpenReviews(ctx context.Context) (browser.Frame, error) {
	if err := n.Page.Goto(ctx, n.BusinessURL); err != nil {
		return nil, fmt.Errorf("open business page: %w", err)
	}

	if notNow := n.Page.Locator(config.SelectorNotNow).First(); notNow.Visible() {
		if err := notNow.Click(); err == nil {
			slog.Info("dismissed not now popup")
		}
	}

	if err := n.Page.Locator(config.SelectorReadReviews).Click(); err != nil {
		return nil, fmt.Errorf("open reviews panel: %w", err)
	}
	if err := browser.Sleep(ctx, n.Settle); err != nil {
		return nil, err
	}
	return n.Page.FrameLocator(fmt.Sprintf(config.SelectorReviewFrame, n.ListingID)), nil
}

// FilterUnreplied applies the "Unreplied" tab inside frame.
func (n *Navigator) FilterUnreplied(ctx context.Context, frame browser.Frame) error {
	if err := frame.Locator(config.SelectorUnrepliedTab).Click(); err != nil {
		return fmt.Errorf("apply unreplied filter: %w", err)
	}
	return browser.Sleep(ctx, n.Settle)
}

// OpenUnreplied opens the review list, filters it and loads every page.
func (n *Navigator) OpenUnreplied(ctx context.Context, p *Paginator) (browser.Frame, PaginationResult, error) {
	frame, err := n.OpenReviews(ctx)
	if err != nil {
		return nil, PaginationResult{}, err
	}
	if err := n.FilterUnreplied(ctx, frame); err != nil {
		return nil, PaginationResult{}, err
	}
	res := p.Expand(ctx, frame)
	if res.Outcome == OutcomeCanceled {
		return nil, res, ctx.Err()
	}
	return frame, res, nil
}
