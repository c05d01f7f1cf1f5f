// Package notify delivers the daily run summary.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"pv-reviews/internal/config"
	"pv-reviews/internal/domain"
)

// Notifier sends a run summary. It reports delivery success and never
// returns an error: a failed notification must not fail the run.
type Notifier interface {
	SendDailySummary(ctx context.Context, summary *domain.RunSummary) bool
}

// Multi fans out to every notifier.
type Multi []Notifier

// SendDailySummary reports whether at least one notifier delivered.
func (m Multi) SendDailySummary(ctx context.Context, summary *domain.RunSummary) bool {
	sent := false
	for _, n := range m {
		if n.SendDailySummary(ctx, summary) {
			sent = true
		}
	}
	return sent
}

// New builds a Multi from every configured channel. Channels without
// credentials are left out with a warning.
func New(cfg *config.Config) Multi {
	var m Multi
	if e := cfg.Notify.Email; e.SenderEmail != "" && e.SenderPassword != "" {
		m = append(m, NewEmailNotifier(e, cfg.Business.Name))
	} else {
		slog.Warn("email credentials not configured, email notifications disabled")
	}
	if t := cfg.Notify.Telegram; t.BotToken != "" && t.ChatID != 0 {
		m = append(m, NewTelegramNotifier(t, cfg.Business.Name))
	}
	return m
}

// Subject summarizes the latest collection run in one line.
func Subject(s *domain.RunSummary) string {
	run := s.LatestRun(domain.ProcessCollection)
	switch {
	case run == nil:
		return "🔍 PV Reviews: No recent runs"
	case run.Status != domain.RunCompleted:
		return fmt.Sprintf("❌ PV Reviews: Collection failed - %s", run.Status)
	case run.NewReviews > 0:
		return fmt.Sprintf("✅ PV Reviews: %d new reviews collected", run.NewReviews)
	default:
		return "✅ PV Reviews: No new reviews (all up to date)"
	}
}
