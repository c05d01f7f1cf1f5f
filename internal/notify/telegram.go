package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pv-reviews/internal/config"
	"pv-reviews/internal/domain"
	"pv-reviews/internal/metrics"
)

// Sender is the part of tgbotapi.BotAPI used to deliver messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts a plain-text summary to a chat.
type TelegramNotifier struct {
	cfg      config.TelegramConfig
	business string
	sender   Sender
	connect  func(token string) (Sender, error)
}

// NewTelegramNotifier creates a notifier. The bot connects on first use.
func NewTelegramNotifier(cfg config.TelegramConfig, business string) *TelegramNotifier {
	return &TelegramNotifier{
		cfg:      cfg,
		business: business,
		connect: func(token string) (Sender, error) {
			return tgbotapi.NewBotAPI(token)
		},
	}
}

// SendDailySummary sends the summary text.
func (t *TelegramNotifier) SendDailySummary(ctx context.Context, summary *domain.RunSummary) bool {
	if t.cfg.BotToken == "" || t.cfg.ChatID == 0 {
		slog.Warn("cannot send telegram message, bot not configured")
		return false
	}
	if t.sender == nil {
		s, err := t.connect(t.cfg.BotToken)
		if err != nil {
			slog.Error("connect telegram bot failed", "error", err)
			metrics.NotificationsSent.WithLabelValues("telegram", "error").Inc()
			return false
		}
		t.sender = s
	}

	msg := tgbotapi.NewMessage(t.cfg.ChatID, TelegramText(t.business, summary))
	if _, err := t.sender.Send(msg); err != nil {
		slog.Error("send telegram message failed", "error", err)
		metrics.NotificationsSent.WithLabelValues("telegram", "error").Inc()
		return false
	}
	slog.Info("daily summary sent to telegram", "chat_id", t.cfg.ChatID)
	metrics.NotificationsSent.WithLabelValues("telegram", "success").Inc()
	return true
}

// TelegramText renders the summary as plain text.
func TelegramText(business string, s *domain.RunSummary) string {
	var sb strings.Builder
	sb.WriteString(Subject(s))
	sb.WriteString("\n\n")
	if business != "" {
		fmt.Fprintf(&sb, "%s\n", business)
	}
	fmt.Fprintf(&sb, "Total reviews: %d\n", s.TotalReviews)
	fmt.Fprintf(&sb, "Unreplied reviews: %d\n", s.UnrepliedReviews)

	for _, process := range []string{domain.ProcessCollection, domain.ProcessGeneration, domain.ProcessPosting} {
		run := s.LatestRun(process)
		if run == nil {
			continue
		}
		fmt.Fprintf(&sb, "\n%s: %s (%.1fs)", process, run.Status, run.DurationSeconds)
		switch process {
		case domain.ProcessCollection:
			fmt.Fprintf(&sb, ", %d new of %d", run.NewReviews, run.ReviewsProcessed)
		case domain.ProcessGeneration:
			fmt.Fprintf(&sb, ", %d generated", run.ResponsesGenerated)
		case domain.ProcessPosting:
			fmt.Fprintf(&sb, ", %d posted", run.ResponsesPosted)
		}
		if run.ErrorMessage != "" {
			fmt.Fprintf(&sb, "\n  error: %s", run.ErrorMessage)
		}
	}
	return sb.String()
}
