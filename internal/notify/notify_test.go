package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pv-reviews/internal/config"
	"pv-reviews/internal/domain"
)

func summaryWith(runs ...domain.RunLog) *domain.RunSummary {
	return &domain.RunSummary{TotalReviews: 120, UnrepliedReviews: 7, RecentRuns: runs}
}

func collectionRun(status string, newReviews int) domain.RunLog {
	return domain.RunLog{
		ProcessType:     domain.ProcessCollection,
		Status:          status,
		RunCounts:       domain.RunCounts{ReviewsProcessed: 40, NewReviews: newReviews},
		DurationSeconds: 93.25,
		StartedAt:       time.Date(2026, 5, 1, 21, 0, 0, 0, time.UTC),
	}
}

func TestSubject(t *testing.T) {
	tests := []struct {
		name    string
		summary *domain.RunSummary
		want    string
	}{
		{"no runs", summaryWith(), "🔍 PV Reviews: No recent runs"},
		{"only generation", summaryWith(domain.RunLog{ProcessType: domain.ProcessGeneration, Status: domain.RunCompleted}), "🔍 PV Reviews: No recent runs"},
		{"new reviews", summaryWith(collectionRun(domain.RunCompleted, 5)), "✅ PV Reviews: 5 new reviews collected"},
		{"up to date", summaryWith(collectionRun(domain.RunCompleted, 0)), "✅ PV Reviews: No new reviews (all up to date)"},
		{"failed", summaryWith(collectionRun(domain.RunFailed, 0)), "❌ PV Reviews: Collection failed - failed"},
		{"latest wins", summaryWith(collectionRun(domain.RunCompleted, 2), collectionRun(domain.RunFailed, 0)), "✅ PV Reviews: 2 new reviews collected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Subject(tt.summary); got != tt.want {
				t.Errorf("Subject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func testEmailConfig() config.EmailConfig {
	return config.EmailConfig{
		SMTPServer:     "smtp.example.com",
		SMTPPort:       587,
		SenderEmail:    "bot@example.com",
		SenderPassword: "secret",
		RecipientEmail: "owner@example.com",
	}
}

func TestEmailNotifier_SendDailySummary(t *testing.T) {
	n := NewEmailNotifier(testEmailConfig(), "Paati Veedu")
	n.now = func() time.Time { return time.Date(2026, 5, 2, 6, 0, 0, 0, time.UTC) }

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg string
	n.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	failed := collectionRun(domain.RunFailed, 0)
	failed.ErrorMessage = "fatal auth error: <wrong password>"
	ok := n.SendDailySummary(context.Background(), summaryWith(failed, collectionRun(domain.RunCompleted, 3)))
	if !ok {
		t.Fatal("expected send to succeed")
	}

	if gotAddr != "smtp.example.com:587" || gotFrom != "bot@example.com" || len(gotTo) != 1 || gotTo[0] != "owner@example.com" {
		t.Errorf("unexpected envelope %s %s %v", gotAddr, gotFrom, gotTo)
	}
	for _, want := range []string{
		"Subject: =?utf-8?q?",
		"Content-Type: text/html",
		"<strong>Total Reviews:</strong> 120",
		"<strong>Unreplied Reviews:</strong> 7",
		"Paati Veedu Reviews - Daily Summary",
		"&lt;wrong password&gt;",
		"93.2s",
		"May 03, 2026",
	} {
		if !strings.Contains(gotMsg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestEmailNotifier_Failures(t *testing.T) {
	cfg := testEmailConfig()
	cfg.SenderPassword = ""
	if NewEmailNotifier(cfg, "").SendDailySummary(context.Background(), summaryWith()) {
		t.Error("expected false without credentials")
	}

	n := NewEmailNotifier(testEmailConfig(), "")
	n.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("535 auth failed") }
	if n.SendDailySummary(context.Background(), summaryWith()) {
		t.Error("expected false on smtp error")
	}
}

// MockSender mocks the Sender interface
type MockSender struct {
	SendFunc func(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Sent     []tgbotapi.MessageConfig
}

func (m *MockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if mc, ok := c.(tgbotapi.MessageConfig); ok {
		m.Sent = append(m.Sent, mc)
	}
	if m.SendFunc != nil {
		return m.SendFunc(c)
	}
	return tgbotapi.Message{}, nil
}

func TestTelegramNotifier_SendDailySummary(t *testing.T) {
	sender := &MockSender{}
	n := NewTelegramNotifier(config.TelegramConfig{BotToken: "t", ChatID: 42}, "Paati Veedu")
	n.connect = func(string) (Sender, error) { return sender, nil }

	gen := domain.RunLog{ProcessType: domain.ProcessGeneration, Status: domain.RunCompleted, RunCounts: domain.RunCounts{ResponsesGenerated: 4}}
	if !n.SendDailySummary(context.Background(), summaryWith(gen, collectionRun(domain.RunCompleted, 2))) {
		t.Fatal("expected send to succeed")
	}
	if len(sender.Sent) != 1 || sender.Sent[0].ChatID != 42 {
		t.Fatalf("unexpected sends %+v", sender.Sent)
	}
	text := sender.Sent[0].Text
	for _, want := range []string{"✅ PV Reviews: 2 new reviews collected", "Unreplied reviews: 7", "generation: completed", "4 generated", "2 new of 40"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
}

func TestTelegramNotifier_ConnectFailure(t *testing.T) {
	n := NewTelegramNotifier(config.TelegramConfig{BotToken: "t", ChatID: 42}, "")
	n.connect = func(string) (Sender, error) { return nil, errors.New("unauthorized") }
	if n.SendDailySummary(context.Background(), summaryWith()) {
		t.Error("expected false on connect failure")
	}
}

// stubNotifier is a Notifier with a fixed outcome
type stubNotifier struct {
	ok    bool
	calls int
}

func (s *stubNotifier) SendDailySummary(ctx context.Context, summary *domain.RunSummary) bool {
	s.calls++
	return s.ok
}

func TestMulti(t *testing.T) {
	a, b := &stubNotifier{ok: false}, &stubNotifier{ok: true}
	if !(Multi{a, b}).SendDailySummary(context.Background(), summaryWith()) {
		t.Error("expected true when any notifier succeeds")
	}
	if a.calls != 1 || b.calls != 1 {
		t.Error("expected every notifier called")
	}
	if (Multi{a}).SendDailySummary(context.Background(), summaryWith()) {
		t.Error("expected false when all fail")
	}
	if (Multi{}).SendDailySummary(context.Background(), summaryWith()) {
		t.Error("expected false with no notifiers")
	}
}

func TestNew_SkipsUnconfigured(t *testing.T) {
	cfg := &config.Config{}
	if len(New(cfg)) != 0 {
		t.Error("expected no notifiers")
	}
	cfg.Notify.Email = testEmailConfig()
	cfg.Notify.Telegram = config.TelegramConfig{BotToken: "t", ChatID: 1}
	if len(New(cfg)) != 2 {
		t.Error("expected two notifiers")
	}
}
