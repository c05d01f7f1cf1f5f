package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"pv-reviews/internal/config"
	"pv-reviews/internal/domain"
	"pv-reviews/internal/metrics"
)

// EmailNotifier sends an HTML summary over SMTP. smtp.SendMail upgrades the
// connection with STARTTLS when the server offers it.
type EmailNotifier struct {
	cfg      config.EmailConfig
	business string
	now      func() time.Time
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier creates an email notifier.
func NewEmailNotifier(cfg config.EmailConfig, business string) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, business: business, now: time.Now, sendMail: smtp.SendMail}
}

// SendDailySummary renders and sends the summary mail.
func (e *EmailNotifier) SendDailySummary(ctx context.Context, summary *domain.RunSummary) bool {
	if e.cfg.SenderEmail == "" || e.cfg.SenderPassword == "" {
		slog.Warn("cannot send email, credentials not configured")
		return false
	}

	msg, err := e.message(summary)
	if err != nil {
		slog.Error("render summary email failed", "error", err)
		metrics.NotificationsSent.WithLabelValues("email", "error").Inc()
		return false
	}

	addr := net.JoinHostPort(e.cfg.SMTPServer, strconv.Itoa(e.cfg.SMTPPort))
	auth := smtp.PlainAuth("", e.cfg.SenderEmail, e.cfg.SenderPassword, e.cfg.SMTPServer)
	if err := e.sendMail(addr, auth, e.cfg.SenderEmail, []string{e.cfg.RecipientEmail}, msg); err != nil {
		slog.Error("send email failed", "error", err)
		metrics.NotificationsSent.WithLabelValues("email", "error").Inc()
		return false
	}
	slog.Info("daily summary email sent", "to", e.cfg.RecipientEmail)
	metrics.NotificationsSent.WithLabelValues("email", "success").Inc()
	return true
}

func (e *EmailNotifier) message(summary *domain.RunSummary) ([]byte, error) {
	var body bytes.Buffer
	if err := summaryTmpl.Execute(&body, e.view(summary)); err != nil {
		return nil, fmt.Errorf("execute summary template: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", e.cfg.SenderEmail)
	fmt.Fprintf(&msg, "To: %s\r\n", e.cfg.RecipientEmail)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", Subject(summary)))
	fmt.Fprintf(&msg, "Date: %s\r\n", e.now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

type runView struct {
	Date     string
	Status   string
	OK       bool
	Process  string
	Examined int
	New      int
	Duration string
	Error    string
}

type summaryView struct {
	Business  string
	Total     int
	Unreplied int
	Generated string
	NextRun   string
	Latest    *runView
	Recent    []runView
}

func (e *EmailNotifier) view(s *domain.RunSummary) summaryView {
	now := e.now().UTC()
	v := summaryView{
		Business:  e.business,
		Total:     s.TotalReviews,
		Unreplied: s.UnrepliedReviews,
		Generated: now.Format("January 02, 2006 at 15:04 UTC"),
		NextRun:   now.AddDate(0, 0, 1).Format("January 02, 2006"),
	}
	toView := func(r domain.RunLog) runView {
		return runView{
			Date:     r.StartedAt.UTC().Format("2006-01-02 15:04"),
			Status:   r.Status,
			OK:       r.Status == domain.RunCompleted,
			Process:  r.ProcessType,
			Examined: r.ReviewsProcessed,
			New:      r.NewReviews,
			Duration: fmt.Sprintf("%.1fs", r.DurationSeconds),
			Error:    r.ErrorMessage,
		}
	}
	if latest := s.LatestRun(domain.ProcessCollection); latest != nil {
		lv := toView(*latest)
		v.Latest = &lv
	}
	if len(s.RecentRuns) > 1 {
		for i, r := range s.RecentRuns {
			if i == 7 {
				break
			}
			v.Recent = append(v.Recent, toView(r))
		}
	}
	return v
}

var summaryTmpl = template.Must(template.New("summary").Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px;">🏮 {{.Business}} Reviews - Daily Summary</h2>
  <div style="background: #f8f9fa; padding: 15px; border-radius: 8px; margin: 20px 0;">
    <h3 style="margin-top: 0; color: #495057;">📊 Overview</h3>
    <ul style="list-style: none; padding: 0;">
      <li><strong>Total Reviews:</strong> {{.Total}}</li>
      <li><strong>Unreplied Reviews:</strong> {{.Unreplied}}</li>
      <li><strong>Generated:</strong> {{.Generated}}</li>
    </ul>
  </div>
{{- with .Latest}}
  <div style="border-left: 4px solid {{if .OK}}#28a745{{else}}#dc3545{{end}}; padding: 15px; margin: 20px 0;">
    <h3 style="margin-top: 0;">{{if .OK}}✅{{else}}❌{{end}} Latest Run</h3>
    <ul style="list-style: none; padding: 0;">
      <li><strong>Date:</strong> {{.Date}}</li>
      <li><strong>Status:</strong> {{.Status}}</li>
      <li><strong>Reviews Collected:</strong> {{.Examined}}</li>
      <li><strong>New Reviews:</strong> {{.New}}</li>
      <li><strong>Duration:</strong> {{.Duration}}</li>
      {{- if .Error}}
      <li style="color: #dc3545;"><strong>Error:</strong> {{.Error}}</li>
      {{- end}}
    </ul>
  </div>
{{- end}}
{{- if .Recent}}
  <h3 style="color: #495057;">📅 Recent Runs (Last 7 Days)</h3>
  <table style="width: 100%; border-collapse: collapse; border: 1px solid #dee2e6;">
    <thead><tr><th>Date</th><th>Process</th><th>Status</th><th>New Reviews</th><th>Duration</th></tr></thead>
    <tbody>
    {{- range .Recent}}
      <tr><td>{{.Date}}</td><td>{{.Process}}</td><td style="color: {{if .OK}}#28a745{{else}}#dc3545{{end}};">{{.Status}}</td><td>{{.New}}</td><td>{{.Duration}}</td></tr>
    {{- end}}
    </tbody>
  </table>
{{- end}}
  <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #dee2e6; font-size: 0.9em; color: #6c757d;">
    <p>This is an automated report from the PV Reviews collection system.</p>
    <p><strong>Next scheduled run:</strong> {{.NextRun}}</p>
  </div>
</div>
</body>
</html>
`))
