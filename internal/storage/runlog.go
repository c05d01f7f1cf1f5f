package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"

	"pv-reviews/internal/domain"
)

const selectRunCols = `
    id, process_type, status, reviews_processed, new_reviews, responses_generated,
    responses_posted, duration_seconds, error_message, details, started_at, completed_at`

// LogRun inserts a complete run entry in one shot.
func (r *SQLRepository) LogRun(ctx context.Context, run *domain.RunLog) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Details == "" {
		run.Details = "{}"
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx, r.rebind(`
        INSERT INTO run_logs (`+selectRunCols+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.ProcessType, run.Status, run.ReviewsProcessed, run.NewReviews, run.ResponsesGenerated,
		run.ResponsesPosted, run.DurationSeconds, run.ErrorMessage, run.Details, run.StartedAt.UTC(), nullTime(run.CompletedAt),
	)
	if err != nil {
		return "", fmt.Errorf("insert run log: %w", err)
	}
	return run.ID, nil
}

// LogProcessStart opens a run entry in status started and returns its id.
func (r *SQLRepository) LogProcessStart(ctx context.Context, processType string, details map[string]any) (string, error) {
	doc, err := detailsJSON(details)
	if err != nil {
		return "", err
	}
	return r.LogRun(ctx, &domain.RunLog{
		ProcessType: processType,
		Status:      domain.RunStarted,
		Details:     doc,
		StartedAt:   r.now(),
	})
}

// LogProcessComplete finalizes a started run. It may be called once per run.
func (r *SQLRepository) LogProcessComplete(ctx context.Context, id, status string, counts domain.RunCounts, errMsg string) error {
	if status != domain.RunCompleted && status != domain.RunFailed {
		return fmt.Errorf("invalid terminal status %q", status)
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	var started time.Time
	err = tx.QueryRowContext(ctx, r.rebind(`SELECT status, started_at FROM run_logs WHERE id = ?`), id).Scan(&current, &started)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	if current != domain.RunStarted {
		return fmt.Errorf("run %s: %w", id, ErrAlreadyCompleted)
	}

	now := r.now()
	if _, err := tx.ExecContext(ctx, r.rebind(`
        UPDATE run_logs
        SET status = ?, reviews_processed = ?, new_reviews = ?, responses_generated = ?,
            responses_posted = ?, duration_seconds = ?, error_message = ?, completed_at = ?
        WHERE id = ?`),
		status, counts.ReviewsProcessed, counts.NewReviews, counts.ResponsesGenerated,
		counts.ResponsesPosted, now.Sub(started).Seconds(), errMsg, now, id,
	); err != nil {
		return fmt.Errorf("update run log: %w", err)
	}
	return tx.Commit()
}

// GetRun loads one run entry.
func (r *SQLRepository) GetRun(ctx context.Context, id string) (*domain.RunLog, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	run, err := scanRun(r.db.QueryRowContext(ctx, r.rebind(`SELECT `+selectRunCols+` FROM run_logs WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// RunSummary aggregates totals and the runs started in the last days.
func (r *SQLRepository) RunSummary(ctx context.Context, days int) (*domain.RunSummary, error) {
	if days <= 0 {
		days = 7
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	summary := &domain.RunSummary{}
	since := r.now().AddDate(0, 0, -days)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.QueryRowContext(gctx, `SELECT COUNT(*) FROM reviews`).Scan(&summary.TotalReviews)
	})
	g.Go(func() error {
		return r.db.QueryRowContext(gctx, r.rebind(`SELECT COUNT(*) FROM reviews WHERE has_response = ?`), false).
			Scan(&summary.UnrepliedReviews)
	})
	g.Go(func() error {
		rows, err := r.db.QueryContext(gctx, r.rebind(`
            SELECT `+selectRunCols+` FROM run_logs
            WHERE started_at >= ?
            ORDER BY started_at DESC`), since)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			run, err := scanRun(rows)
			if err != nil {
				slog.Warn("scan run log failed", "error", err)
				continue
			}
			summary.RecentRuns = append(summary.RecentRuns, *run)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run summary: %w", err)
	}
	return summary, nil
}

func scanRun(s Scanner) (*domain.RunLog, error) {
	var (
		run       domain.RunLog
		completed sql.NullTime
	)
	if err := s.Scan(
		&run.ID, &run.ProcessType, &run.Status, &run.ReviewsProcessed, &run.NewReviews, &run.ResponsesGenerated,
		&run.ResponsesPosted, &run.DurationSeconds, &run.ErrorMessage, &run.Details, &run.StartedAt, &completed,
	); err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time
		run.CompletedAt = &t
	}
	return &run, nil
}

// detailsJSON renders details as a JSON object with keys in sorted order.
func detailsJSON(details map[string]any) (string, error) {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := "{}"
	for _, k := range keys {
		var err error
		doc, err = sjson.Set(doc, sjsonEscape(k), details[k])
		if err != nil {
			return "", fmt.Errorf("encode detail %s: %w", k, err)
		}
	}
	return doc, nil
}

// sjsonEscape keeps dots and wildcards in keys from being read as paths.
func sjsonEscape(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(key)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func splitCols(cols string) []string {
	var out []string
	for _, c := range strings.Split(cols, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func joinCols(cols []string) string {
	return strings.Join(cols, ", ")
}
