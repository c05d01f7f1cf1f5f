package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"pv-reviews/internal/domain"
)

// SaveResponse stores a generated reply and flags its review in one transaction.
// Nothing is written when either step fails.
func (r *SQLRepository) SaveResponse(ctx context.Context, reviewID, text, sentiment, issues string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.rebind(`
        INSERT INTO responses (id, review_id, response_text, sentiment, issues, status, generated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`),
		uuid.NewString(), reviewID, text, sentiment, issues, domain.ResponseGenerated, r.now(),
	); err != nil {
		return false, fmt.Errorf("insert response: %w", err)
	}

	res, err := tx.ExecContext(ctx, r.rebind(`UPDATE reviews SET has_response = ? WHERE review_id = ?`), true, reviewID)
	if err != nil {
		return false, fmt.Errorf("flag review: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return false, fmt.Errorf("review %s: %w", reviewID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// PendingResponses returns the latest generated, unposted reply of each review,
// oldest generation first.
func (r *SQLRepository) PendingResponses(ctx context.Context, limit int) ([]domain.PendingReply, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.rebind(`
        SELECT resp.id, resp.review_id, resp.response_text, resp.sentiment, resp.issues,
               resp.status, resp.generated_at, resp.posted_at, `+prefixed("rv", selectReviewCols)+`
        FROM responses resp
        JOIN reviews rv ON rv.review_id = resp.review_id
        WHERE resp.status = ?
          AND resp.generated_at = (
              SELECT MAX(r2.generated_at) FROM responses r2
              WHERE r2.review_id = resp.review_id AND r2.status = ?)
        ORDER BY resp.generated_at ASC, resp.review_id`+limitClause(limit)),
		domain.ResponseGenerated, domain.ResponseGenerated)
	if err != nil {
		return nil, fmt.Errorf("query pending responses: %w", err)
	}
	defer rows.Close()

	var out []domain.PendingReply
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			slog.Warn("scan pending response failed", "error", err)
			continue
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// MarkPosted flags reviews as answered and moves their generated replies to posted.
func (r *SQLRepository) MarkPosted(ctx context.Context, reviewIDs []string) error {
	if len(reviewIDs) == 0 {
		return nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	in := placeholders(len(reviewIDs))
	args := make([]any, 0, len(reviewIDs)+2)

	args = append(args, true)
	for _, id := range reviewIDs {
		args = append(args, id)
	}
	if _, err := tx.ExecContext(ctx, r.rebind(`UPDATE reviews SET has_response = ? WHERE review_id IN (`+in+`)`), args...); err != nil {
		return fmt.Errorf("flag reviews: %w", err)
	}

	args = append([]any{domain.ResponsePosted, r.now(), domain.ResponseGenerated}, args[1:]...)
	if _, err := tx.ExecContext(ctx, r.rebind(`
        UPDATE responses SET status = ?, posted_at = ?
        WHERE status = ? AND review_id IN (`+in+`)`), args...); err != nil {
		return fmt.Errorf("mark responses posted: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func scanPending(s Scanner) (*domain.PendingReply, error) {
	var (
		p        domain.PendingReply
		postedAt sql.NullTime
	)
	// Review columns are scanned through a nested scanner so scanReview stays the
	// single source of the column order.
	rs := &pendingScanner{Scanner: s, head: []any{
		&p.Response.ID, &p.Response.ReviewID, &p.Response.ResponseText, &p.Response.Sentiment,
		&p.Response.Issues, &p.Response.Status, &p.Response.GeneratedAt, &postedAt,
	}}
	rv, err := scanReview(rs)
	if err != nil {
		return nil, err
	}
	p.Review = *rv
	if postedAt.Valid {
		t := postedAt.Time
		p.Response.PostedAt = &t
	}
	return &p, nil
}

// pendingScanner prepends response destinations to the review destinations.
type pendingScanner struct {
	Scanner
	head []any
}

func (p *pendingScanner) Scan(dest ...any) error {
	return p.Scanner.Scan(append(p.head, dest...)...)
}

func prefixed(alias, cols string) string {
	var out []string
	for _, c := range splitCols(cols) {
		out = append(out, alias+"."+c)
	}
	return joinCols(out)
}
