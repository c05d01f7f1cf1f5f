package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"pv-reviews/internal/domain"
)

const insertReviewSQL = `
    INSERT INTO reviews (
        review_id, listing_id, reviewer_name, reviewer_profile_url, is_local_guide,
        review_count, photo_count, rating, review_time, review_text, share_url,
        dine_in, session, price_range, food_rating, service_rating, atmosphere_rating,
        images, has_response, collected_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(review_id) DO NOTHING`

const selectReviewCols = `
    review_id, listing_id, reviewer_name, reviewer_profile_url, is_local_guide,
    review_count, photo_count, rating, review_time, review_text, share_url,
    dine_in, session, price_range, food_rating, service_rating, atmosphere_rating,
    images, has_response, collected_at`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertReviews inserts reviews that are not stored yet and leaves existing rows
// untouched. Invalid reviews are skipped. Each chunk is written in one
// transaction; a failing chunk is retried row by row so one bad row cannot
// sink its neighbours.
func (r *SQLRepository) UpsertReviews(ctx context.Context, reviews []domain.Review) (UpsertResult, error) {
	res := UpsertResult{Attempted: len(reviews)}

	valid := make([]domain.Review, 0, len(reviews))
	for _, rv := range reviews {
		if err := rv.Validate(); err != nil {
			slog.Warn("skip invalid review", "review_id", rv.ReviewID, "error", err)
			res.Invalid++
			continue
		}
		valid = append(valid, rv)
	}

	now := r.now()
	for start := 0; start < len(valid); start += upsertChunk {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := min(start+upsertChunk, len(valid))
		chunk := valid[start:end]

		inserted, err := r.insertChunk(ctx, chunk, now)
		if err == nil {
			res.Inserted += inserted
			continue
		}
		slog.Warn("batch upsert failed, retrying per item", "size", len(chunk), "error", err)

		for _, rv := range chunk {
			ok, err := r.insertReview(ctx, r.db, rv, now)
			if err != nil {
				slog.Error("upsert review failed", "review_id", rv.ReviewID, "error", err)
				res.Failed++
				continue
			}
			if ok {
				res.Inserted++
			}
		}
	}

	// A store that rejected every row is unreachable, not merely picky.
	if len(valid) > 0 && res.Failed == len(valid) {
		return res, fmt.Errorf("upsert reviews: all %d writes failed", res.Failed)
	}
	return res, nil
}

func (r *SQLRepository) insertChunk(ctx context.Context, chunk []domain.Review, now time.Time) (int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, rv := range chunk {
		ok, err := r.insertReview(ctx, tx, rv, now)
		if err != nil {
			return 0, err
		}
		if ok {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (r *SQLRepository) insertReview(ctx context.Context, ex execer, rv domain.Review, now time.Time) (bool, error) {
	images, err := json.Marshal(nonNil(rv.Images))
	if err != nil {
		return false, fmt.Errorf("marshal images: %w", err)
	}
	collected := rv.CollectedAt
	if collected.IsZero() {
		collected = now
	}

	result, err := ex.ExecContext(ctx, r.rebind(insertReviewSQL),
		rv.ReviewID, rv.ListingID, rv.ReviewerName, rv.ReviewerProfileURL, rv.IsLocalGuide,
		nullInt(rv.ReviewCount), nullInt(rv.PhotoCount), rv.Rating, rv.ReviewTime, rv.ReviewText, rv.ShareURL,
		rv.DineIn, rv.Session, rv.PriceRange, nullInt(rv.FoodRating), nullInt(rv.ServiceRating), nullInt(rv.AtmosphereRating),
		string(images), rv.HasResponse, collected.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert review %s: %w", rv.ReviewID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Unreplied returns reviews without a response, most recently collected first.
func (r *SQLRepository) Unreplied(ctx context.Context, limit int) ([]domain.Review, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.rebind(`
        SELECT `+selectReviewCols+`
        FROM reviews
        WHERE has_response = ?
        ORDER BY collected_at DESC, review_id`+limitClause(limit)), false)
	if err != nil {
		return nil, fmt.Errorf("query unreplied: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			slog.Warn("scan review failed", "error", err)
			continue
		}
		reviews = append(reviews, *rv)
	}
	return reviews, rows.Err()
}

// AllReviewIDs returns every stored review id.
func (r *SQLRepository) AllReviewIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT review_id FROM reviews`)
	if err != nil {
		return nil, fmt.Errorf("query review ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetReview loads one review by id.
func (r *SQLRepository) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+selectReviewCols+` FROM reviews WHERE review_id = ?`), id)
	rv, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return rv, err
}

func scanReview(s Scanner) (*domain.Review, error) {
	var (
		rv                        domain.Review
		reviewCount, photoCount   sql.NullInt64
		food, service, atmosphere sql.NullInt64
		images                    string
	)
	if err := s.Scan(
		&rv.ReviewID, &rv.ListingID, &rv.ReviewerName, &rv.ReviewerProfileURL, &rv.IsLocalGuide,
		&reviewCount, &photoCount, &rv.Rating, &rv.ReviewTime, &rv.ReviewText, &rv.ShareURL,
		&rv.DineIn, &rv.Session, &rv.PriceRange, &food, &service, &atmosphere,
		&images, &rv.HasResponse, &rv.CollectedAt,
	); err != nil {
		return nil, err
	}
	rv.ReviewCount = intPtr(reviewCount)
	rv.PhotoCount = intPtr(photoCount)
	rv.FoodRating = intPtr(food)
	rv.ServiceRating = intPtr(service)
	rv.AtmosphereRating = intPtr(atmosphere)
	if err := json.Unmarshal([]byte(images), &rv.Images); err != nil {
		return nil, fmt.Errorf("unmarshal images: %w", err)
	}
	return &rv, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
