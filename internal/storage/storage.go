package storage

import (
	"context"
	"errors"

	"pv-reviews/internal/domain"
)

var (
	// ErrNotFound is returned when a keyed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyCompleted is returned when a run log is finalized twice.
	ErrAlreadyCompleted = errors.New("run already completed")
)

// UpsertResult reports the outcome of an insert-if-absent batch.
type UpsertResult struct {
	Attempted int // records handed to the store
	Inserted  int // rows that did not exist before
	Invalid   int // skipped for missing id or rating
	Failed    int // rejected by the database
}

// Repository is the record store for reviews, generated responses and run logs.
type Repository interface {
	UpsertReviews(ctx context.Context, reviews []domain.Review) (UpsertResult, error)
	Unreplied(ctx context.Context, limit int) ([]domain.Review, error)
	AllReviewIDs(ctx context.Context) ([]string, error)

	SaveResponse(ctx context.Context, reviewID, text, sentiment, issues string) (bool, error)
	PendingResponses(ctx context.Context, limit int) ([]domain.PendingReply, error)
	MarkPosted(ctx context.Context, reviewIDs []string) error

	LogRun(ctx context.Context, run *domain.RunLog) (string, error)
	LogProcessStart(ctx context.Context, processType string, details map[string]any) (string, error)
	LogProcessComplete(ctx context.Context, id, status string, counts domain.RunCounts, errMsg string) error
	GetRun(ctx context.Context, id string) (*domain.RunLog, error)
	RunSummary(ctx context.Context, days int) (*domain.RunSummary, error)

	Ping(ctx context.Context) error
	Close() error
}
