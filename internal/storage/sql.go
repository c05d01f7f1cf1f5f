package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx", used for the hosted postgres store
	_ "modernc.org/sqlite"             // Pure Go driver, CGO-free, compatible with CGO_ENABLED=0

	"pv-reviews/internal/config"
)

// upsertChunk is the number of reviews written per transaction before
// falling back to row-by-row inserts.
const upsertChunk = 50

// SQLRepository implements Repository on database/sql for sqlite and postgres.
type SQLRepository struct {
	db      *sql.DB
	driver  string
	timeout time.Duration
	now     func() time.Time
}

// NewSQLRepository opens the store selected by cfg and applies the schema.
func NewSQLRepository(cfg config.StorageConfig) (*SQLRepository, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err = openSQLite(cfg.DSN)
	case config.DriverPostgres:
		db, err = sql.Open("pgx", cfg.DSN)
		if err != nil {
			err = fmt.Errorf("open postgres: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	r := &SQLRepository{db: db, driver: cfg.Driver, timeout: cfg.Timeout, now: func() time.Time { return time.Now().UTC() }}

	ctx, cancel := r.withTimeout(context.Background())
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

// NewSQLiteRepository opens a sqlite store at path with default settings.
func NewSQLiteRepository(path string) (*SQLRepository, error) {
	return NewSQLRepository(config.StorageConfig{Driver: config.DriverSQLite, DSN: path, Timeout: 10 * time.Second})
}

func openSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for concurrent summary reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return db, nil
}

func (r *SQLRepository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reviews (
            review_id            TEXT PRIMARY KEY,
            listing_id           TEXT NOT NULL DEFAULT '',
            reviewer_name        TEXT NOT NULL DEFAULT '',
            reviewer_profile_url TEXT NOT NULL DEFAULT '',
            is_local_guide       BOOLEAN NOT NULL DEFAULT FALSE,
            review_count         INTEGER,
            photo_count          INTEGER,
            rating               INTEGER NOT NULL,
            review_time          TEXT NOT NULL DEFAULT '',
            review_text          TEXT NOT NULL DEFAULT '',
            share_url            TEXT NOT NULL DEFAULT '',
            dine_in              TEXT NOT NULL DEFAULT '',
            session              TEXT NOT NULL DEFAULT '',
            price_range          TEXT NOT NULL DEFAULT '',
            food_rating          INTEGER,
            service_rating       INTEGER,
            atmosphere_rating    INTEGER,
            images               TEXT NOT NULL DEFAULT '[]',
            has_response         BOOLEAN NOT NULL DEFAULT FALSE,
            collected_at         TIMESTAMP NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_has_response ON reviews(has_response)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_collected ON reviews(collected_at)`,
		`CREATE TABLE IF NOT EXISTS responses (
            id            TEXT PRIMARY KEY,
            review_id     TEXT NOT NULL REFERENCES reviews(review_id),
            response_text TEXT NOT NULL,
            sentiment     TEXT NOT NULL,
            issues        TEXT NOT NULL,
            status        TEXT NOT NULL,
            generated_at  TIMESTAMP NOT NULL,
            posted_at     TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_responses_status ON responses(status)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_review ON responses(review_id)`,
		`CREATE TABLE IF NOT EXISTS run_logs (
            id                  TEXT PRIMARY KEY,
            process_type        TEXT NOT NULL,
            status              TEXT NOT NULL,
            reviews_processed   INTEGER NOT NULL DEFAULT 0,
            new_reviews         INTEGER NOT NULL DEFAULT 0,
            responses_generated INTEGER NOT NULL DEFAULT 0,
            responses_posted    INTEGER NOT NULL DEFAULT 0,
            duration_seconds    DOUBLE PRECISION NOT NULL DEFAULT 0,
            error_message       TEXT NOT NULL DEFAULT '',
            details             TEXT NOT NULL DEFAULT '{}',
            started_at          TIMESTAMP NOT NULL,
            completed_at        TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_run_logs_started ON run_logs(started_at)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != config.DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

// placeholders returns "?, ?, ..." for n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return " LIMIT " + strconv.Itoa(limit)
}

func (r *SQLRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Ping verifies the store is reachable.
func (r *SQLRepository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// Scanner interface to support both Row and Rows
type Scanner interface {
	Scan(dest ...any) error
}
