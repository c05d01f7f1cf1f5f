//go:build e2e

package e2e

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"pv-reviews/internal/client"
	"pv-reviews/internal/config"
	"pv-reviews/internal/domain"
	"pv-reviews/internal/pipeline"
	"pv-reviews/internal/responder"
	"pv-reviews/internal/storage"
)

const rootDir = "../../" // Relative path to project root from test/e2e

func loadConfig(t *testing.T) *config.Config {
	t.Helper()

	// Try loading .env from current directory, then the project root
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load(filepath.Join(rootDir, ".env")); err != nil {
			t.Logf("Warning: .env not found in current dir or root: %v", err)
		}
	}

	os.Setenv("CONFIG_PATH", filepath.Join(rootDir, "config.example.yaml"))
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	cfg.Prompts.Dir = filepath.Join(rootDir, "prompts")

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return cfg
}

func TestE2E_GenerateReply(t *testing.T) {
	cfg := loadConfig(t)
	if cfg.LLM.APIKey == "" {
		t.Skip("Skipping E2E test: LLM_API_KEY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	llm, err := client.NewLLM(ctx, cfg)
	if err != nil {
		t.Fatalf("NewLLM failed: %v", err)
	}
	gen := responder.NewGenerator(llm, responder.NewPromptLoader(cfg.Prompts.Dir),
		cfg.Business.ListingID, cfg.Business.Name, cfg.LLM.MaxRetries)

	tests := []struct {
		name string
		in   responder.ReviewInput
	}{
		{"praise", responder.ReviewInput{Text: "Loved the filter coffee and the banana leaf meal. Will come back!", Rating: 5, ReviewerName: "Asha"}},
		{"complaint", responder.ReviewInput{Text: "Food was cold and we waited 40 minutes. Too pricey for the portion.", Rating: 2}},
		{"rating only", responder.ReviewInput{Rating: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := gen.Generate(ctx, tt.in)
			if !res.Success {
				t.Fatalf("Generate failed: %s", res.Error)
			}
			if res.ResponseText == "" {
				t.Error("expected reply text")
			}
			if _, ok := domain.NormalizeSentiment(res.Sentiment); !ok {
				t.Errorf("unexpected sentiment %q", res.Sentiment)
			}
			t.Logf("[%s] %s | %s\n%s", tt.name, res.Sentiment, res.Issues, res.ResponseText)
		})
	}
}

func TestE2E_Collect(t *testing.T) {
	cfg := loadConfig(t)
	if cfg.Google.Email == "" || cfg.Google.Password == "" {
		t.Skip("Skipping E2E test: GOOGLE_EMAIL/GOOGLE_PASSWORD not set")
	}
	cfg.Browser.Headless = true
	cfg.Collection.MaxReviews = 20

	store, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "reviews.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository failed: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	p := pipeline.New(cfg, store, pipeline.PlaywrightLauncher(cfg), nil, nil, nil)
	res, err := p.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect failed at %s: %v", res.FailedAt, err)
	}
	t.Logf("examined=%d new=%d invalid=%d pagination=%s", res.Examined, res.New, res.Invalid, res.Pagination.Outcome)

	// A second run finds nothing new
	again, err := p.Collect(ctx)
	if err != nil {
		t.Fatalf("second Collect failed: %v", err)
	}
	if again.New != 0 {
		t.Errorf("expected no new reviews on rerun, got %d", again.New)
	}
}
