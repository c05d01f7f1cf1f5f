// Package responder turns a review into an owner reply with a sentiment
// label and issue tags.
package responder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pv-reviews/internal/llm"
	"pv-reviews/internal/metrics"
	"pv-reviews/internal/types"
)

// DefaultReviewerName is used when a review carries no name.
const DefaultReviewerName = "Guest"

// ReviewInput is what the model sees of a review.
type ReviewInput struct {
	Text         string
	Rating       int
	ReviewerName string
}

// Result is the outcome of one generation. Error is set when Success is false.
type Result struct {
	Success      bool
	ResponseText string
	Sentiment    string
	Issues       string
	Error        error
}

// Generator produces replies through an llm.Client.
type Generator struct {
	llm          llm.Client
	prompts      *PromptLoader
	listingID    string
	businessName string
	maxRetries   int
	backoff      time.Duration
}

// NewGenerator creates a Generator. maxRetries applies to retryable model
// errors only.
func NewGenerator(client llm.Client, prompts *PromptLoader, listingID, businessName string, maxRetries int) *Generator {
	return &Generator{
		llm:          client,
		prompts:      prompts,
		listingID:    listingID,
		businessName: businessName,
		maxRetries:   maxRetries,
		backoff:      2 * time.Second,
	}
}

// Generate asks the model for a reply. It never panics and reports failures
// in Result.Error.
func (g *Generator) Generate(ctx context.Context, in ReviewInput) Result {
	name := strings.TrimSpace(in.ReviewerName)
	if name == "" {
		name = DefaultReviewerName
	}

	system, err := g.prompts.Load(g.listingID, NewPromptData(g.businessName))
	if err != nil {
		return failed(fmt.Errorf("load prompt: %w", err))
	}
	user := formatReview(in.Text, in.Rating, name)

	raw, err := g.query(ctx, system, user)
	if err != nil {
		return failed(fmt.Errorf("generate reply: %w", err))
	}

	reply, err := ParseReply(raw, name)
	if err != nil {
		slog.Debug("unparseable model output", "output", raw)
		return failed(fmt.Errorf("parse reply: %w", err))
	}

	metrics.RepliesGenerated.WithLabelValues("success").Inc()
	return Result{
		Success:      true,
		ResponseText: reply.ResponseText,
		Sentiment:    reply.Sentiment,
		Issues:       reply.Issues,
	}
}

func (g *Generator) query(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			wait := g.backoff << (attempt - 1)
			slog.Warn("retrying llm request", "attempt", attempt, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}
		out, err := g.llm.SimpleTextQuery(ctx, system, user)
		if err == nil {
			return out, nil
		}
		lastErr = err
		var retryable *types.RetryableError
		if !errors.As(err, &retryable) {
			break
		}
	}
	return "", lastErr
}

func formatReview(text string, rating int, name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<customer_review>\n%s\n</customer_review>\n\n", text)
	fmt.Fprintf(&sb, "<rating>\n%d\n</rating>\n\n", rating)
	fmt.Fprintf(&sb, "<reviewer_name>\n%s\n</reviewer_name>\n", name)
	return sb.String()
}

func failed(err error) Result {
	metrics.RepliesGenerated.WithLabelValues("error").Inc()
	return Result{Error: err}
}
