package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pv-reviews/internal/metrics"
	"pv-reviews/internal/types"

	"github.com/openai/openai-go"
)

// OpenAIAdapter implements llm.Client using the official OpenAI client. Any
// OpenAI-compatible endpoint works.
type OpenAIAdapter struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	sem         chan struct{}
}

// NewOpenAIAdapter creates an adapter allowing maxConcurrency in-flight
// requests. maxConcurrency <= 0 means unlimited.
func NewOpenAIAdapter(client *openai.Client, model string, maxConcurrency int) *OpenAIAdapter {
	var sem chan struct{}
	if maxConcurrency > 0 {
		sem = make(chan struct{}, maxConcurrency)
	}
	return &OpenAIAdapter{
		client:  client,
		model:   model,
		timeout: 120 * time.Second,
		sem:     sem,
	}
}

// SetTimeout sets the request timeout
func (a *OpenAIAdapter) SetTimeout(d time.Duration) {
	a.timeout = d
}

// SetSampling sets the completion budget and temperature. Zero values leave
// the provider defaults.
func (a *OpenAIAdapter) SetSampling(maxTokens int, temperature float64) {
	a.maxTokens = maxTokens
	a.temperature = temperature
}

// Name returns the backend and model name
func (a *OpenAIAdapter) Name() string {
	return "openai-" + a.model
}

// Ping sends a minimal request to verify connection
func (a *OpenAIAdapter) Ping(ctx context.Context) error {
	slog.Info("checking llm connection...")
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("hello"),
		},
		MaxTokens: openai.Int(1),
	}
	_, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return fmt.Errorf("llm ping failed: %w", err)
	}
	slog.Info("llm connection verified")
	return nil
}

// SimpleTextQuery sends a single chat completion and returns the first choice.
func (a *OpenAIAdapter) SimpleTextQuery(ctx context.Context, systemPrompt, userInput string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	if a.sem != nil {
		select {
		case a.sem <- struct{}{}:
			defer func() { <-a.sem }()
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userInput))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.model),
		Messages: messages,
	}
	if a.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(a.maxTokens))
	}
	if a.temperature > 0 {
		params.Temperature = openai.Float(a.temperature)
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		metrics.LLMRequests.WithLabelValues("openai", "error").Inc()
		return "", wrapOpenAIError(fmt.Errorf("openai request: %w", err))
	}
	metrics.LLMRequests.WithLabelValues("openai", "success").Inc()

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no openai response")
	}
	return resp.Choices[0].Message.Content, nil
}

// wrapOpenAIError marks rate limits and server errors as retryable
func wrapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && retryableStatus(apiErr.StatusCode) {
		return types.NewRetryableError(err)
	}
	return err
}

// retryableStatus reports whether an HTTP status is worth retrying:
// 429 (rate limit) and 5xx.
func retryableStatus(code int) bool {
	return code == 429 || (code >= 500 && code < 600)
}
