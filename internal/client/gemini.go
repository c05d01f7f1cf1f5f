package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pv-reviews/internal/metrics"
	"pv-reviews/internal/types"

	"google.golang.org/genai"
)

// GeminiClient implements llm.Client on the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

// NewGeminiClient creates a Gemini API client. An empty endpoint uses the
// public API.
func NewGeminiClient(ctx context.Context, model, endpoint, apiKey string) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: endpoint}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model, timeout: 120 * time.Second}, nil
}

// SetTimeout sets the request timeout
func (c *GeminiClient) SetTimeout(d time.Duration) {
	c.timeout = d
}

// SetSampling sets the completion budget and temperature.
func (c *GeminiClient) SetSampling(maxTokens int, temperature float64) {
	c.maxTokens = maxTokens
	c.temperature = temperature
}

// Name returns the backend and model name
func (c *GeminiClient) Name() string {
	return "gemini-" + c.model
}

// SimpleTextQuery sends userInput with systemPrompt as system instruction.
func (c *GeminiClient) SimpleTextQuery(ctx context.Context, systemPrompt, userInput string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	gc := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if c.maxTokens > 0 {
		gc.MaxOutputTokens = int32(c.maxTokens)
	}
	if c.temperature > 0 {
		t := float32(c.temperature)
		gc.Temperature = &t
	}

	contents := []*genai.Content{genai.NewContentFromText(userInput, genai.RoleUser)}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, gc)
	if err != nil {
		metrics.LLMRequests.WithLabelValues("gemini", "error").Inc()
		return "", wrapGeminiError(fmt.Errorf("gemini request: %w", err))
	}
	metrics.LLMRequests.WithLabelValues("gemini", "success").Inc()

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no gemini response")
	}
	return text, nil
}

func wrapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && retryableStatus(apiErr.Code) {
		return types.NewRetryableError(err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && retryableStatus(apiErrPtr.Code) {
		return types.NewRetryableError(err)
	}
	return err
}
