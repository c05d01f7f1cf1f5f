package client

import (
	"context"
	"fmt"

	"pv-reviews/internal/config"
	"pv-reviews/internal/llm"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// NewLLM creates the configured reply model.
// The returned client is safe for concurrent use as long as its settings are
// not modified after creation.
func NewLLM(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	c := cfg.LLM
	switch c.Backend {
	case config.BackendOpenAI, "":
		client := openai.NewClient(
			option.WithAPIKey(c.APIKey),
			option.WithBaseURL(c.Endpoint),
		)
		adapter := NewOpenAIAdapter(&client, c.Model, c.ConcurrencyLimit)
		adapter.SetSampling(c.MaxTokens, c.Temperature)
		if c.Timeout > 0 {
			adapter.SetTimeout(c.Timeout)
		}
		return adapter, nil

	case config.BackendLangChain:
		lc, err := NewLangChainClient(c.Model, c.Endpoint, c.APIKey)
		if err != nil {
			return nil, err
		}
		lc.SetSampling(c.MaxTokens, c.Temperature)
		if c.Timeout > 0 {
			lc.SetTimeout(c.Timeout)
		}
		return lc, nil

	case config.BackendGemini:
		endpoint := c.Endpoint
		if endpoint == config.DefaultOpenAIEndpoint {
			endpoint = ""
		}
		gc, err := NewGeminiClient(ctx, c.Model, endpoint, c.APIKey)
		if err != nil {
			return nil, err
		}
		gc.SetSampling(c.MaxTokens, c.Temperature)
		if c.Timeout > 0 {
			gc.SetTimeout(c.Timeout)
		}
		return gc, nil

	default:
		return nil, fmt.Errorf("unknown llm backend: %q", c.Backend)
	}
}
