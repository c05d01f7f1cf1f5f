package client

import (
	"context"
	"fmt"
	"time"

	"pv-reviews/internal/metrics"
	"pv-reviews/internal/types"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainClient implements llm.Client through a langchaingo model. It
// covers providers reachable via langchaingo's OpenAI-compatible driver.
type LangChainClient struct {
	llm         llms.Model
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

// NewLangChainClient builds a langchaingo OpenAI-compatible model.
func NewLangChainClient(model, endpoint, apiKey string) (*LangChainClient, error) {
	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(apiKey),
	}
	if endpoint != "" {
		opts = append(opts, openai.WithBaseURL(endpoint))
	}
	lcLLM, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain llm: %w", err)
	}
	return &LangChainClient{llm: lcLLM, model: model, timeout: 120 * time.Second}, nil
}

// SetTimeout sets the request timeout
func (c *LangChainClient) SetTimeout(d time.Duration) {
	c.timeout = d
}

// SetSampling sets the completion budget and temperature.
func (c *LangChainClient) SetSampling(maxTokens int, temperature float64) {
	c.maxTokens = maxTokens
	c.temperature = temperature
}

// Name returns the backend and model name
func (c *LangChainClient) Name() string {
	return "langchain-" + c.model
}

// SimpleTextQuery sends a system and a human message.
func (c *LangChainClient) SimpleTextQuery(ctx context.Context, systemPrompt, userInput string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var messages []llms.MessageContent
	if systemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, userInput))

	var opts []llms.CallOption
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}
	if c.temperature > 0 {
		opts = append(opts, llms.WithTemperature(c.temperature))
	}

	resp, err := c.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		metrics.LLMRequests.WithLabelValues("langchain", "error").Inc()
		// langchaingo flattens provider errors; treat them as transient.
		return "", types.NewRetryableError(fmt.Errorf("langchain request: %w", err))
	}
	metrics.LLMRequests.WithLabelValues("langchain", "success").Inc()

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no langchain response")
	}
	return resp.Choices[0].Content, nil
}
