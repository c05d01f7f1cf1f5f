package llm

import (
	"context"
)

// Client is a text-in, text-out language model. Implementations must be safe
// for concurrent use and should wrap transient provider failures (rate limits,
// 5xx) in types.RetryableError.
type Client interface {
	// SimpleTextQuery sends a system prompt and a user message and returns
	// the model's text reply.
	SimpleTextQuery(ctx context.Context, systemPrompt, userInput string) (string, error)
	// Name identifies the backend and model, e.g. "openai-gpt-4o".
	Name() string
}
