package client

import (
	"context"
	"net/http"
	"testing"
)

func TestLangChainClient_SimpleTextQuery(t *testing.T) {
	ts := chatServer(t, http.StatusOK, "Thanks for visiting!", func(body map[string]any) {
		msgs, _ := body["messages"].([]any)
		if len(msgs) != 2 {
			t.Errorf("Expected system and user messages, got %d", len(msgs))
		}
	})
	defer ts.Close()

	c, err := NewLangChainClient("gpt-4o", ts.URL, "test-key")
	if err != nil {
		t.Fatalf("NewLangChainClient failed: %v", err)
	}
	got, err := c.SimpleTextQuery(context.Background(), "be kind", "review text")
	if err != nil {
		t.Fatalf("SimpleTextQuery failed: %v", err)
	}
	if got != "Thanks for visiting!" {
		t.Errorf("unexpected reply %q", got)
	}
}
