package responder

import (
	"errors"
	"testing"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantText      string
		wantSentiment string
		wantIssues    string
	}{
		{
			name:          "fenced",
			raw:           "Sure!\n```json\n{\"response_text\": \"Dear Priya,\\nThanks!\\nRegards\", \"sentiment\": \"Positive\", \"issues\": \"Poor Service\"}\n```",
			wantText:      "Dear Priya,\nThanks!\nRegards",
			wantSentiment: "Positive",
			wantIssues:    "Poor Service",
		},
		{
			name:          "salutation added and case folded",
			raw:           `{"response_text": "Thanks for coming.", "sentiment": "very positive", "issues": "None"}`,
			wantText:      "Dear Priya,\nThanks for coming.",
			wantSentiment: "Very Positive",
			wantIssues:    "None",
		},
		{
			name:          "issue array with unknown tag",
			raw:           `{"response_text": "Dear Priya, sorry.", "sentiment": "Have Issues", "issues": ["Taste", "Parking", "Noise"]}`,
			wantText:      "Dear Priya, sorry.",
			wantSentiment: "Have Issues",
			wantIssues:    "Taste, Other",
		},
		{
			name:          "missing issues",
			raw:           `{"response_text": "Dear Priya, hi", "sentiment": "Neutral"}`,
			wantText:      "Dear Priya, hi",
			wantSentiment: "Neutral",
			wantIssues:    "None",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReply(tt.raw, "Priya")
			if err != nil {
				t.Fatalf("ParseReply failed: %v", err)
			}
			if got.ResponseText != tt.wantText {
				t.Errorf("ResponseText = %q, want %q", got.ResponseText, tt.wantText)
			}
			if got.Sentiment != tt.wantSentiment {
				t.Errorf("Sentiment = %q, want %q", got.Sentiment, tt.wantSentiment)
			}
			if got.Issues != tt.wantIssues {
				t.Errorf("Issues = %q, want %q", got.Issues, tt.wantIssues)
			}
		})
	}
}

func TestParseReply_Malformed(t *testing.T) {
	for name, raw := range map[string]string{
		"no json":           "I cannot help with that.",
		"missing text":      `{"sentiment": "Positive", "issues": "None"}`,
		"missing sentiment": `{"response_text": "Dear A, hi", "issues": "None"}`,
		"unknown sentiment": `{"response_text": "Dear A, hi", "sentiment": "Ecstatic", "issues": "None"}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseReply(raw, "A"); !errors.Is(err, ErrMalformedReply) {
				t.Errorf("expected ErrMalformedReply, got %v", err)
			}
		})
	}
}
