package types

import "testing"

func TestCleanJSONFromMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around fence", "Here you go:\n```json\n{\"a\":1}\n```\nThanks", `{"a":1}`},
		{"prose without fence", "Result: {\"a\":1} done", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSONFromMarkdown(tt.in); got != tt.want {
				t.Errorf("CleanJSONFromMarkdown() = %q, want %q", got, tt.want)
			}
		})
	}
}
