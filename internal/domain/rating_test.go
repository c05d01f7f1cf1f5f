package domain

import "testing"

func TestParseRating(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"4 out of 5 stars", 4, true},
		{"5 stars", 5, true},
		{"Rated 1.0 out of 5,", 1, true},
		{"N/A", 0, false},
		{"", 0, false},
		{"0 stars", 0, false},
		{"10 out of 10", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRating(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseRating(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
