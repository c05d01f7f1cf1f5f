package domain

import "strings"

// Sentiment categories accepted from the response generator.
const (
	SentimentVeryPositive = "Very Positive"
	SentimentPositive     = "Positive"
	SentimentNeutral      = "Neutral"
	SentimentHaveIssues   = "Have Issues"
	SentimentDislike      = "Do not like us"
)

// Issue tags accepted from the response generator.
const (
	IssueTooExpensive    = "Too expensive"
	IssueLimitedPortions = "Limited Portions"
	IssuePoorService     = "Poor Service"
	IssueTaste           = "Taste"
	IssueOther           = "Other"
	IssueNone            = "None"
)

var sentiments = []string{
	SentimentVeryPositive,
	SentimentPositive,
	SentimentNeutral,
	SentimentHaveIssues,
	SentimentDislike,
}

var issueTags = []string{
	IssueTooExpensive,
	IssueLimitedPortions,
	IssuePoorService,
	IssueTaste,
	IssueOther,
}

// Sentiments returns the closed sentiment set in display order.
func Sentiments() []string {
	return append([]string(nil), sentiments...)
}

// IssueTags returns the closed issue tag set, excluding None.
func IssueTags() []string {
	return append([]string(nil), issueTags...)
}

// NormalizeSentiment maps s onto the canonical spelling, case-insensitively.
func NormalizeSentiment(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, v := range sentiments {
		if strings.EqualFold(v, s) {
			return v, true
		}
	}
	return "", false
}

// NormalizeIssues canonicalizes a list of tags. Unknown tags collapse into Other,
// duplicates are dropped and an empty result becomes None.
func NormalizeIssues(tags []string) string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || strings.EqualFold(t, IssueNone) {
			continue
		}
		canon := IssueOther
		for _, v := range issueTags {
			if strings.EqualFold(v, t) {
				canon = v
				break
			}
		}
		if !seen[canon] {
			seen[canon] = true
			out = append(out, canon)
		}
	}
	if len(out) == 0 {
		return IssueNone
	}
	return strings.Join(out, ", ")
}

// SplitIssues splits a comma-joined issue string.
func SplitIssues(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
