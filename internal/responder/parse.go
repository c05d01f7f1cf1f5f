package responder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"pv-reviews/internal/domain"
	"pv-reviews/internal/types"
)

// ErrMalformedReply is returned when model output lacks a required field or
// names an unknown sentiment.
var ErrMalformedReply = errors.New("malformed model reply")

// Reply is a parsed and normalized model answer.
type Reply struct {
	ResponseText string
	Sentiment    string
	Issues       string // comma-joined canonical tags or None
}

// ParseReply reads {response_text, sentiment, issues} from raw model output.
// issues may be a string or an array. The reply is forced to open with the
// "Dear <name>," salutation.
func ParseReply(raw, reviewerName string) (*Reply, error) {
	body := types.CleanJSONFromMarkdown(raw)
	if !strings.HasPrefix(body, "{") {
		return nil, fmt.Errorf("%w: no json object in output", ErrMalformedReply)
	}

	res := gjson.GetMany(body, "response_text", "sentiment", "issues")
	text, sentiment, issues := res[0], res[1], res[2]

	if !text.Exists() || strings.TrimSpace(text.String()) == "" {
		return nil, fmt.Errorf("%w: missing response_text", ErrMalformedReply)
	}
	if !sentiment.Exists() {
		return nil, fmt.Errorf("%w: missing sentiment", ErrMalformedReply)
	}
	canon, ok := domain.NormalizeSentiment(sentiment.String())
	if !ok {
		return nil, fmt.Errorf("%w: unknown sentiment %q", ErrMalformedReply, sentiment.String())
	}

	var tags []string
	if issues.IsArray() {
		for _, v := range issues.Array() {
			tags = append(tags, v.String())
		}
	} else {
		tags = domain.SplitIssues(issues.String())
	}

	return &Reply{
		ResponseText: withSalutation(strings.TrimSpace(text.String()), reviewerName),
		Sentiment:    canon,
		Issues:       domain.NormalizeIssues(tags),
	}, nil
}

func withSalutation(text, name string) string {
	greeting := "Dear " + name + ","
	if strings.HasPrefix(text, greeting) {
		return text
	}
	return greeting + "\n" + text
}
