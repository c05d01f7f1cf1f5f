package poster

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"pv-reviews/internal/domain"
)

var relativeRe = regexp.MustCompile(`^(\d+|an?|one)\s+(minute|hour|day|week|month|year)s?\s+ago$`)

var absoluteLayouts = []string{
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
	"02/01/2006",
}

// ParseReviewTime turns a review's display time into an instant. It accepts
// "<n> hours/days/weeks/months ago" (a month is 30 days), "a day ago",
// "yesterday", "just now" and a few absolute date layouts.
func ParseReviewTime(s string, now time.Time) (time.Time, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	// "Edited 2 weeks ago" keeps the original age
	s = strings.TrimPrefix(s, "edited ")

	switch s {
	case "":
		return time.Time{}, false
	case "just now", "now":
		return now, true
	case "yesterday":
		return now.AddDate(0, 0, -1), true
	}

	if m := relativeRe.FindStringSubmatch(s); m != nil {
		n := 1
		if v, err := strconv.Atoi(m[1]); err == nil {
			n = v
		}
		switch m[2] {
		case "minute":
			return now.Add(-time.Duration(n) * time.Minute), true
		case "hour":
			return now.Add(-time.Duration(n) * time.Hour), true
		case "day":
			return now.AddDate(0, 0, -n), true
		case "week":
			return now.AddDate(0, 0, -7*n), true
		case "month":
			return now.AddDate(0, 0, -30*n), true
		case "year":
			return now.AddDate(0, 0, -365*n), true
		}
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, true
		}
		// layouts are matched case-sensitively for month names
		if t, err := time.ParseInLocation(layout, titleMonth(s), now.Location()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func titleMonth(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		if f != "" && f[0] >= 'a' && f[0] <= 'z' {
			fields[i] = strings.ToUpper(f[:1]) + f[1:]
		}
	}
	return strings.Join(fields, " ")
}

// SortOldestFirst orders replies by their review's age, oldest first.
// Unparseable times sort last; ties keep input order.
func SortOldestFirst(replies []domain.PendingReply, now time.Time) {
	key := func(r domain.PendingReply) (time.Time, bool) {
		return ParseReviewTime(r.Review.ReviewTime, now)
	}
	sort.SliceStable(replies, func(i, j int) bool {
		ti, oki := key(replies[i])
		tj, okj := key(replies[j])
		switch {
		case oki && okj:
			return ti.Before(tj)
		case oki:
			return true
		default:
			return false
		}
	})
}
