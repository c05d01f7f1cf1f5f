package domain

import (
	"regexp"
	"strconv"
)

var firstInt = regexp.MustCompile(`\d+`)

// ParseRating reads a star rating from free text such as "4 out of 5 stars"
// or "Rated 5.0". The first integer token must be in 1..5.
func ParseRating(s string) (int, bool) {
	m := firstInt.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil || n < 1 || n > 5 {
		return 0, false
	}
	return n, true
}
