package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pv-reviews/internal/domain"
)

// ImportCSV loads a legacy review export into the store through UpsertReviews,
// so rows already present are left alone. Headers are matched loosely:
// "Review ID", "review_id" and "ReviewID" name the same column.
func ImportCSV(ctx context.Context, repo Repository, r io.Reader) (UpsertResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return UpsertResult{}, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[normalizeHeader(h)] = i
	}
	if _, ok := cols["reviewid"]; !ok {
		return UpsertResult{}, errors.New("csv has no review id column")
	}

	var reviews []domain.Review
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return UpsertResult{}, fmt.Errorf("read line %d: %w", line, err)
		}
		reviews = append(reviews, reviewFromCSV(cols, rec))
	}

	return repo.UpsertReviews(ctx, reviews)
}

func reviewFromCSV(cols map[string]int, rec []string) domain.Review {
	get := func(name string) string {
		if i, ok := cols[name]; ok && i < len(rec) {
			v := strings.TrimSpace(rec[i])
			if strings.EqualFold(v, "nan") || strings.EqualFold(v, "none") {
				return ""
			}
			return v
		}
		return ""
	}

	rv := domain.Review{
		ReviewID:           get("reviewid"),
		ListingID:          get("listingid"),
		ReviewerName:       get("reviewername"),
		ReviewerProfileURL: get("reviewerprofileurl"),
		IsLocalGuide:       parseBool(get("islocalguide")),
		ReviewCount:        parseOptInt(get("reviewcount")),
		PhotoCount:         parseOptInt(get("photocount")),
		ReviewTime:         firstNonEmpty(get("time"), get("reviewtime")),
		ReviewText:         get("reviewtext"),
		ShareURL:           get("shareurl"),
		DineIn:             get("dinein"),
		Session:            get("session"),
		PriceRange:         get("pricerange"),
		FoodRating:         parseOptInt(get("foodrating")),
		ServiceRating:      parseOptInt(get("servicerating")),
		AtmosphereRating:   parseOptInt(get("atmosphererating")),
		Images:             parseImages(get("images")),
	}
	if n, ok := domain.ParseRating(get("rating")); ok {
		rv.Rating = n
	}
	return rv
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.ToLower(s))
	return err == nil && b
}

// parseOptInt accepts "12" and pandas-style "12.0".
func parseOptInt(s string) *int {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

func parseImages(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if strings.HasPrefix(s, "[") {
		// Python exports use single quotes
		if err := json.Unmarshal([]byte(strings.ReplaceAll(s, "'", `"`)), &out); err == nil {
			return out
		}
	}
	for _, p := range strings.Split(s, ",") {
		if p = strings.Trim(strings.TrimSpace(p), `[]'"`); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
