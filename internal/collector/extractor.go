package collector

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pv-reviews/internal/browser"
	"pv-reviews/internal/config"
	"pv-reviews/internal/domain"
)

// ErrInvalidReview is returned for a card without an id or a readable rating.
var ErrInvalidReview = errors.New("invalid review")

var (
	reviewCountRe = regexp.MustCompile(`(\d[\d,.]*)\s+reviews?`)
	photoCountRe  = regexp.MustCompile(`(\d[\d,.]*)\s+photos?`)
	subRatingRe   = regexp.MustCompile(`(Food|Service|Atmosphere):\s*(\d+)\s*/\s*5`)
)

// Extractor turns one review card into a domain.Review.
type Extractor struct {
	now func() time.Time
}

// NewExtractor creates an Extractor stamping CollectedAt with the current time.
func NewExtractor() *Extractor {
	return &Extractor{now: func() time.Time { return time.Now().UTC() }}
}

// Extract reads every field independently; a missing optional node only
// leaves its field empty. A card without id or rating yields ErrInvalidReview.
func (x *Extractor) Extract(card browser.Element) (*domain.Review, error) {
	holder := card.Locator(config.SelectorCardIDHolder)

	rv := &domain.Review{
		ReviewID:    attr(holder, config.AttrReviewID),
		ListingID:   attr(holder, config.AttrListingID),
		ShareURL:    attr(holder, config.AttrShareURL),
		CollectedAt: x.now(),
	}
	if rv.ReviewID == "" {
		return nil, fmt.Errorf("%w: missing review id", ErrInvalidReview)
	}

	ratingLabel := attr(card.Locator(config.SelectorRating), "aria-label")
	if ratingLabel == "" {
		ratingLabel = text(card.Locator(config.SelectorRating))
	}
	rating, ok := domain.ParseRating(ratingLabel)
	if !ok {
		return nil, fmt.Errorf("%w: review %s has unparseable rating %q", ErrInvalidReview, rv.ReviewID, ratingLabel)
	}
	rv.Rating = rating

	rv.ReviewerName = text(card.Locator(config.SelectorReviewerName))
	rv.ReviewerProfileURL = attr(card.Locator(config.SelectorReviewerProfile), "href")

	details := text(card.Locator(config.SelectorReviewerDetails))
	rv.IsLocalGuide = strings.Contains(details, "Local Guide")
	rv.ReviewCount = matchInt(reviewCountRe, details)
	rv.PhotoCount = matchInt(photoCountRe, details)

	rv.ReviewTime = text(card.Locator(config.SelectorReviewTime))
	rv.ReviewText = reviewText(card)

	parseMetadata(rv, allText(card.Locator(config.SelectorMetadata)))
	rv.FoodRating, rv.ServiceRating, rv.AtmosphereRating = parseSubRatings(strings.Join(allText(card.Locator(config.SelectorSubRatings)), "\n"))
	rv.Images = images(card.Locator(config.SelectorReviewImage))

	return rv, nil
}

// reviewText prefers the expanded text behind the "Full review" link.
func reviewText(card browser.Element) string {
	more := card.Locator(config.SelectorFullReviewLink)
	if browser.Exists(more) {
		if err := more.Click(); err != nil {
			slog.Debug("expand full review failed", "error", err)
		} else if full := text(card.Locator(config.SelectorFullReviewText)); full != "" {
			return full
		}
	}
	return text(card.Locator(config.SelectorReviewText))
}

func parseMetadata(rv *domain.Review, spans []string) {
	for _, s := range spans {
		switch {
		case strings.Contains(s, "Dine in"):
			rv.DineIn = s
		case strings.Contains(s, "Lunch"), strings.Contains(s, "Dinner"), strings.Contains(s, "Breakfast"):
			rv.Session = s
		case strings.Contains(s, "₹"):
			rv.PriceRange = s
		}
	}
}

// parseSubRatings reads "Food: 5/5" style labels; absent labels stay nil.
func parseSubRatings(s string) (food, service, atmosphere *int) {
	for _, m := range subRatingRe.FindAllStringSubmatch(s, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 || n > 5 {
			continue
		}
		switch m[1] {
		case "Food":
			food = &n
		case "Service":
			service = &n
		case "Atmosphere":
			atmosphere = &n
		}
	}
	return food, service, atmosphere
}

func images(el browser.Element) []string {
	imgs, err := el.All()
	if err != nil {
		return nil
	}
	var out []string
	for _, img := range imgs {
		if src := attr(img, "src"); src != "" {
			out = append(out, src)
		}
	}
	return out
}

// matchInt reads the first group of re as a count, dropping thousands
// separators ("1,234" or "1.234").
func matchInt(re *regexp.Regexp, s string) *int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.NewReplacer(",", "", ".", "").Replace(m[1]))
	if err != nil {
		return nil
	}
	return &n
}

func attr(el browser.Element, name string) string {
	v, err := el.Attribute(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func text(el browser.Element) string {
	v, err := el.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func allText(el browser.Element) []string {
	els, err := el.All()
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range els {
		if s := text(e); s != "" {
			out = append(out, s)
		}
	}
	return out
}
