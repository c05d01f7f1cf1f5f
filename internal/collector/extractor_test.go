package collector

import (
	"errors"
	"testing"
	"time"

	"pv-reviews/internal/browser/browsertest"
	"pv-reviews/internal/config"
)

func reviewCard(id, rating string) *browsertest.Node {
	card := browsertest.NewNode("")
	holder := browsertest.NewNode("")
	if id != "" {
		holder.Attr(config.AttrReviewID, id).Attr(config.AttrListingID, "L1")
	}
	card.Add(config.SelectorCardIDHolder, holder)
	if rating != "" {
		card.Add(config.SelectorRating, browsertest.NewNode("").Attr("aria-label", rating))
	}
	return card
}

func TestExtractor_Extract_AllFields(t *testing.T) {
	card := reviewCard("R1", "Rated 4 out of 5,")
	card.Children(config.SelectorCardIDHolder)[0].Attr(config.AttrShareURL, "https://share/R1")
	card.Add(config.SelectorReviewerName, browsertest.NewNode(" Asha "))
	card.Add(config.SelectorReviewerProfile, browsertest.NewNode("").Attr("href", "https://maps/contrib/1"))
	card.Add(config.SelectorReviewerDetails, browsertest.NewNode("Local Guide · 42 reviews · 7 photos"))
	card.Add(config.SelectorReviewTime, browsertest.NewNode("2 days ago"))
	card.Add(config.SelectorReviewText, browsertest.NewNode("Good food…"))
	card.Add(config.SelectorFullReviewLink, browsertest.NewNode("Full review"))
	card.Add(config.SelectorFullReviewText, browsertest.NewNode("Good food and quick service."))
	card.Add(config.SelectorMetadata,
		browsertest.NewNode("Dine in"),
		browsertest.NewNode("Dinner"),
		browsertest.NewNode("₹200–400"))
	card.Add(config.SelectorSubRatings, browsertest.NewNode("Food: 5/5 | Service: 4/5"))
	card.Add(config.SelectorReviewImage,
		browsertest.NewNode("").Attr("src", "https://img/1"),
		browsertest.NewNode("").Attr("src", ""))

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	x := &Extractor{now: func() time.Time { return fixed }}

	rv, err := x.Extract(card.Element())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if rv.ReviewID != "R1" || rv.ListingID != "L1" || rv.ShareURL != "https://share/R1" {
		t.Errorf("unexpected identity fields: %+v", rv)
	}
	if rv.Rating != 4 {
		t.Errorf("expected rating 4, got %d", rv.Rating)
	}
	if rv.ReviewerName != "Asha" {
		t.Errorf("expected trimmed reviewer name, got %q", rv.ReviewerName)
	}
	if !rv.IsLocalGuide {
		t.Error("expected local guide")
	}
	if rv.ReviewCount == nil || *rv.ReviewCount != 42 {
		t.Errorf("expected review count 42, got %v", rv.ReviewCount)
	}
	if rv.PhotoCount == nil || *rv.PhotoCount != 7 {
		t.Errorf("expected photo count 7, got %v", rv.PhotoCount)
	}
	if rv.ReviewText != "Good food and quick service." {
		t.Errorf("expected expanded text, got %q", rv.ReviewText)
	}
	if rv.DineIn != "Dine in" || rv.Session != "Dinner" || rv.PriceRange != "₹200–400" {
		t.Errorf("unexpected metadata: %q %q %q", rv.DineIn, rv.Session, rv.PriceRange)
	}
	if rv.FoodRating == nil || *rv.FoodRating != 5 || rv.ServiceRating == nil || *rv.ServiceRating != 4 {
		t.Errorf("unexpected sub ratings: %v %v", rv.FoodRating, rv.ServiceRating)
	}
	if rv.AtmosphereRating != nil {
		t.Errorf("expected no atmosphere rating, got %d", *rv.AtmosphereRating)
	}
	if len(rv.Images) != 1 || rv.Images[0] != "https://img/1" {
		t.Errorf("unexpected images: %v", rv.Images)
	}
	if !rv.CollectedAt.Equal(fixed) {
		t.Errorf("unexpected collected_at %v", rv.CollectedAt)
	}
}

func TestExtractor_Extract_MissingOptionalFields(t *testing.T) {
	rv, err := NewExtractor().Extract(reviewCard("R2", "Rated 5 out of 5").Element())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if rv.ReviewerName != "" || rv.ReviewText != "" || rv.ReviewCount != nil || rv.Images != nil {
		t.Errorf("expected empty optional fields, got %+v", rv)
	}
}

func TestExtractor_Extract_Invalid(t *testing.T) {
	tests := []struct {
		name string
		card *browsertest.Node
	}{
		{"missing id", reviewCard("", "Rated 3 out of 5")},
		{"missing rating", reviewCard("R3", "")},
		{"rating out of range", reviewCard("R4", "Rated 0 out of 5")},
		{"rating not numeric", reviewCard("R5", "five stars")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExtractor().Extract(tt.card.Element())
			if !errors.Is(err, ErrInvalidReview) {
				t.Errorf("expected ErrInvalidReview, got %v", err)
			}
		})
	}
}

func TestExtractor_Extract_RatingFromText(t *testing.T) {
	card := reviewCard("R6", "")
	card.Add(config.SelectorRating, browsertest.NewNode("2/5"))

	rv, err := NewExtractor().Extract(card.Element())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if rv.Rating != 2 {
		t.Errorf("expected rating 2, got %d", rv.Rating)
	}
}

func TestExtractor_Extract_ReviewerCounts(t *testing.T) {
	tests := []struct {
		details        string
		reviews, photo int
	}{
		{"Local Guide · 42 reviews · 7 photos", 42, 7},
		{"Local Guide · 1,234 reviews · 2,050 photos", 1234, 2050},
		{"1.234 reviews · 1 photo", 1234, 1},
		{"1 review", 1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.details, func(t *testing.T) {
			card := reviewCard("R7", "Rated 5 out of 5")
			card.Add(config.SelectorReviewerDetails, browsertest.NewNode(tt.details))

			rv, err := NewExtractor().Extract(card.Element())
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if rv.ReviewCount == nil || *rv.ReviewCount != tt.reviews {
				t.Errorf("expected review count %d, got %v", tt.reviews, rv.ReviewCount)
			}
			if tt.photo < 0 {
				if rv.PhotoCount != nil {
					t.Errorf("expected no photo count, got %d", *rv.PhotoCount)
				}
				return
			}
			if rv.PhotoCount == nil || *rv.PhotoCount != tt.photo {
				t.Errorf("expected photo count %d, got %v", tt.photo, rv.PhotoCount)
			}
		})
	}
}
