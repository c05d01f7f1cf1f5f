package storage

import (
	"context"
	"strings"
	"testing"
)

func TestImportCSV(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	data := `Review ID,Reviewer Name,Rating,Time,Review Text,Food Rating,Images,Is Local Guide
r1,Asha,5 stars,2 weeks ago,Great dosa,5.0,"['https://img/a.jpg', 'https://img/b.jpg']",True
r2,Ravi,N/A,1 month ago,Hmm,,,
r3,Meena,4 out of 5 stars,yesterday,Good,,nan,False
`
	res, err := ImportCSV(ctx, repo, strings.NewReader(data))
	if err != nil {
		t.Fatalf("ImportCSV failed: %v", err)
	}
	if res.Inserted != 2 || res.Invalid != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	got, err := repo.GetReview(ctx, "r1")
	if err != nil {
		t.Fatalf("GetReview failed: %v", err)
	}
	if got.Rating != 5 || !got.IsLocalGuide || got.FoodRating == nil || *got.FoodRating != 5 {
		t.Errorf("unexpected imported review %+v", got)
	}
	if len(got.Images) != 2 || got.Images[1] != "https://img/b.jpg" {
		t.Errorf("unexpected images %v", got.Images)
	}

	// Re-import is a no-op
	res, err = ImportCSV(ctx, repo, strings.NewReader(data))
	if err != nil {
		t.Fatalf("second ImportCSV failed: %v", err)
	}
	if res.Inserted != 0 {
		t.Errorf("expected no new rows on re-import, got %d", res.Inserted)
	}
}

func TestImportCSV_MissingIDColumn(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := ImportCSV(context.Background(), repo, strings.NewReader("Name,Rating\nA,5\n")); err == nil {
		t.Fatal("expected error for csv without review id column")
	}
}
