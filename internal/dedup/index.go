package dedup

import (
	"context"
	"log/slog"

	"pv-reviews/internal/domain"
)

// IDSource lists the review ids already persisted.
type IDSource interface {
	AllReviewIDs(ctx context.Context) ([]string, error)
}

// Index is the set of known review ids for one collection run.
// It is not safe for concurrent use; collection is sequential.
type Index struct {
	ids map[string]struct{}
}

// New returns an index seeded with ids.
func New(ids ...string) *Index {
	idx := &Index{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		idx.Add(id)
	}
	return idx
}

// Build reads every known id once. A read failure is logged and yields an
// empty index: the run may then re-submit old reviews, which the store's
// insert-if-absent upsert absorbs.
func Build(ctx context.Context, src IDSource) *Index {
	ids, err := src.AllReviewIDs(ctx)
	if err != nil {
		slog.Warn("load known review ids failed, dedup disabled for this run", "error", err)
		return New()
	}
	slog.Info("dedup index built", "known", len(ids))
	return New(ids...)
}

// Contains reports whether id is known.
func (x *Index) Contains(id string) bool {
	_, ok := x.ids[id]
	return ok
}

// Add records id as known.
func (x *Index) Add(id string) {
	if id != "" {
		x.ids[id] = struct{}{}
	}
}

// Len returns the number of known ids.
func (x *Index) Len() int {
	return len(x.ids)
}

// Filter splits reviews into unseen ones and duplicates. Unseen ids are added
// to the index so a review repeated within the same batch counts once.
func (x *Index) Filter(reviews []domain.Review) (fresh []domain.Review, duplicates int) {
	for _, rv := range reviews {
		if x.Contains(rv.ReviewID) {
			duplicates++
			continue
		}
		x.Add(rv.ReviewID)
		fresh = append(fresh, rv)
	}
	return fresh, duplicates
}
