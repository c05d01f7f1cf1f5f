// Package progress checkpoints the review ids a posting run has finished, so
// an interrupted run resumes where it stopped.
package progress

import (
	"context"
	"fmt"
	"sort"

	"pv-reviews/internal/config"
)

// Set is a set of review ids.
type Set map[string]struct{}

// NewSet returns a set holding ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	s.Add(ids...)
	return s
}

// Add inserts ids.
func (s Set) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Store persists a Set between runs.
type Store interface {
	Load(ctx context.Context) (Set, error)
	Save(ctx context.Context, s Set) error
}

// NewStore returns the configured backend.
func NewStore(cfg config.ProgressConfig) (Store, error) {
	switch cfg.Backend {
	case config.ProgressFile, "":
		return NewFileStore(cfg.Path), nil
	case config.ProgressRedis:
		return NewRedisStore(cfg.RedisURL, cfg.RedisKey)
	default:
		return nil, fmt.Errorf("unknown progress backend: %q", cfg.Backend)
	}
}
