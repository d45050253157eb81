package collection

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/servicecache/pkg/types"
)

// Set routes lookups across several collections.
type Set struct {
	mu          sync.RWMutex
	collections []*Collection
}

// NewSet creates a set holding cs in order.
func NewSet(cs ...*Collection) *Set {
	return &Set{collections: append([]*Collection(nil), cs...)}
}

// Add appends c to the set.
func (s *Set) Add(c *Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = append(s.collections, c)
}

// All returns the collections in set order.
func (s *Set) All() []*Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Collection(nil), s.collections...)
}

// Get returns the collection with the given name or prefix.
func (s *Set) Get(name string) (*Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.collections {
		if c.Name() == name || c.Prefix() == name {
			return c, true
		}
	}
	return nil, false
}

// TrackForURL asks every collection that may own url, concurrently, and
// returns the first hit in set order.
func (s *Set) TrackForURL(ctx context.Context, url string) (*types.Track, *Collection) {
	var candidates []*Collection
	for _, c := range s.All() {
		if c.PossiblyContainsTrack(url) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	found := make([]*types.Track, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range candidates {
		g.Go(func() error {
			found[i] = c.TrackForURL(gctx, url)
			return nil
		})
	}
	_ = g.Wait()

	for i, t := range found {
		if t != nil {
			return t, candidates[i]
		}
	}
	return nil, nil
}
