package dedup

import (
	"context"
	"sync"
)

// SafeMap is the in-process Store.
type SafeMap struct {
	mu sync.Mutex
	v  map[string]bool
}

func NewSafeMap() *SafeMap {
	return &SafeMap{v: make(map[string]bool)}
}

func (s *SafeMap) Claim(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.v[key] {
		return false, nil // already claimed
	}
	s.v[key] = true
	return true, nil
}

func (s *SafeMap) Reset(context.Context) error {
	s.mu.Lock()
	s.v = make(map[string]bool)
	s.mu.Unlock()
	return nil
}
