// Package dedup tracks which coins have already been announced as new
// listings.
//
// Entries are never evicted. The set grows to at most the number of distinct
// ids the feed ever returns, which for a top-N listing stays small.
package dedup

import "sync"

// Store is an in-memory set of notified ids, safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		ids: make(map[string]struct{}),
	}
}

// Contains reports whether id was inserted before.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Insert adds id and reports whether it was absent. Exactly one of any number
// of concurrent Insert calls for the same id returns true.
func (s *Store) Insert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[id]; exists {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Len returns the number of tracked ids.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
