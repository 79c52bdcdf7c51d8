package feed

import "sync"

// SeenSet tracks content IDs already processed in the current run. It is
// created at run start, shared across all terms, and only ever grows.
// Safe for concurrent use should term processing ever be parallelised.
type SeenSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewSeenSet creates an empty SeenSet.
func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

// Add inserts id and reports whether it was newly added.
func (s *SeenSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id was already processed.
func (s *SeenSet) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of distinct IDs seen.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
