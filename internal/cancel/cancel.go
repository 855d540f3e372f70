// Package cancel holds the set of job keys the user asked to stop.
package cancel

import "sync"

// Set is a concurrency-safe set of cancelled keys. Long-running loops poll
// IsCancelled between units of work.
type Set struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{keys: make(map[string]struct{})}
}

// Mark flags key as cancelled. Marking twice is the same as marking once.
func (s *Set) Mark(key string) {
	s.mu.Lock()
	s.keys[key] = struct{}{}
	s.mu.Unlock()
}

// Clear removes key so the file can be processed again.
func (s *Set) Clear(key string) {
	s.mu.Lock()
	delete(s.keys, key)
	s.mu.Unlock()
}

// IsCancelled reports whether key is flagged.
func (s *Set) IsCancelled(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[key]
	return ok
}

// Take reports whether key was flagged and clears it in the same step.
func (s *Set) Take(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	delete(s.keys, key)
	return ok
}
