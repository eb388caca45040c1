// Package dedup keeps the records of a search session unique and bounded,
// and remembers across runs which records were already relayed.
package dedup

import (
	"sync"

	"go-jobsearch-agent/internal/models"
)

// Store accumulates records in insertion order. A record whose ID was seen
// before is ignored, and nothing is admitted once the cap is reached.
type Store struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	records []models.Job
	cap     int
}

// NewStore returns a store that holds at most maxRecords records. A
// non-positive cap means unbounded.
func NewStore(maxRecords int) *Store {
	return &Store{
		seen: make(map[string]struct{}),
		cap:  maxRecords,
	}
}

// Seen reports whether id was admitted or marked before.
func (s *Store) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

// Admit adds job unless its ID is already known or the store is full. It
// reports whether the record was added.
func (s *Store) Admit(job models.Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fullLocked() {
		return false
	}
	if _, ok := s.seen[job.ID]; ok {
		return false
	}
	s.seen[job.ID] = struct{}{}
	s.records = append(s.records, job)
	return true
}

func (s *Store) Full() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullLocked()
}

func (s *Store) fullLocked() bool {
	return s.cap > 0 && len(s.records) >= s.cap
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns a copy of the accumulated records in admission order.
func (s *Store) Records() []models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Job, len(s.records))
	copy(out, s.records)
	return out
}

// Retain drops every record for which keep returns false and returns how
// many were dropped. Dropped IDs stay seen, so they are never re-admitted.
func (s *Store) Retain(keep func(models.Job) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	for _, r := range s.records {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	dropped := len(s.records) - len(kept)
	clear(s.records[len(kept):])
	s.records = kept
	return dropped
}
