package track

import (
	"sync"

	"gentrack/internal/domain"
)

// ListStore holds the currently displayed ordered sequence of jobs plus
// pagination metadata. Refreshes replace the whole list; polls patch single
// records in place. Records are stored and returned by value so readers never
// observe a half-applied update.
type ListStore struct {
	mu    sync.RWMutex
	jobs  []domain.Job
	index map[string]int
	page  domain.Pagination
}

// NewListStore returns an empty store.
func NewListStore() *ListStore {
	return &ListStore{index: make(map[string]int)}
}

// Replace swaps in a new ordered list and pagination metadata.
func (s *ListStore) Replace(jobs []domain.Job, page domain.Pagination) {
	copied := make([]domain.Job, len(jobs))
	copy(copied, jobs)
	index := make(map[string]int, len(copied))
	for i, j := range copied {
		if _, dup := index[j.ID]; dup {
			continue
		}
		index[j.ID] = i
	}

	s.mu.Lock()
	s.jobs = copied
	s.index = index
	s.page = page
	s.mu.Unlock()
}

// Patch replaces the record with the same id in place, preserving display
// order. Unknown ids are ignored: a poll result for a job outside the current
// page has nowhere to render. Patch is idempotent for identical input.
func (s *ListStore) Patch(id string, job domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return
	}
	s.jobs[i] = job
}

// Get returns the displayed record for id, if present.
func (s *ListStore) Get(id string) (domain.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return domain.Job{}, false
	}
	return s.jobs[i], true
}

// Snapshot returns a copy of the displayed list and its pagination.
func (s *ListStore) Snapshot() ([]domain.Job, domain.Pagination) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Job, len(s.jobs))
	copy(out, s.jobs)
	return out, s.page
}

// Len reports the number of displayed records.
func (s *ListStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
