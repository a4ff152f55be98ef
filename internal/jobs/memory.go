// internal/jobs/memory.go
package jobs

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store with the same uniqueness and
// ordering semantics as the MongoDB implementation. It backs tests and
// the CLI.
type MemoryStore struct {
	mu   sync.Mutex
	jobs []*Job
}

// NewMemoryStore creates an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert implements Store, refusing URLs that already have a
// non-failed job.
func (s *MemoryStore) Insert(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.URL == job.URL && j.State != StateFailed {
			return fmt.Errorf("%w: %s", ErrURLActive, job.URL)
		}
	}

	copied := *job
	s.jobs = append(s.jobs, &copied)
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.ID == id {
			copied := *j
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, j := range s.jobs {
		if j.ID == job.ID {
			copied := *job
			s.jobs[i] = &copied
			return nil
		}
	}
	return ErrNotFound
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, j := range s.jobs {
		if j.ID == id {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// NextQueued implements Store. Jobs are held in insertion order, so
// the first queued entry is the oldest.
func (s *MemoryStore) NextQueued(_ context.Context) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.State == StateQueued {
			copied := *j
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// CountByState implements Store.
func (s *MemoryStore) CountByState(_ context.Context) (map[State]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[State]int)
	for _, j := range s.jobs {
		counts[j.State]++
	}
	return counts, nil
}

// Len reports the number of stored jobs.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
