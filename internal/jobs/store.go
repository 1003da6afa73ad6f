// Package jobs runs classification jobs in the background and keeps their
// state and results in a pluggable store.
package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/naka-gawa/github-star-classifier/internal/domain"
)

var (
	// ErrNotFound is returned for unknown job ids.
	ErrNotFound = errors.New("job not found")
	// ErrNotReady is returned when results are requested for a running job.
	ErrNotReady = errors.New("job still processing")
	// ErrNoResult is returned when a finished job has no stored result.
	ErrNoResult = errors.New("no results available")
)

// Store defines the persistence of jobs and their results.
// The classification logic never depends on it.
type Store interface {
	CreateJob(ctx context.Context, job domain.Job) error
	UpdateJob(ctx context.Context, job domain.Job) error
	GetJob(ctx context.Context, id string) (domain.Job, error)
	// ListJobs returns all jobs, oldest first.
	ListJobs(ctx context.Context) ([]domain.Job, error)
	SaveResult(ctx context.Context, res domain.JobResult) error
	GetResult(ctx context.Context, id string) (domain.JobResult, error)
	// Delete removes a job and its result. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
	Close() error
}

// MemoryStore keeps jobs in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	jobs    map[string]domain.Job
	results map[string]domain.JobResult
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:    make(map[string]domain.Job),
		results: make(map[string]domain.JobResult),
	}
}

func (s *MemoryStore) CreateJob(_ context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) UpdateJob(_ context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, id string) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, ErrNotFound
	}
	return job, nil
}

func (s *MemoryStore) ListJobs(_ context.Context) ([]domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) SaveResult(_ context.Context, res domain.JobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[res.JobID] = res
	return nil
}

func (s *MemoryStore) GetResult(_ context.Context, id string) (domain.JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[id]
	if !ok {
		return domain.JobResult{}, ErrNotFound
	}
	return res, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	delete(s.results, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
