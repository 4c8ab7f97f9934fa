// Package jobs tracks asynchronous document processing jobs in memory and
// drives each uploaded document through the remote analyzer.
package jobs

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/kiranshivaraju/docextract/pkg/models"
)

const shardCount = 32

// Store is the job registry the runner and the HTTP handlers share.
// Implementations must be safe for concurrent use.
type Store interface {
	Create(id, filename string) error
	Get(id string) (models.Job, error)
	Set(id string, job models.Job) error
	Len() int
}

// MemoryStore is a process-lifetime Store backed by a sharded map.
// Jobs are stored by value and replaced whole, so a reader observes either
// the processing state or the terminal state of a job and nothing in between.
type MemoryStore struct {
	shards [shardCount]*shard
	now    func() time.Time
}

type shard struct {
	mu   sync.RWMutex
	jobs map[string]models.Job
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{now: func() time.Time { return time.Now().UTC() }}
	for i := range s.shards {
		s.shards[i] = &shard{jobs: make(map[string]models.Job)}
	}
	return s
}

func (s *MemoryStore) shardFor(id string) *shard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return s.shards[h.Sum32()%shardCount]
}

// Create registers a new job in the processing state.
func (s *MemoryStore) Create(id, filename string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidState)
	}
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.jobs[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, id)
	}
	now := s.now()
	sh.jobs[id] = models.Job{
		ID:        id,
		Status:    models.JobStatusProcessing,
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// Get returns a snapshot of the job.
func (s *MemoryStore) Get(id string) (models.Job, error) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	job, ok := sh.jobs[id]
	if !ok {
		return models.Job{}, ErrNotFound
	}
	return job, nil
}

// Set replaces the full state of an existing job. ID and CreatedAt are kept
// from the stored job; UpdatedAt is stamped by the store.
func (s *MemoryStore) Set(id string, job models.Job) error {
	if err := validateState(job); err != nil {
		return err
	}
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	current, ok := sh.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if current.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminal, id, current.Status)
	}

	job.ID = current.ID
	job.CreatedAt = current.CreatedAt
	if job.Filename == "" {
		job.Filename = current.Filename
	}
	job.UpdatedAt = s.now()
	sh.jobs[id] = job
	return nil
}

// Len returns the number of tracked jobs.
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.jobs)
		sh.mu.RUnlock()
	}
	return n
}

// Sweep removes terminal jobs last updated before cutoff and returns how many
// were removed. Jobs still processing are never removed.
func (s *MemoryStore) Sweep(cutoff time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, job := range sh.jobs {
			if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
				delete(sh.jobs, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// validateState enforces that result and error are mutually exclusive and
// present exactly for their terminal state.
func validateState(job models.Job) error {
	switch job.Status {
	case models.JobStatusProcessing:
		if job.Result != nil || job.Error != "" {
			return fmt.Errorf("%w: processing job cannot carry a result or error", ErrInvalidState)
		}
	case models.JobStatusCompleted:
		if job.Result == nil || job.Error != "" {
			return fmt.Errorf("%w: completed job needs a result and no error", ErrInvalidState)
		}
	case models.JobStatusFailed:
		if job.Error == "" || job.Result != nil {
			return fmt.Errorf("%w: failed job needs an error and no result", ErrInvalidState)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidState, job.Status)
	}
	return nil
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
