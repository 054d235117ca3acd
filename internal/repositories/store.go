package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/shared"
)

var _ models.Repository = (*JobStore)(nil)

// JobStore is the in-memory job table.
//
// The map lock only guards membership. Each entry has its own mutex, so updates
// to one job never wait on another. Writes go through the optional [Journal]
// before they are committed to memory.
type JobStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	seq     uint64
	journal Journal
	now     func() time.Time
}

type entry struct {
	mu      sync.Mutex
	seq     uint64
	job     models.Job
	deleted bool
}

// StoreOption configures a [JobStore].
type StoreOption func(*JobStore)

// WithJournal persists every committed change to j.
func WithJournal(j Journal) StoreOption {
	return func(s *JobStore) { s.journal = j }
}

// WithClock overrides the time source used for updated_at and finished_at.
func WithClock(now func() time.Time) StoreOption {
	return func(s *JobStore) { s.now = now }
}

// NewJobStore creates an empty [JobStore].
func NewJobStore(opts ...StoreOption) *JobStore {
	s := &JobStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put inserts a new job. Ids must be unique.
func (s *JobStore) Put(job models.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	s.mu.RLock()
	_, exists := s.entries[job.ID]
	s.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: duplicate job id %s", shared.ErrInvalidInput, job.ID)
	}

	if s.journal != nil {
		if err := s.journal.Save(job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[job.ID]; exists {
		return fmt.Errorf("%w: duplicate job id %s", shared.ErrInvalidInput, job.ID)
	}
	s.seq++
	s.entries[job.ID] = &entry{seq: s.seq, job: job}
	return nil
}

// Restore loads jobs read from a journal without writing them back.
// Jobs are ordered by creation time; existing ids are skipped.
func (s *JobStore) Restore(jobs []models.Job) int {
	sorted := append([]models.Job(nil), jobs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, job := range sorted {
		if _, exists := s.entries[job.ID]; exists {
			continue
		}
		s.seq++
		s.entries[job.ID] = &entry{seq: s.seq, job: job}
		n++
	}
	return n
}

// Get returns a copy of the job with the given id.
func (s *JobStore) Get(id string) (models.Job, error) {
	e, err := s.lookup(id)
	if err != nil {
		return models.Job{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return models.Job{}, fmt.Errorf("%w: %s", shared.ErrNotFound, id)
	}
	return e.job, nil
}

// List returns copies of all jobs in submission order.
func (s *JobStore) List() []models.Job {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	jobs := make([]models.Job, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted {
			jobs = append(jobs, e.job)
		}
		e.mu.Unlock()
	}
	return jobs
}

// Update applies fn to a copy of the job and commits the copy atomically.
//
// The commit is rejected, leaving the stored job untouched, when the job is
// already terminal, fn returns an error, the status change is not allowed,
// the result fails validation, or the journal write fails. Progress never
// moves backwards, id, source url and creation time are immutable, and every
// commit bumps the job's revision.
func (s *JobStore) Update(id string, fn func(job *models.Job) error) (models.Job, error) {
	e, err := s.lookup(id)
	if err != nil {
		return models.Job{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.job
	if e.deleted {
		return models.Job{}, fmt.Errorf("%w: %s", shared.ErrNotFound, id)
	}
	if prev.Status.IsTerminal() {
		return prev, fmt.Errorf("%w: %s is %s", shared.ErrAlreadyTerminal, id, prev.Status)
	}

	next := prev
	if err := fn(&next); err != nil {
		return prev, err
	}

	next.ID, next.SourceURL, next.CreatedAt = prev.ID, prev.SourceURL, prev.CreatedAt
	next.Revision = prev.Revision + 1
	if !prev.Status.CanTransition(next.Status) {
		return prev, fmt.Errorf("%w: %s -> %s", shared.ErrInvalidState, prev.Status, next.Status)
	}
	if next.Progress < prev.Progress {
		next.Progress = prev.Progress
	}

	now := s.now()
	next.UpdatedAt = now
	if next.Status.IsTerminal() && next.FinishedAt == nil {
		next.FinishedAt = &now
	}

	if err := next.Validate(); err != nil {
		return prev, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	if s.journal != nil {
		if err := s.journal.Save(next); err != nil {
			return prev, fmt.Errorf("failed to save job: %w", err)
		}
	}

	e.job = next
	return next, nil
}

// Delete removes a job from the table and the journal.
func (s *JobStore) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrNotFound, id)
	}

	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()

	if s.journal != nil {
		if err := s.journal.Delete(id); err != nil {
			return fmt.Errorf("failed to delete job: %w", err)
		}
	}
	return nil
}

// Len returns the number of stored jobs.
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *JobStore) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, id)
	}
	return e, nil
}
