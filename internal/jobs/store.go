package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"clipforge/internal/database"
	"clipforge/internal/services"
)

// Observer receives each committed snapshot, in commit order.
type Observer func(Job)

// Store holds the latest committed snapshot of every job.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job

	// writeMu serializes commits so validation, persistence and observer
	// fan-out all happen in one order.
	writeMu   sync.Mutex
	persist   *persister
	observers []Observer
	lastStamp time.Time
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a store. When db is nil snapshots live in memory only.
func NewStore(ctx context.Context, db *database.DB, opts ...Option) (*Store, error) {
	s := &Store{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if db != nil {
		p, err := newPersister(ctx, db)
		if err != nil {
			return nil, err
		}
		s.persist = p
	}
	return s, nil
}

// OnCommit registers an observer. Observers run synchronously on the
// committing goroutine and must not call back into Update.
func (s *Store) OnCommit(fn Observer) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.observers = append(s.observers, fn)
}

// Create commits a new job.
func (s *Store) Create(ctx context.Context, job *Job) (Job, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	_, exists := s.jobs[job.ID]
	s.mu.RUnlock()
	if exists {
		return Job{}, ErrExists
	}

	next := job.Clone()
	now := s.stamp()
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now
	if next.Stage == "" {
		next.Stage = next.Status.Label()
	}
	s.stampLogs(next, now)
	if err := validateCommit(nil, next); err != nil {
		return Job{}, err
	}
	return s.commit(ctx, next)
}

// Get returns a copy of the latest snapshot.
func (s *Store) Get(_ context.Context, id string) (Job, error) {
	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return Job{}, &ErrNotFound{ID: id}
	}
	return *job.Clone(), nil
}

// List returns matching jobs, newest first.
func (s *Store) List(_ context.Context, filter Filter) []Job {
	s.mu.RLock()
	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.matches(job) {
			out = append(out, *job.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

// Update applies mutate to a private copy of the job and commits it. When
// mutate returns an error nothing is committed and that error is returned.
func (s *Store) Update(ctx context.Context, id string, mutate func(*Job) error) (Job, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	prev, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return Job{}, &ErrNotFound{ID: id}
	}

	next := prev.Clone()
	if err := mutate(next); err != nil {
		return Job{}, err
	}
	now := s.stamp()
	next.UpdatedAt = now
	s.stampLogs(next, now)
	if err := validateCommit(prev, next); err != nil {
		return Job{}, err
	}
	return s.commit(ctx, next)
}

// commit persists and publishes next. Callers hold writeMu.
func (s *Store) commit(ctx context.Context, next *Job) (Job, error) {
	if err := s.persist.save(ctx, next); err != nil {
		return Job{}, err
	}
	s.mu.Lock()
	s.jobs[next.ID] = next
	s.mu.Unlock()

	snapshot := *next.Clone()
	for _, fn := range s.observers {
		fn(*next.Clone())
	}
	return snapshot, nil
}

// stamp returns a strictly increasing commit time so log order and
// timestamp order agree even when the clock does not advance.
func (s *Store) stamp() time.Time {
	now := s.now().UTC()
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Microsecond)
	}
	s.lastStamp = now
	return now
}

func (s *Store) stampLogs(job *Job, now time.Time) {
	for i := range job.Logs {
		if job.Logs[i].Time.IsZero() {
			job.Logs[i].Time = now
			now = now.Add(time.Microsecond)
			s.lastStamp = now
		}
	}
}

// Restore loads persisted jobs into memory. Jobs that were in the middle of a
// stage when the previous process stopped are failed as interrupted. Jobs
// awaiting a render trigger survive unchanged. Returns the number of
// interrupted jobs.
func (s *Store) Restore(ctx context.Context) (int, error) {
	loaded, err := s.persist.loadAll(ctx)
	if err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	interrupted := 0
	for _, job := range loaded {
		if job.UpdatedAt.After(s.lastStamp) {
			s.lastStamp = job.UpdatedAt
		}
		for _, entry := range job.Logs {
			if entry.Time.After(s.lastStamp) {
				s.lastStamp = entry.Time
			}
		}
		s.mu.Lock()
		s.jobs[job.ID] = job
		s.mu.Unlock()
	}
	for _, job := range loaded {
		if !job.Running() {
			continue
		}
		next := job.Clone()
		next.Fail(services.KindInterrupted, "process restarted during "+job.Status.Label())
		now := s.stamp()
		next.UpdatedAt = now
		s.stampLogs(next, now)
		if err := validateCommit(job, next); err != nil {
			return interrupted, err
		}
		if _, err := s.commit(ctx, next); err != nil {
			return interrupted, err
		}
		interrupted++
	}
	return interrupted, nil
}

// Counts returns the number of jobs per status.
func (s *Store) Counts() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int, len(pipeline)+1)
	for _, job := range s.jobs {
		counts[job.Status]++
	}
	return counts
}
