package events

import (
	"context"
	"sync"
	"time"

	"clipforge/internal/jobs"
)

// Event is one committed snapshot of a job.
type Event struct {
	Sequence  uint64      `json:"seq"`
	Timestamp time.Time   `json:"ts"`
	JobID     string      `json:"jobId"`
	Status    jobs.Status `json:"status"`
	Job       jobs.Job    `json:"-"`
}

type stream struct {
	events   []Event
	lastSeq  uint64
	terminal bool
	touched  time.Time
}

// Hub buffers recent events per job. Sequence numbers come from one
// hub-wide counter, so a job's stream recreated after eviction still
// continues above any sequence a client has already seen.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	maxJobs  int
	seq      uint64
	streams  map[string]*stream
}

// NewHub returns a hub keeping capacity events per job and buffers for at
// most maxJobs jobs. Finished jobs are evicted first.
func NewHub(capacity, maxJobs int) *Hub {
	if capacity <= 0 {
		capacity = 256
	}
	if maxJobs <= 0 {
		maxJobs = 512
	}
	h := &Hub{capacity: capacity, maxJobs: maxJobs, streams: make(map[string]*stream)}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish appends a snapshot. It is safe to use as a jobs.Observer.
func (h *Hub) Publish(job jobs.Job) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.streams[job.ID]
	if !ok {
		h.evictLocked()
		s = &stream{}
		h.streams[job.ID] = s
	}
	h.seq++
	s.lastSeq = h.seq
	now := time.Now().UTC()
	evt := Event{Sequence: h.seq, Timestamp: now, JobID: job.ID, Status: job.Status, Job: job}
	if len(s.events) == h.capacity {
		copy(s.events, s.events[1:])
		s.events = s.events[:h.capacity-1]
	}
	s.events = append(s.events, evt)
	s.terminal = job.Status.IsTerminal()
	s.touched = now
	h.cond.Broadcast()
}

// evictLocked drops the least recently touched stream, preferring finished
// jobs, once the hub is full.
func (h *Hub) evictLocked() {
	if len(h.streams) < h.maxJobs {
		return
	}
	var (
		victim   string
		oldest   time.Time
		terminal bool
	)
	for id, s := range h.streams {
		better := victim == "" ||
			(s.terminal && !terminal) ||
			(s.terminal == terminal && s.touched.Before(oldest))
		if better {
			victim, oldest, terminal = id, s.touched, s.terminal
		}
	}
	delete(h.streams, victim)
}

// Fetch returns events for jobID with sequence greater than since. When wait
// is true it blocks until an event arrives or ctx ends.
func (h *Hub) Fetch(ctx context.Context, jobID string, since uint64, wait bool) ([]Event, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		events, next := h.snapshotLocked(jobID, since)
		if len(events) > 0 || !wait {
			return events, next, nil
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
	}
}

// Latest returns the newest sequence number recorded for jobID.
func (h *Hub) Latest(jobID string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.streams[jobID]; ok {
		return s.lastSeq
	}
	return 0
}

func (h *Hub) snapshotLocked(jobID string, since uint64) ([]Event, uint64) {
	s, ok := h.streams[jobID]
	if !ok {
		return nil, since
	}
	var out []Event
	for _, evt := range s.events {
		if evt.Sequence > since {
			out = append(out, evt)
		}
	}
	next := since
	if len(out) > 0 {
		next = out[len(out)-1].Sequence
	}
	return out, next
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
