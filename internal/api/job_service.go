package api

import (
	"context"

	"clipforge/internal/jobs"
)

// JobReader abstracts the store reads needed for API queries.
type JobReader interface {
	Get(ctx context.Context, id string) (jobs.Job, error)
	List(ctx context.Context, filter jobs.Filter) []jobs.Job
	Counts() map[jobs.Status]int
}

// JobService exposes read-only job operations returning API DTOs. Reads see
// the latest committed snapshot and never wait on stage work.
type JobService struct {
	store JobReader
}

// NewJobService constructs a JobService around the provided reader.
func NewJobService(store JobReader) *JobService {
	if store == nil {
		return nil
	}
	return &JobService{store: store}
}

// Describe fetches a single job owned by userID; an empty userID reads any
// job. Unknown and foreign ids both return an error matching
// services.ErrNotFound.
func (s *JobService) Describe(ctx context.Context, id, userID string) (Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if userID != "" && job.UserID != userID {
		return Job{}, &jobs.ErrNotFound{ID: id}
	}
	return FromJob(job), nil
}

// List returns jobs filtered by status and owner, newest first. Counts cover
// every status of the owner's jobs, or of all jobs when userID is empty.
func (s *JobService) List(ctx context.Context, userID string, statuses ...jobs.Status) JobListResponse {
	counts := s.store.Counts()
	if userID != "" {
		counts = make(map[jobs.Status]int)
		for _, job := range s.store.List(ctx, jobs.Filter{UserID: userID}) {
			counts[job.Status]++
		}
	}
	list := s.store.List(ctx, jobs.Filter{Statuses: statuses, UserID: userID})
	return JobListResponse{
		Jobs:   FromJobs(list),
		Counts: MergeJobCounts(counts),
	}
}
