// Package core provides the business logic and service layer for the treadscan job system.
package core

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/treadscan/treadscan/internal/domain/model"
	apperrors "github.com/treadscan/treadscan/internal/errors"
)

// JobRegistry is the in-memory store of reconstruction jobs.
//
// Jobs live for the lifetime of the process; there is no persistence
// layer behind the registry. All accessors return deep copies so callers
// can never mutate registry state without going through Update.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
	now  func() time.Time
}

// JobRegistryOptions bundles dependencies for NewJobRegistry.
type JobRegistryOptions struct {
	// Now overrides the clock used for CreatedAt timestamps. Defaults to time.Now.
	Now func() time.Time
}

// NewJobRegistry creates an empty JobRegistry.
func NewJobRegistry(opts JobRegistryOptions) *JobRegistry {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &JobRegistry{
		jobs: make(map[string]*model.Job),
		now:  now,
	}
}

// Create validates the request, assigns a fresh job ID, and records the
// job in queued state.
func (r *JobRegistry) Create(req model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	job := &model.Job{
		ID:               uuid.NewString(),
		ReferenceVideoID: req.ReferenceVideoID,
		DamagedVideoID:   req.DamagedVideoID,
		Status:           model.JobStatusQueued,
		Progress:         0,
		CreatedAt:        r.now().UTC(),
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	return job.Clone(), nil
}

// Get returns a copy of the job with the given ID.
func (r *JobRegistry) Get(id string) (*model.Job, error) {
	r.mu.RLock()
	job, ok := r.jobs[id]
	r.mu.RUnlock()

	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	return job.Clone(), nil
}

// List returns copies of all known jobs in submission order.
func (r *JobRegistry) List() []*model.Job {
	r.mu.RLock()
	jobs := make([]*model.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// Update applies mutate to the job with the given ID under the registry
// lock and returns a copy of the updated job.
//
// Progress is monotonic: a mutation that lowers the recorded progress is
// clamped back to the previous value.
func (r *JobRegistry) Update(id string, mutate func(*model.Job)) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}

	prevProgress := job.Progress
	mutate(job)
	if job.Progress < prevProgress {
		job.Progress = prevProgress
	}

	return job.Clone(), nil
}

// Len returns the number of jobs in the registry.
func (r *JobRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
