package core

import (
	"context"
	"time"

	"github.com/treadscan/treadscan/internal/domain/model"
	apperrors "github.com/treadscan/treadscan/internal/errors"
)

// SnapshotService attaches camera snapshot images to reconstruction jobs.
//
// Snapshots are a best-effort side channel: a snapshot may arrive before
// its job completes, in which case the artifact is stored immediately and
// linked into the job result once one exists. A snapshot stored for a job
// that later fails is never linked and simply expires with its TTL.
type SnapshotService struct {
	artifacts ArtifactRepository
	registry  *JobRegistry
	ttl       time.Duration
}

// SnapshotServiceOptions bundles dependencies for NewSnapshotService.
type SnapshotServiceOptions struct {
	Artifacts ArtifactRepository
	Registry  *JobRegistry
	TTL       time.Duration
}

// NewSnapshotService creates a new SnapshotService.
func NewSnapshotService(opts SnapshotServiceOptions) *SnapshotService {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SnapshotService{
		artifacts: opts.Artifacts,
		registry:  opts.Registry,
		ttl:       ttl,
	}
}

// Save stores the snapshot image for the given job and returns its
// reference. Saving twice for the same job overwrites the prior artifact
// and returns the same reference.
func (s *SnapshotService) Save(ctx context.Context, jobID string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", apperrors.ValidationField("image", "image payload is required")
	}

	job, err := s.registry.Get(jobID)
	if err != nil {
		return "", err
	}

	ref := SnapshotRef(jobID)
	if err := s.artifacts.Set(ctx, ref, image, s.ttl); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "store snapshot")
	}

	// Link into the result when one exists. Jobs still in flight get the
	// reference attached by the finalizer instead.
	if job.Result != nil {
		if _, err := s.registry.Update(jobID, func(j *model.Job) {
			if j.Result != nil {
				j.Result.SnapshotRef = ref
			}
		}); err != nil {
			return "", err
		}
	}

	return ref, nil
}

// Get retrieves the stored snapshot image for the given job.
func (s *SnapshotService) Get(ctx context.Context, jobID string) ([]byte, error) {
	if _, err := s.registry.Get(jobID); err != nil {
		return nil, err
	}

	image, err := s.artifacts.Get(ctx, SnapshotRef(jobID))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "load snapshot")
	}
	if image == nil {
		return nil, apperrors.NotFoundf("no snapshot stored for job %s", jobID)
	}
	return image, nil
}

// SnapshotRef returns the artifact key for a job's snapshot image.
func SnapshotRef(jobID string) string {
	return "snapshots/" + jobID + ".png"
}
