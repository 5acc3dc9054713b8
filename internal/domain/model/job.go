// Package model defines the core data types used throughout the treadscan reconstruction service.
package model

import (
	"errors"
	"strings"
	"time"
)

// JobStatus represents the current status of a reconstruction job.
type JobStatus string

const (
	// JobStatusQueued indicates a job is waiting in the queue.
	JobStatusQueued JobStatus = "queued"
	// JobStatusProcessing indicates the worker is driving the job through the pipeline.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates the job finished successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed; the status never changes again.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusProcessing || s == JobStatusCompleted ||
		s == JobStatusFailed
}

// Terminal returns true once a job can no longer transition.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job represents one tyre reconstruction request and its accumulated state.
// The registry owns the canonical copy; everything outside the worker sees clones.
type Job struct {
	ID               string                `json:"id"`
	ReferenceVideoID string                `json:"reference_video_id"`
	DamagedVideoID   string                `json:"damaged_video_id"`
	Status           JobStatus             `json:"status"`
	Progress         int                   `json:"progress"`
	CurrentStage     string                `json:"current_stage,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	CompletedAt      *time.Time            `json:"completed_at,omitempty"`
	Result           *ReconstructionResult `json:"result,omitempty"`
	ErrorMessage     *string               `json:"error,omitempty"`
}

// Clone returns a deep copy safe to hand outside the registry.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	if j.ErrorMessage != nil {
		msg := *j.ErrorMessage
		out.ErrorMessage = &msg
	}
	out.Result = j.Result.Clone()
	return &out
}

// ReconstructionResult aggregates the outputs of all pipeline stages.
type ReconstructionResult struct {
	ReferenceFramesDir    string  `json:"reference_frames_dir,omitempty"`
	DamagedFramesDir      string  `json:"damaged_frames_dir,omitempty"`
	MeshPath              string  `json:"mesh_path,omitempty"`
	MeshVertexCount       int     `json:"mesh_vertex_count,omitempty"`
	MeshFaceCount         int     `json:"mesh_face_count,omitempty"`
	CrackCount            int     `json:"crack_count"`
	CompositeCrackMapPath string  `json:"composite_crack_map_path,omitempty"`
	MaxDepthMM            float64 `json:"max_depth_mm"`
	AverageDepthMM        float64 `json:"average_depth_mm"`
	DifferenceVideoPath   string  `json:"difference_video_path,omitempty"`
	DifferenceFrameCount  int     `json:"difference_frame_count,omitempty"`

	// SnapshotRef is attached by the snapshot service, not the pipeline.
	SnapshotRef string `json:"snapshot_ref,omitempty"`

	// IncompleteFields lists result fields whose source stage returned no
	// usable metadata. Numeric fields stay zero rather than being defaulted
	// to plausible-looking values.
	IncompleteFields []string `json:"incomplete_fields,omitempty"`

	// StageMetadata preserves the raw per-stage metadata for inspection.
	StageMetadata map[string]map[string]any `json:"stage_metadata,omitempty"`
}

// Clone returns a deep copy of the result.
func (r *ReconstructionResult) Clone() *ReconstructionResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.IncompleteFields != nil {
		out.IncompleteFields = append([]string(nil), r.IncompleteFields...)
	}
	if r.StageMetadata != nil {
		out.StageMetadata = make(map[string]map[string]any, len(r.StageMetadata))
		for stage, meta := range r.StageMetadata {
			m := make(map[string]any, len(meta))
			for k, v := range meta {
				m[k] = v
			}
			out.StageMetadata[stage] = m
		}
	}
	return &out
}

// CreateJobRequest represents a request to submit a new reconstruction job.
type CreateJobRequest struct {
	ReferenceVideoID string `json:"reference_video_id"`
	DamagedVideoID   string `json:"damaged_video_id"`
}

// Validate validates the CreateJobRequest fields. The upload identifiers are
// opaque; only non-emptiness is checked here.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.ReferenceVideoID) == "" {
		return errors.New("reference_video_id is required")
	}
	if strings.TrimSpace(r.DamagedVideoID) == "" {
		return errors.New("damaged_video_id is required")
	}
	return nil
}
