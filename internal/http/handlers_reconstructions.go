// Package httpx provides HTTP handlers and utilities for the treadscan reconstruction API.
package httpx

import (
	"errors"
	"net/http"

	"github.com/treadscan/treadscan/internal/core"
	"github.com/treadscan/treadscan/internal/domain/model"
)

// JobSubmitter enqueues a created job for processing.
type JobSubmitter interface {
	Submit(jobID string)
}

// ReconstructionHandlers provides HTTP handlers for reconstruction job operations.
type ReconstructionHandlers struct {
	Registry *core.JobRegistry
	Queue    JobSubmitter
}

// Create handles HTTP requests to submit a new reconstruction job.
// The job is registered and queued in one step: a caller that receives the
// job id can immediately poll it.
func (h *ReconstructionHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Registry.Create(req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if h.Queue != nil {
		h.Queue.Submit(job.ID)
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"id":     job.ID,
		"status": job.Status,
	})
}

// Get handles HTTP requests to fetch one job's full record.
func (h *ReconstructionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	job, err := h.Registry.Get(id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// jobSummary is the list-view projection of a job.
type jobSummary struct {
	ID           string          `json:"id"`
	Status       model.JobStatus `json:"status"`
	Progress     int             `json:"progress"`
	CurrentStage string          `json:"current_stage,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

// List handles HTTP requests to list all known jobs in submission order.
func (h *ReconstructionHandlers) List(w http.ResponseWriter, _ *http.Request) {
	jobs := h.Registry.List()

	summaries := make([]jobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, jobSummary{
			ID:           job.ID,
			Status:       job.Status,
			Progress:     job.Progress,
			CurrentStage: job.CurrentStage,
			CreatedAt:    job.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":  summaries,
		"total": len(summaries),
	})
}
