package model

import "time"

// EventKind identifies the type of a broadcast event.
type EventKind string

const (
	// EventKindProgress announces a stage transition with the job's new progress value.
	EventKindProgress EventKind = "progress"
	// EventKindCompleted announces a job reaching completed with its result.
	EventKindCompleted EventKind = "completed"
	// EventKindFailed announces a job reaching failed with its error message.
	EventKindFailed EventKind = "failed"
)

// Event is a fire-and-forget notification about one job. Events are ephemeral:
// delivery is best-effort and a late subscriber never sees earlier events, the
// registry remains the authoritative source of state.
type Event struct {
	Kind     EventKind             `json:"kind"`
	JobID    string                `json:"job_id"`
	Progress int                   `json:"progress,omitempty"`
	Stage    string                `json:"stage,omitempty"`
	Result   *ReconstructionResult `json:"result,omitempty"`
	Error    string                `json:"error,omitempty"`
	At       time.Time             `json:"at"`
}
