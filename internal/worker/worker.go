// Package worker implements the single-flight queue that drives queued
// reconstruction jobs through the stage pipeline.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/treadscan/treadscan/internal/core"
	"github.com/treadscan/treadscan/internal/domain/model"
	apperrors "github.com/treadscan/treadscan/internal/errors"
	"github.com/treadscan/treadscan/internal/events"
	"github.com/treadscan/treadscan/internal/observability/metrics"
	"github.com/treadscan/treadscan/internal/observability/statsd"
	"github.com/treadscan/treadscan/internal/pipeline"
)

// State is the worker's own lifecycle state, kept explicit so the
// "wake if idle" transition is observable in tests.
type State string

const (
	// StateIdle means the queue is empty and the worker is parked.
	StateIdle State = "idle"
	// StateDraining means the worker is processing or about to pop the
	// next queued job.
	StateDraining State = "draining"
)

// Worker pops queued job IDs in FIFO order and runs each through the
// pipeline to a terminal status. Exactly one job is in flight at any time,
// and the failure of one job never blocks the next.
type Worker struct {
	registry  *core.JobRegistry
	pipeline  *pipeline.Runner
	publisher events.Publisher
	artifacts core.ArtifactRepository
	metrics   statsd.Sink
	logger    *slog.Logger

	mu    sync.Mutex
	queue []string
	state State

	// wake has capacity 1 so Submit never blocks on an already-signalled worker.
	wake chan struct{}
}

// Options bundles dependencies for NewWorker.
type Options struct {
	Registry  *core.JobRegistry
	Pipeline  *pipeline.Runner
	Publisher events.Publisher

	// Artifacts is consulted at completion to link an early-arriving
	// snapshot into the result. Optional.
	Artifacts core.ArtifactRepository

	// QueueCapacity sizes the queue's initial allocation.
	QueueCapacity int

	Metrics statsd.Sink
	Logger  *slog.Logger
}

// NewWorker constructs a Worker.
func NewWorker(opts Options) (*Worker, error) {
	if opts.Registry == nil {
		return nil, errors.New("worker registry is required")
	}
	if opts.Pipeline == nil {
		return nil, errors.New("worker pipeline is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	capacity := opts.QueueCapacity
	if capacity < 0 {
		capacity = 0
	}

	return &Worker{
		registry:  opts.Registry,
		pipeline:  opts.Pipeline,
		publisher: opts.Publisher,
		artifacts: opts.Artifacts,
		metrics:   opts.Metrics,
		logger:    logger,
		queue:     make([]string, 0, capacity),
		state:     StateIdle,
		wake:      make(chan struct{}, 1),
	}, nil
}

// MustNewWorker constructs a Worker and panics on invalid options.
func MustNewWorker(opts Options) *Worker {
	w, err := NewWorker(opts)
	if err != nil {
		panic(err)
	}
	return w
}

// Submit appends the job ID to the tail of the queue and wakes the worker
// if it is idle. Submission order is processing order.
func (w *Worker) Submit(jobID string) {
	w.mu.Lock()
	w.queue = append(w.queue, jobID)
	depth := len(w.queue)
	w.mu.Unlock()

	metrics.EmitQueueDepth(w.metrics, depth)

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// State reports whether the worker is idle or draining the queue.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// QueueLen reports the number of jobs waiting behind the one in flight.
func (w *Worker) QueueLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// Run drains the queue until the context is cancelled. It processes one
// job at a time and parks when the queue is empty.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "starting pipeline worker")

	for {
		jobID, ok := w.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.wake:
				continue
			}
		}

		w.process(ctx, jobID)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// pop removes the queue head and flips the state accordingly.
func (w *Worker) pop() (string, bool) {
	w.mu.Lock()
	if len(w.queue) == 0 {
		w.state = StateIdle
		w.mu.Unlock()
		return "", false
	}
	jobID := w.queue[0]
	w.queue = w.queue[1:]
	w.state = StateDraining
	depth := len(w.queue)
	w.mu.Unlock()

	metrics.EmitQueueDepth(w.metrics, depth)
	return jobID, true
}

func (w *Worker) process(ctx context.Context, jobID string) {
	job, err := w.registry.Get(jobID)
	if err != nil {
		// Should not occur: submissions create the record first.
		w.logger.WarnContext(ctx, "queued job missing from registry, skipping", "job_id", jobID)
		return
	}
	if job.Status.Terminal() {
		w.logger.WarnContext(ctx, "queued job already terminal, skipping",
			"job_id", jobID, "status", job.Status)
		return
	}

	start := time.Now()

	job, err = w.registry.Update(jobID, func(j *model.Job) {
		j.Status = model.JobStatusProcessing
		j.Progress = 0
	})
	if err != nil {
		w.logger.ErrorContext(ctx, "mark job processing", "job_id", jobID, "error", err)
		return
	}
	w.publish(model.Event{
		Kind:     model.EventKindProgress,
		JobID:    jobID,
		Progress: job.Progress,
		At:       time.Now(),
	})

	var current pipeline.Stage
	var currentStart time.Time
	observe := func(stage pipeline.Stage) {
		if current.Key != "" {
			metrics.EmitStageTransition(w.metrics, metrics.StageMetric{
				Stage:    current.Key,
				Result:   metrics.ResultSuccess,
				Duration: time.Since(currentStart),
			})
		}
		current, currentStart = stage, time.Now()

		updated, uerr := w.registry.Update(jobID, func(j *model.Job) {
			j.Progress = stage.Checkpoint
			j.CurrentStage = stage.Label
		})
		if uerr != nil {
			w.logger.ErrorContext(ctx, "advance job checkpoint", "job_id", jobID, "error", uerr)
			return
		}
		w.publish(model.Event{
			Kind:     model.EventKindProgress,
			JobID:    jobID,
			Progress: updated.Progress,
			Stage:    updated.CurrentStage,
			At:       time.Now(),
		})
	}

	result, err := w.pipeline.Execute(ctx, job, observe)
	if err != nil {
		if current.Key != "" {
			metrics.EmitStageTransition(w.metrics, metrics.StageMetric{
				Stage:    current.Key,
				Result:   metrics.ResultError,
				Duration: time.Since(currentStart),
				Err:      err,
			})
		}
		w.fail(ctx, jobID, start, err)
		return
	}
	metrics.EmitStageTransition(w.metrics, metrics.StageMetric{
		Stage:    current.Key,
		Result:   metrics.ResultSuccess,
		Duration: time.Since(currentStart),
	})

	w.complete(ctx, jobID, start, result)
}

func (w *Worker) complete(ctx context.Context, jobID string, start time.Time, result *model.ReconstructionResult) {
	w.linkSnapshot(ctx, jobID, result)

	now := time.Now()
	job, err := w.registry.Update(jobID, func(j *model.Job) {
		j.Status = model.JobStatusCompleted
		j.Progress = 100
		j.CurrentStage = "done"
		j.CompletedAt = &now
		j.Result = result
		j.ErrorMessage = nil
	})
	if err != nil {
		w.logger.ErrorContext(ctx, "mark job completed", "job_id", jobID, "error", err)
		return
	}

	w.logger.InfoContext(ctx, "job completed", "job_id", jobID, "duration", time.Since(start))
	metrics.EmitJobLifecycle(w.metrics, metrics.JobMetric{
		Transition: "completed",
		Result:     metrics.ResultSuccess,
		Duration:   time.Since(start),
	})
	w.publish(model.Event{
		Kind:     model.EventKindCompleted,
		JobID:    jobID,
		Progress: job.Progress,
		Result:   job.Result,
		At:       time.Now(),
	})
}

// fail records the stage error on the job. Remote and timeout errors stop
// here: they are surfaced through the job record and the event stream, never
// back to any caller, and the worker immediately moves on to the next job.
func (w *Worker) fail(ctx context.Context, jobID string, start time.Time, cause error) {
	msg := cause.Error()
	now := time.Now()
	_, err := w.registry.Update(jobID, func(j *model.Job) {
		j.Status = model.JobStatusFailed
		j.CompletedAt = &now
		j.ErrorMessage = &msg
	})
	if err != nil {
		w.logger.ErrorContext(ctx, "mark job failed", "job_id", jobID, "error", err)
		return
	}

	w.logger.ErrorContext(ctx, "job failed",
		"job_id", jobID,
		"duration", time.Since(start),
		"timeout", apperrors.IsTimeout(cause),
		"error", cause,
	)
	metrics.EmitJobLifecycle(w.metrics, metrics.JobMetric{
		Transition: "failed",
		Result:     metrics.ResultError,
		Duration:   time.Since(start),
		Err:        cause,
	})
	w.publish(model.Event{
		Kind:  model.EventKindFailed,
		JobID: jobID,
		Error: msg,
		At:    time.Now(),
	})
}

// linkSnapshot attaches a snapshot that arrived while the job was still
// running, so the completed result carries its reference.
func (w *Worker) linkSnapshot(ctx context.Context, jobID string, result *model.ReconstructionResult) {
	if w.artifacts == nil || result == nil {
		return
	}
	ref := core.SnapshotRef(jobID)
	exists, err := w.artifacts.Exists(ctx, ref)
	if err != nil {
		w.logger.WarnContext(ctx, "check snapshot artifact", "job_id", jobID, "error", err)
		return
	}
	if exists {
		result.SnapshotRef = ref
	}
}

func (w *Worker) publish(event model.Event) {
	if w.publisher == nil {
		return
	}
	w.publisher.Publish(event)
}
