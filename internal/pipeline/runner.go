package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/treadscan/treadscan/config"
	"github.com/treadscan/treadscan/internal/compute"
	"github.com/treadscan/treadscan/internal/domain/model"
)

// StageObserver is notified when the runner enters a stage, before the
// stage's remote call is issued. The worker uses it to advance the job's
// progress checkpoint and publish a progress event.
type StageObserver func(stage Stage)

// Runner executes the fixed stage sequence for one job at a time.
type Runner struct {
	stages  []Stage
	compute compute.Runner
	workDir string
	logger  *slog.Logger
}

// RunnerOptions bundles dependencies for NewRunner.
type RunnerOptions struct {
	// Stages overrides the stage sequence. Defaults to BuildStages(Compute).
	Stages []Stage

	Compute compute.Runner

	// ComputeConfig supplies stage budgets and the shared work directory.
	ComputeConfig config.ComputeConfig

	Logger *slog.Logger
}

// NewRunner creates a pipeline Runner.
func NewRunner(opts RunnerOptions) *Runner {
	stages := opts.Stages
	if stages == nil {
		stages = BuildStages(opts.ComputeConfig)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		stages:  stages,
		compute: opts.Compute,
		workDir: opts.ComputeConfig.WorkDir,
		logger:  logger,
	}
}

// Stages returns the runner's stage sequence.
func (r *Runner) Stages() []Stage {
	return r.stages
}

// Execute drives the job through every stage in order. Stage N+1 never
// starts unless stage N succeeded; the first failure aborts the job with no
// retry and no rollback of earlier stages.
//
// observe fires on entry to every stage, including the local finalize stage.
func (r *Runner) Execute(ctx context.Context, job *model.Job, observe StageObserver) (*model.ReconstructionResult, error) {
	jobDir := filepath.Join(r.workDir, "jobs", job.ID)
	outputs := make(Outputs, len(r.stages))

	for _, stage := range r.stages {
		if observe != nil {
			observe(stage)
		}
		if !stage.Remote() {
			continue
		}

		payload := stage.Payload(StageInputs{Job: job, JobDir: jobDir, Outputs: outputs})
		status, err := r.compute.Run(ctx, compute.StageRequest{
			Family:  stage.Family,
			Payload: payload,
			Budget:  stage.Budget,
		})
		if err != nil {
			r.logger.ErrorContext(ctx, "pipeline stage failed",
				"job_id", job.ID,
				"stage", stage.Key,
				"error", err,
			)
			return nil, err
		}

		outputs[stage.Key] = status.Metadata
		r.logger.InfoContext(ctx, "pipeline stage completed",
			"job_id", job.ID,
			"stage", stage.Key,
		)
	}

	return AssembleResult(outputs), nil
}
