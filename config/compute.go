package config

import (
	"strings"
	"time"
)

// ComputeConfig contains remote compute service configuration.
//
// The compute service exposes one endpoint family per pipeline stage
// (preprocess, reconstruct, crack-detection, depth-estimation,
// difference-video), each with the same start/status shape.
type ComputeConfig struct {
	// BaseURL is the base URL of the remote compute service.
	BaseURL string `env:"COMPUTE_BASE_URL" envDefault:"http://localhost:8000"`

	// WorkDir is the directory root, shared with the compute service, under
	// which per-job stage outputs are written.
	WorkDir string `env:"COMPUTE_WORK_DIR" envDefault:"/data/treadscan"`

	// PollInterval is the delay between consecutive status polls.
	PollInterval time.Duration `env:"COMPUTE_POLL_INTERVAL" envDefault:"1s"`

	// RequestTimeout bounds a single HTTP request to the compute service.
	// This is distinct from the per-stage budgets, which bound the whole
	// start/poll/fetch cycle.
	RequestTimeout time.Duration `env:"COMPUTE_REQUEST_TIMEOUT" envDefault:"30s"`

	// StageBudget is the default time budget for a single stage.
	StageBudget time.Duration `env:"COMPUTE_STAGE_BUDGET" envDefault:"2m"`

	// ReconstructBudget is the time budget for the mesh reconstruction
	// stage, which runs much longer than the others.
	ReconstructBudget time.Duration `env:"COMPUTE_RECONSTRUCT_BUDGET" envDefault:"5m"`

	// DifferenceVideoBudget is the time budget for the difference video
	// rendering stage.
	DifferenceVideoBudget time.Duration `env:"COMPUTE_DIFFERENCE_VIDEO_BUDGET" envDefault:"3m"`
}

// Sanitize applies guardrails to compute configuration values.
func (c *ComputeConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.WorkDir = strings.TrimSpace(c.WorkDir)
	if c.WorkDir == "" {
		c.WorkDir = "/data/treadscan"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.StageBudget <= 0 {
		c.StageBudget = 2 * time.Minute
	}
	if c.ReconstructBudget < c.StageBudget {
		c.ReconstructBudget = c.StageBudget
	}
	if c.DifferenceVideoBudget < c.StageBudget {
		c.DifferenceVideoBudget = c.StageBudget
	}
}
