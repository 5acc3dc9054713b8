// Package pipeline defines the fixed reconstruction stage sequence and
// drives one job through it against the remote compute service.
package pipeline

import (
	"path/filepath"
	"time"

	"github.com/treadscan/treadscan/config"
	"github.com/treadscan/treadscan/internal/domain/model"
)

// Stage keys used in the outputs accumulator and stage metadata.
const (
	StagePreprocessReference = "preprocess_reference"
	StagePreprocessDamaged   = "preprocess_damaged"
	StageReconstruct         = "reconstruct"
	StageCrackDetection      = "crack_detection"
	StageDepthEstimation     = "depth_estimation"
	StageDifferenceVideo     = "difference_video"
	StageFinalize            = "finalize"
)

// Remote endpoint families on the compute service.
const (
	familyPreprocess      = "preprocess"
	familyReconstruct     = "reconstruct"
	familyCrackDetection  = "crack-detection"
	familyDepthEstimation = "depth-estimation"
	familyDifferenceVideo = "difference-video"
)

const defaultFrameRate = 30

// Outputs accumulates the metadata each completed stage returned, keyed by
// stage key. Later stages derive their inputs from it.
type Outputs map[string]map[string]any

// FramesDir returns the processed frames directory a preprocess stage
// reported, falling back to the conventional layout under jobDir when the
// stage returned no usable metadata.
func (o Outputs) FramesDir(stageKey, fallbackDir string) string {
	if meta, ok := o[stageKey]; ok {
		if dir, ok := meta["processed_frames_dir"].(string); ok && dir != "" {
			return dir
		}
	}
	return filepath.Join(fallbackDir, "processed_frames")
}

// StageInputs is what a stage's payload builder gets to work with.
type StageInputs struct {
	Job     *model.Job
	JobDir  string
	Outputs Outputs
}

// Stage is one ordered step of the reconstruction pipeline.
type Stage struct {
	// Key identifies the stage in the outputs accumulator.
	Key string

	// Label is the human-readable description surfaced on the job record.
	Label string

	// Checkpoint is the job progress value set on entering this stage.
	Checkpoint int

	// Family is the remote endpoint family. Empty for the local finalize
	// stage, which makes no remote call.
	Family string

	// Budget bounds the stage's whole start/poll cycle.
	Budget time.Duration

	// Payload builds the remote start request body. Nil for local stages.
	Payload func(in StageInputs) map[string]any
}

// Remote returns true when the stage invokes the compute service.
func (s Stage) Remote() bool {
	return s.Family != ""
}

// BuildStages returns the fixed stage sequence with budgets taken from cfg.
//
// The checkpoint values mirror the reference pipeline: 10, 30, 60, 70, 75,
// 85 for the remote stages, 95 for finalize; a completed job ends at 100.
func BuildStages(cfg config.ComputeConfig) []Stage {
	return []Stage{
		{
			Key:        StagePreprocessReference,
			Label:      "preprocess reference",
			Checkpoint: 10,
			Family:     familyPreprocess,
			Budget:     cfg.StageBudget,
			Payload: func(in StageInputs) map[string]any {
				return map[string]any{
					"video_path": in.Job.ReferenceVideoID,
					"output_dir": filepath.Join(in.JobDir, "reference"),
					"fps":        defaultFrameRate,
				}
			},
		},
		{
			Key:        StagePreprocessDamaged,
			Label:      "preprocess damaged",
			Checkpoint: 30,
			Family:     familyPreprocess,
			Budget:     cfg.StageBudget,
			Payload: func(in StageInputs) map[string]any {
				return map[string]any{
					"video_path": in.Job.DamagedVideoID,
					"output_dir": filepath.Join(in.JobDir, "damaged"),
					"fps":        defaultFrameRate,
				}
			},
		},
		{
			Key:        StageReconstruct,
			Label:      "reconstruct mesh",
			Checkpoint: 60,
			Family:     familyReconstruct,
			Budget:     cfg.ReconstructBudget,
			Payload: func(in StageInputs) map[string]any {
				return map[string]any{
					"preprocessing_output_dir": filepath.Join(in.JobDir, "damaged"),
					"output_glb_path":          filepath.Join(in.JobDir, "mesh", "tyre_mesh.glb"),
					"num_frames":               8,
					"mc_resolution":            256,
				}
			},
		},
		{
			Key:        StageCrackDetection,
			Label:      "detect cracks",
			Checkpoint: 70,
			Family:     familyCrackDetection,
			Budget:     cfg.StageBudget,
			Payload: func(in StageInputs) map[string]any {
				return map[string]any{
					"reference_frames_dir": in.Outputs.FramesDir(StagePreprocessReference, filepath.Join(in.JobDir, "reference")),
					"damaged_frames_dir":   in.Outputs.FramesDir(StagePreprocessDamaged, filepath.Join(in.JobDir, "damaged")),
					"output_dir":           filepath.Join(in.JobDir, "cracks"),
				}
			},
		},
		{
			Key:        StageDepthEstimation,
			Label:      "estimate depth",
			Checkpoint: 75,
			Family:     familyDepthEstimation,
			Budget:     cfg.StageBudget,
			Payload: func(in StageInputs) map[string]any {
				return map[string]any{
					"reference_frames_dir": in.Outputs.FramesDir(StagePreprocessReference, filepath.Join(in.JobDir, "reference")),
					"damaged_frames_dir":   in.Outputs.FramesDir(StagePreprocessDamaged, filepath.Join(in.JobDir, "damaged")),
					"output_dir":           filepath.Join(in.JobDir, "depth"),
				}
			},
		},
		{
			Key:        StageDifferenceVideo,
			Label:      "synthesize difference video",
			Checkpoint: 85,
			Family:     familyDifferenceVideo,
			Budget:     cfg.DifferenceVideoBudget,
			Payload: func(in StageInputs) map[string]any {
				return map[string]any{
					"reference_frames_dir": in.Outputs.FramesDir(StagePreprocessReference, filepath.Join(in.JobDir, "reference")),
					"damaged_frames_dir":   in.Outputs.FramesDir(StagePreprocessDamaged, filepath.Join(in.JobDir, "damaged")),
					"crack_maps_dir":       filepath.Join(in.JobDir, "cracks"),
					"depth_maps_dir":       filepath.Join(in.JobDir, "depth"),
					"output_video_path":    filepath.Join(in.JobDir, "difference.mp4"),
					"fps":                  defaultFrameRate,
					"apply_edges":          true,
					"apply_crack_overlay":  true,
					"apply_depth_colors":   true,
				}
			},
		},
		{
			Key:        StageFinalize,
			Label:      "finalize",
			Checkpoint: 95,
		},
	}
}
