package pipeline

import (
	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/treadscan/treadscan/internal/domain/model"
)

// resultField binds one aggregate result field to a JMESPath expression
// over the accumulated per-stage metadata.
type resultField struct {
	name   string
	expr   string
	assign func(r *model.ReconstructionResult, v any) bool
}

var resultFields = []resultField{
	{
		name: "reference_frames_dir",
		expr: StagePreprocessReference + ".processed_frames_dir",
		assign: func(r *model.ReconstructionResult, v any) bool {
			return assignString(&r.ReferenceFramesDir, v)
		},
	},
	{
		name: "damaged_frames_dir",
		expr: StagePreprocessDamaged + ".processed_frames_dir",
		assign: func(r *model.ReconstructionResult, v any) bool {
			return assignString(&r.DamagedFramesDir, v)
		},
	},
	{
		name: "mesh_path",
		expr: StageReconstruct + ".output_path",
		assign: func(r *model.ReconstructionResult, v any) bool {
			return assignString(&r.MeshPath, v)
		},
	},
	{
		name: "mesh_vertex_count",
		expr: StageReconstruct + ".num_vertices",
		assign: func(r *model.ReconstructionResult, v any) bool {
			return assignInt(&r.MeshVertexCount, v)
		},
	},
	{
		name: "mesh_face_count",
		expr: StageReconstruct + ".num_faces",
		assign: func(r *model.ReconstructionResult, v any) bool {
			return assignInt(&r.MeshFaceCount, v)
		},
	},
	{
		name: "crack_count",
		expr: StageCrackDetection + ".total_crack_count",
		assign: func(r *model.ReconstructionResult, v any) bool {
			return assignInt(&r.CrackCount, v)
		},
	},
	{
		name: "composite_crack_map_path",
		expr: StageCrackDetection + ".composite_crack_map_path",
		assign: func(r *model.ReconstructionResult, v any) bool {
			return assignString(&r.CompositeCrackMapPath, v)
		},
	},
	{
		name: "max_depth_mm",
		expr: StageDepthEstimation + ".max_depth_estimate_mm",
		assign: func(r *model.ReconstructionResult, v any) bool {
			return assignFloat(&r.MaxDepthMM, v)
		},
	},
	{
		name: "average_depth_mm",
		expr: StageDepthEstimation + ".average_max_depth_mm",
		assign: func(r *model.ReconstructionResult, v any) bool {
			return assignFloat(&r.AverageDepthMM, v)
		},
	},
	{
		name: "difference_video_path",
		expr: StageDifferenceVideo + ".output_path",
		assign: func(r *model.ReconstructionResult, v any) bool {
			return assignString(&r.DifferenceVideoPath, v)
		},
	},
	{
		name: "difference_frame_count",
		expr: StageDifferenceVideo + ".num_frames",
		assign: func(r *model.ReconstructionResult, v any) bool {
			return assignInt(&r.DifferenceFrameCount, v)
		},
	},
}

// AssembleResult builds the aggregate job result from the accumulated stage
// outputs. Fields whose source stage returned no usable metadata are listed
// in IncompleteFields and left at their zero value; nothing is defaulted to
// a plausible-looking number.
func AssembleResult(outputs Outputs) *model.ReconstructionResult {
	// jmespath operates on generic maps, so widen the accumulator once.
	data := make(map[string]any, len(outputs))
	meta := make(map[string]map[string]any, len(outputs))
	for key, m := range outputs {
		if m == nil {
			continue
		}
		data[key] = m
		meta[key] = m
	}

	result := &model.ReconstructionResult{}
	if len(meta) > 0 {
		result.StageMetadata = meta
	}

	for _, field := range resultFields {
		value, err := jmespath.Search(field.expr, data)
		if err != nil || value == nil || !field.assign(result, value) {
			result.IncompleteFields = append(result.IncompleteFields, field.name)
		}
	}

	return result
}

func assignString(dest *string, v any) bool {
	s, ok := v.(string)
	if !ok || s == "" {
		return false
	}
	*dest = s
	return true
}

// assignInt accepts the numeric shapes JSON decoding produces.
func assignInt(dest *int, v any) bool {
	switch n := v.(type) {
	case float64:
		*dest = int(n)
	case int:
		*dest = n
	default:
		return false
	}
	return true
}

func assignFloat(dest *float64, v any) bool {
	switch n := v.(type) {
	case float64:
		*dest = n
	case int:
		*dest = float64(n)
	default:
		return false
	}
	return true
}
