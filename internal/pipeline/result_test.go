package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleResult_EmptyOutputs(t *testing.T) {
	result := AssembleResult(Outputs{})

	require.NotNil(t, result)
	assert.Nil(t, result.StageMetadata)
	// Every extracted field is flagged rather than silently defaulted.
	assert.Len(t, result.IncompleteFields, len(resultFields))
	assert.Zero(t, result.CrackCount)
	assert.Zero(t, result.MaxDepthMM)
}

func TestAssembleResult_PartialOutputs(t *testing.T) {
	result := AssembleResult(Outputs{
		StageCrackDetection: {
			"total_crack_count":        float64(3),
			"composite_crack_map_path": "/out/cracks/composite_crack_map.png",
		},
		StageDepthEstimation: {
			// Wrong type: flagged, not coerced.
			"max_depth_estimate_mm": "deep",
		},
	})

	assert.Equal(t, 3, result.CrackCount)
	assert.Equal(t, "/out/cracks/composite_crack_map.png", result.CompositeCrackMapPath)
	assert.Contains(t, result.IncompleteFields, "max_depth_mm")
	assert.Contains(t, result.IncompleteFields, "mesh_path")
	assert.NotContains(t, result.IncompleteFields, "crack_count")

	require.Contains(t, result.StageMetadata, StageCrackDetection)
}

func TestAssembleResult_AcceptsNativeInts(t *testing.T) {
	result := AssembleResult(Outputs{
		StageReconstruct: {
			"output_path":  "/out/mesh.glb",
			"num_vertices": 1200,
			"num_faces":    2400,
		},
	})

	assert.Equal(t, 1200, result.MeshVertexCount)
	assert.Equal(t, 2400, result.MeshFaceCount)
	assert.Equal(t, "/out/mesh.glb", result.MeshPath)
}
