package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treadscan/treadscan/internal/domain/model"
)

func TestCreateReconstruction(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.handler)

	body := `{"reference_video_id":"ref-1","damaged_video_id":"dmg-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/reconstructions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "queued", resp.Status)

	// Job landed in the registry and was handed to the queue.
	job, err := env.registry.Get(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Equal(t, []string{resp.ID}, env.queue.submitted)
}

func TestCreateReconstruction_ValidationFailure(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.handler)

	body := `{"reference_video_id":"","damaged_video_id":"dmg-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/reconstructions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_failed")
	assert.Contains(t, rec.Body.String(), "reference_video_id is required")

	// No job was created or queued.
	assert.Zero(t, env.registry.Len())
	assert.Empty(t, env.queue.submitted)
}

func TestCreateReconstruction_MalformedJSON(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.handler)

	req := httptest.NewRequest(http.MethodPost, "/api/reconstructions", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_json")
}

func TestGetReconstruction(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.handler)

	job, err := env.registry.Create(model.CreateJobRequest{ReferenceVideoID: "ref-1", DamagedVideoID: "dmg-1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/reconstructions/"+job.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, model.JobStatusQueued, got.Status)
	assert.Equal(t, 0, got.Progress)
	assert.Equal(t, "ref-1", got.ReferenceVideoID)
}

func TestGetReconstruction_NotFound(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.handler)

	req := httptest.NewRequest(http.MethodGet, "/api/reconstructions/no-such-job", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestListReconstructions(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.handler)

	first, err := env.registry.Create(model.CreateJobRequest{ReferenceVideoID: "ref-1", DamagedVideoID: "dmg-1"})
	require.NoError(t, err)
	second, err := env.registry.Create(model.CreateJobRequest{ReferenceVideoID: "ref-2", DamagedVideoID: "dmg-2"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/reconstructions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Jobs []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"jobs"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Jobs, 2)
	assert.Equal(t, first.ID, resp.Jobs[0].ID)
	assert.Equal(t, second.ID, resp.Jobs[1].ID)
}

func TestListReconstructions_Empty(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.handler)

	req := httptest.NewRequest(http.MethodGet, "/api/reconstructions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":0`)
	assert.Contains(t, rec.Body.String(), `"jobs":[]`)
}
