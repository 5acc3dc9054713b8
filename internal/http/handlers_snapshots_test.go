package httpx

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treadscan/treadscan/internal/domain/model"
)

func postSnapshot(t *testing.T, router http.Handler, jobID, imageBase64 string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"image_base64":"` + imageBase64 + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/reconstructions/"+jobID+"/snapshot", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSaveSnapshot(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.handler)

	job, err := env.registry.Create(model.CreateJobRequest{ReferenceVideoID: "ref-1", DamagedVideoID: "dmg-1"})
	require.NoError(t, err)

	image := []byte{0x89, 0x50, 0x4e, 0x47}
	rec := postSnapshot(t, router, job.ID, base64.StdEncoding.EncodeToString(image))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SnapshotRef string `json:"snapshot_ref"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "snapshots/"+job.ID+".png", resp.SnapshotRef)

	// Fetch it back.
	req := httptest.NewRequest(http.MethodGet, "/api/reconstructions/"+job.ID+"/snapshot", nil)
	get := httptest.NewRecorder()
	router.ServeHTTP(get, req)
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "image/png", get.Header().Get("Content-Type"))
	assert.Equal(t, image, get.Body.Bytes())
}

func TestSaveSnapshot_OverwriteKeepsReference(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.handler)

	job, err := env.registry.Create(model.CreateJobRequest{ReferenceVideoID: "ref-1", DamagedVideoID: "dmg-1"})
	require.NoError(t, err)

	first := postSnapshot(t, router, job.ID, base64.StdEncoding.EncodeToString([]byte("first")))
	require.Equal(t, http.StatusOK, first.Code)
	second := postSnapshot(t, router, job.ID, base64.StdEncoding.EncodeToString([]byte("second")))
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/reconstructions/"+job.ID+"/snapshot", nil)
	get := httptest.NewRecorder()
	router.ServeHTTP(get, req)
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "second", get.Body.String())
}

func TestSaveSnapshot_UnknownJob(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.handler)

	rec := postSnapshot(t, router, "no-such-job", base64.StdEncoding.EncodeToString([]byte("x")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestSaveSnapshot_InvalidBase64(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.handler)

	job, err := env.registry.Create(model.CreateJobRequest{ReferenceVideoID: "ref-1", DamagedVideoID: "dmg-1"})
	require.NoError(t, err)

	rec := postSnapshot(t, router, job.ID, "not//valid==base64!!")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_image")
}

func TestSaveSnapshot_EmptyImage(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.handler)

	job, err := env.registry.Create(model.CreateJobRequest{ReferenceVideoID: "ref-1", DamagedVideoID: "dmg-1"})
	require.NoError(t, err)

	rec := postSnapshot(t, router, job.ID, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_failed")
}

func TestSaveSnapshot_TooLarge(t *testing.T) {
	env := newTestEnv()
	env.handler.MaxSnapshotBytes = 16
	router := NewRouter(env.handler)

	job, err := env.registry.Create(model.CreateJobRequest{ReferenceVideoID: "ref-1", DamagedVideoID: "dmg-1"})
	require.NoError(t, err)

	rec := postSnapshot(t, router, job.ID, base64.StdEncoding.EncodeToString(make([]byte, 17)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "snapshot_too_large")
}

func TestGetSnapshot_Missing(t *testing.T) {
	env := newTestEnv()
	router := NewRouter(env.handler)

	job, err := env.registry.Create(model.CreateJobRequest{ReferenceVideoID: "ref-1", DamagedVideoID: "dmg-1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/reconstructions/"+job.ID+"/snapshot", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
