package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treadscan/treadscan/internal/domain/model"
	apperrors "github.com/treadscan/treadscan/internal/errors"
)

func TestJobRegistry_CreateAssignsIDAndQueuedState(t *testing.T) {
	reg := NewJobRegistry(JobRegistryOptions{})

	job, err := reg.Create(model.CreateJobRequest{
		ReferenceVideoID: "ref-1",
		DamagedVideoID:   "dmg-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Nil(t, job.Result)
	assert.Equal(t, 1, reg.Len())
}

func TestJobRegistry_CreateRejectsInvalidRequest(t *testing.T) {
	reg := NewJobRegistry(JobRegistryOptions{})

	_, err := reg.Create(model.CreateJobRequest{ReferenceVideoID: "ref-1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, 0, reg.Len())
}

func TestJobRegistry_GetUnknownJob(t *testing.T) {
	reg := NewJobRegistry(JobRegistryOptions{})

	_, err := reg.Get("nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestJobRegistry_GetReturnsCopy(t *testing.T) {
	reg := NewJobRegistry(JobRegistryOptions{})
	created, err := reg.Create(model.CreateJobRequest{
		ReferenceVideoID: "ref-1",
		DamagedVideoID:   "dmg-1",
	})
	require.NoError(t, err)

	first, err := reg.Get(created.ID)
	require.NoError(t, err)
	first.Status = model.JobStatusFailed
	first.Progress = 99

	second, err := reg.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, second.Status)
	assert.Equal(t, 0, second.Progress)
}

func TestJobRegistry_ListSubmissionOrder(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reg := NewJobRegistry(JobRegistryOptions{
		Now: func() time.Time {
			now = now.Add(time.Second)
			return now
		},
	})

	var ids []string
	for i := 0; i < 3; i++ {
		job, err := reg.Create(model.CreateJobRequest{
			ReferenceVideoID: "ref",
			DamagedVideoID:   "dmg",
		})
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	listed := reg.List()
	require.Len(t, listed, 3)
	for i, job := range listed {
		assert.Equal(t, ids[i], job.ID)
	}
}

func TestJobRegistry_UpdateMutatesStoredJob(t *testing.T) {
	reg := NewJobRegistry(JobRegistryOptions{})
	created, err := reg.Create(model.CreateJobRequest{
		ReferenceVideoID: "ref-1",
		DamagedVideoID:   "dmg-1",
	})
	require.NoError(t, err)

	updated, err := reg.Update(created.ID, func(j *model.Job) {
		j.Status = model.JobStatusProcessing
		j.Progress = 30
		j.CurrentStage = "reconstruct"
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, updated.Status)
	assert.Equal(t, 30, updated.Progress)

	stored, err := reg.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, stored.Status)
	assert.Equal(t, "reconstruct", stored.CurrentStage)
}

func TestJobRegistry_UpdateProgressIsMonotonic(t *testing.T) {
	reg := NewJobRegistry(JobRegistryOptions{})
	created, err := reg.Create(model.CreateJobRequest{
		ReferenceVideoID: "ref-1",
		DamagedVideoID:   "dmg-1",
	})
	require.NoError(t, err)

	_, err = reg.Update(created.ID, func(j *model.Job) { j.Progress = 60 })
	require.NoError(t, err)

	updated, err := reg.Update(created.ID, func(j *model.Job) { j.Progress = 30 })
	require.NoError(t, err)
	assert.Equal(t, 60, updated.Progress)
}

func TestJobRegistry_ConcurrentReadersDuringUpdates(t *testing.T) {
	reg := NewJobRegistry(JobRegistryOptions{})
	created, err := reg.Create(model.CreateJobRequest{
		ReferenceVideoID: "ref-1",
		DamagedVideoID:   "dmg-1",
	})
	require.NoError(t, err)

	const updates = 100
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				job, gerr := reg.Get(created.ID)
				if assert.NoError(t, gerr) {
					assert.GreaterOrEqual(t, job.Progress, 0)
					assert.LessOrEqual(t, job.Progress, updates)
				}
				assert.Len(t, reg.List(), 1)
			}
		}()
	}

	for i := 1; i <= updates; i++ {
		progress := i
		_, uerr := reg.Update(created.ID, func(j *model.Job) { j.Progress = progress })
		require.NoError(t, uerr)
	}
	close(done)
	wg.Wait()

	final, err := reg.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, updates, final.Progress)
}

func TestJobRegistry_UpdateUnknownJob(t *testing.T) {
	reg := NewJobRegistry(JobRegistryOptions{})

	_, err := reg.Update("nope", func(j *model.Job) { j.Progress = 10 })
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
