package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleansync-worker/internal/jobs"
	"cleansync-worker/pkg/models"
)

func sampleBatchJob(status models.JobStatus, processed, total int) *models.BatchJob {
	now := time.Now()
	return &models.BatchJob{
		ID:             "batch-1",
		Status:         status,
		TotalFiles:     total,
		ProcessedFiles: processed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestRunBatch_Accepted(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.batchRunner.job = sampleBatchJob(models.StatusPending, 0, 2)

	w := doJSON(t, router, http.MethodPost, "/api/batch/run", models.BatchRunRequest{
		FileIDs:     []string{"floorplans/a.png", "floorplans/b.png"},
		UseBatchAPI: true,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var body models.BatchStatusResponse
	decodeBody(t, w, &body)
	require.NotNil(t, body.Job)
	assert.Equal(t, "batch-1", body.Job.ID)
	assert.Equal(t, 2, body.Job.TotalFiles)

	require.NotNil(t, deps.batchRunner.lastReq)
	assert.True(t, deps.batchRunner.lastReq.UseBatchAPI)
}

func TestRunBatch_BatchAPIUnavailable(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.batchRunner.startErr = jobs.ErrBatchAPIUnavailable

	w := doJSON(t, router, http.MethodPost, "/api/batch/run", models.BatchRunRequest{
		FileIDs:     []string{"floorplans/a.png"},
		UseBatchAPI: true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunBatch_NoFiles(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.batchRunner.startErr = jobs.ErrNoFiles

	w := doJSON(t, router, http.MethodPost, "/api/batch/run", models.BatchRunRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunBatch_UnknownCategory(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.batchRunner.startErr = jobs.ErrUnknownCategory

	w := doJSON(t, router, http.MethodPost, "/api/batch/run", models.BatchRunRequest{
		FileIDs: []string{"floorplans/a.png"},
		Options: models.FloorPlanOptions{PlanCategory: "verksted"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBatchStatus(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.batchRunner.job = sampleBatchJob(models.StatusRunning, 1, 3)

	w := doJSON(t, router, http.MethodGet, "/api/batch/status/batch-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body models.BatchStatusResponse
	decodeBody(t, w, &body)
	require.NotNil(t, body.Job)
	assert.Equal(t, models.StatusRunning, body.Job.Status)
	assert.Equal(t, 1, body.Job.ProcessedFiles)
}

func TestGetBatchStatus_NotFound(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.batchRunner.statusErr = jobs.ErrJobNotFound

	w := doJSON(t, router, http.MethodGet, "/api/batch/status/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetBatchResults(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.batchRunner.job = sampleBatchJob(models.StatusSucceeded, 2, 2)
	deps.batchRunner.plans = []models.CleaningPlan{
		{Entries: []models.CleaningPlanEntry{{RoomName: "A", Frequency: map[string]bool{}}}},
		{Entries: []models.CleaningPlanEntry{{RoomName: "B", Frequency: map[string]bool{}}}},
	}

	w := doJSON(t, router, http.MethodGet, "/api/batch/results/batch-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body models.BatchResultsResponse
	decodeBody(t, w, &body)
	require.NotNil(t, body.Job)
	assert.Equal(t, models.StatusSucceeded, body.Job.Status)
	require.Len(t, body.Plans, 2)
	assert.Equal(t, "A", body.Plans[0].Entries[0].RoomName)
}

func TestGetBatchResults_NotFound(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.batchRunner.statusErr = jobs.ErrJobNotFound

	w := doJSON(t, router, http.MethodGet, "/api/batch/results/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
