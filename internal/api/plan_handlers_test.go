package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleansync-worker/internal/jobs"
	"cleansync-worker/pkg/models"
)

func samplePlanJob(status models.JobStatus) *models.PlanJob {
	now := time.Now()
	return &models.PlanJob{
		ID:        "job-1",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestGeneratePlan_Accepted(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.planRunner.job = samplePlanJob(models.StatusPending)

	w := doJSON(t, router, http.MethodPost, "/api/generate-plan", models.GeneratePlanRequest{
		FileIDs:    []string{"floorplans/a.png"},
		TemplateID: "templates/mal.docx",
		Options:    models.DefaultFloorPlanOptions(),
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var body models.JobAcceptedResponse
	decodeBody(t, w, &body)
	assert.Equal(t, "job-1", body.JobID)
	assert.Equal(t, models.StatusPending, body.Status)

	require.NotNil(t, deps.planRunner.lastReq)
	assert.Equal(t, []string{"floorplans/a.png"}, deps.planRunner.lastReq.FileIDs)
	assert.Equal(t, "templates/mal.docx", deps.planRunner.lastReq.TemplateID)
}

func TestGeneratePlan_ValidationErrors(t *testing.T) {
	cases := []struct {
		name       string
		startErr   error
		wantStatus int
	}{
		{"no files", jobs.ErrNoFiles, http.StatusBadRequest},
		{"unknown file", jobs.ErrUnknownFile, http.StatusBadRequest},
		{"unknown category", jobs.ErrUnknownCategory, http.StatusBadRequest},
		{"storage failure", errors.New("bucket unavailable"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, deps := newTestRouter(t)
			deps.planRunner.startErr = tc.startErr

			w := doJSON(t, router, http.MethodPost, "/api/generate-plan", models.GeneratePlanRequest{
				FileIDs: []string{"floorplans/a.png"},
			})
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestGeneratePlan_InvalidJSON(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-plan", nil)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetJobStatus(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.planRunner.job = samplePlanJob(models.StatusRunning)

	w := doJSON(t, router, http.MethodGet, "/api/generate-plan/status/job-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body models.PlanJob
	decodeBody(t, w, &body)
	assert.Equal(t, models.StatusRunning, body.Status)
}

func TestGetJobStatus_NotFound(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.planRunner.statusErr = jobs.ErrJobNotFound

	w := doJSON(t, router, http.MethodGet, "/api/generate-plan/status/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetJobResult(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.planRunner.plan = &models.CleaningPlan{
		Entries:     []models.CleaningPlanEntry{{RoomName: "Kontor", Description: "Vask", Frequency: map[string]bool{"MAN": true}}},
		TotalAreaM2: 12.5,
	}
	deps.planRunner.docxURL = "/api/download/docx/abc.docx"

	w := doJSON(t, router, http.MethodGet, "/api/generate-plan/result/job-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body models.PlanResultResponse
	decodeBody(t, w, &body)
	assert.Equal(t, "/api/download/docx/abc.docx", body.DocxURL)
	require.NotNil(t, body.Plan)
	assert.Equal(t, 12.5, body.Plan.TotalAreaM2)
}

func TestGetJobResult_NotFound(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.planRunner.resultErr = jobs.ErrJobNotFound

	w := doJSON(t, router, http.MethodGet, "/api/generate-plan/result/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetJobResult_NotReady(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.planRunner.resultErr = jobs.ErrResultUnavailable

	w := doJSON(t, router, http.MethodGet, "/api/generate-plan/result/job-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestConvertPlan(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.converter.plan = &models.CleaningPlan{
		Entries: []models.CleaningPlanEntry{{RoomName: "Gang", Description: "Mopping", Frequency: map[string]bool{}}},
	}

	req := multipartRequest(t, "/api/convert-plan", "file", map[string][]byte{
		"ekstern_plan.txt": []byte("Gang: mopping hver mandag"),
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body models.ConvertPlanResponse
	decodeBody(t, w, &body)
	require.NotNil(t, body.Plan)
	assert.Equal(t, "Gang", body.Plan.Entries[0].RoomName)
	assert.Equal(t, "Gang: mopping hver mandag", deps.converter.lastText)

	// la conversion réussie est historisée avec la source converter
	require.Len(t, deps.history.records, 1)
	assert.Equal(t, "converter", deps.history.records[0].Source)
	assert.Equal(t, "ekstern_plan.txt", deps.history.records[0].Payload["filename"])
}

func TestConvertPlan_Latin1Fallback(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.converter.plan = &models.CleaningPlan{
		Entries: []models.CleaningPlanEntry{{RoomName: "Gang", Frequency: map[string]bool{}}},
	}

	// "Lørdag" encodé latin-1: 0xF8 n'est pas une séquence UTF-8 valide
	raw := []byte{'L', 0xF8, 'r', 'd', 'a', 'g'}
	req := multipartRequest(t, "/api/convert-plan", "file", map[string][]byte{"plan.txt": raw})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lørdag", deps.converter.lastText)
}

func TestConvertPlan_ForbiddenExtension(t *testing.T) {
	router, _ := newTestRouter(t)

	req := multipartRequest(t, "/api/convert-plan", "file", map[string][]byte{"plan.exe": []byte("x")})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConvertPlan_ProviderFailure(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.converter.err = errors.New("model unavailable")

	req := multipartRequest(t, "/api/convert-plan", "file", map[string][]byte{"plan.txt": []byte("x")})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Empty(t, deps.history.records)
}

func TestConvertPlan_HistoryFailureIsNotFatal(t *testing.T) {
	router, deps := newTestRouter(t)
	deps.converter.plan = &models.CleaningPlan{
		Entries: []models.CleaningPlanEntry{{RoomName: "Gang", Frequency: map[string]bool{}}},
	}
	deps.history.recordErr = errors.New("database gone")

	req := multipartRequest(t, "/api/convert-plan", "file", map[string][]byte{"plan.txt": []byte("x")})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
