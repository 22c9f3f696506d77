package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"cleansync-worker/internal/storage"
	"cleansync-worker/internal/storage/filesystem"
	"cleansync-worker/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Collaborateurs en mémoire pour les tests des handlers

type fakePlanRunner struct {
	job       *models.PlanJob
	startErr  error
	statusErr error
	plan      *models.CleaningPlan
	docxURL   string
	resultErr error
	lastReq   *models.GeneratePlanRequest
}

func (r *fakePlanRunner) StartJob(ctx context.Context, req *models.GeneratePlanRequest) (*models.PlanJob, error) {
	r.lastReq = req
	if r.startErr != nil {
		return nil, r.startErr
	}
	return r.job, nil
}

func (r *fakePlanRunner) GetStatus(jobID string) (*models.PlanJob, error) {
	if r.statusErr != nil {
		return nil, r.statusErr
	}
	return r.job, nil
}

func (r *fakePlanRunner) GetResult(jobID string) (*models.CleaningPlan, string, error) {
	if r.resultErr != nil {
		return nil, "", r.resultErr
	}
	return r.plan, r.docxURL, nil
}

type fakeBatchRunner struct {
	job       *models.BatchJob
	startErr  error
	statusErr error
	plans     []models.CleaningPlan
	lastReq   *models.BatchRunRequest
}

func (r *fakeBatchRunner) StartBatch(ctx context.Context, req *models.BatchRunRequest) (*models.BatchJob, error) {
	r.lastReq = req
	if r.startErr != nil {
		return nil, r.startErr
	}
	return r.job, nil
}

func (r *fakeBatchRunner) GetStatus(jobID string) (*models.BatchJob, error) {
	if r.statusErr != nil {
		return nil, r.statusErr
	}
	return r.job, nil
}

func (r *fakeBatchRunner) GetResults(jobID string) ([]models.CleaningPlan, error) {
	if r.statusErr != nil {
		return nil, r.statusErr
	}
	return r.plans, nil
}

type fakeConverter struct {
	plan     *models.CleaningPlan
	err      error
	lastText string
}

func (f *fakeConverter) ConvertPlan(ctx context.Context, rawText string) (*models.CleaningPlan, error) {
	f.lastText = rawText
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

func (f *fakeConverter) AnalyzeTemplate(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return strings.ReplaceAll(stem, "_", " ")
}

type historyRecord struct {
	Source  string
	Payload models.JSON
	Plan    *models.CleaningPlan
}

type fakeHistoryService struct {
	records   []historyRecord
	recordErr error
	summaries []models.StoredPlanSummary
	plans     map[uuid.UUID]*models.GeneratedPlan
	lastList  struct {
		Source string
		Limit  int
		Offset int
	}
}

func (h *fakeHistoryService) Record(ctx context.Context, source string, payload models.JSON, plan *models.CleaningPlan, docxID string, metadata models.JSON, generationMS int64) (uuid.UUID, error) {
	if h.recordErr != nil {
		return uuid.Nil, h.recordErr
	}
	h.records = append(h.records, historyRecord{Source: source, Payload: payload, Plan: plan})
	return uuid.New(), nil
}

func (h *fakeHistoryService) ListPlans(ctx context.Context, source string, limit, offset int) ([]models.StoredPlanSummary, error) {
	h.lastList.Source = source
	h.lastList.Limit = limit
	h.lastList.Offset = offset
	return h.summaries, nil
}

func (h *fakeHistoryService) GetPlan(ctx context.Context, id uuid.UUID) (*models.GeneratedPlan, error) {
	if plan, ok := h.plans[id]; ok {
		return plan, nil
	}
	return nil, errors.New("plan not found")
}

func (h *fakeHistoryService) DeletePlan(ctx context.Context, id uuid.UUID) error {
	if _, ok := h.plans[id]; !ok {
		return errors.New("plan not found")
	}
	delete(h.plans, id)
	return nil
}

type fakeSettingsStore struct {
	keys       []models.APIKeySummary
	setErr     error
	deleteErr  error
	prompt     string
	overridden bool
	promptAt   *time.Time
	overrides  models.GenerationOverrides
	lastSet    struct {
		Name, Label, Value string
	}
	resetCalled bool
}

func (s *fakeSettingsStore) ListAPIKeys(ctx context.Context) ([]models.APIKeySummary, error) {
	return s.keys, nil
}

func (s *fakeSettingsStore) SetAPIKey(ctx context.Context, name, label, value string) (models.APIKeySummary, error) {
	if s.setErr != nil {
		return models.APIKeySummary{}, s.setErr
	}
	s.lastSet.Name = name
	s.lastSet.Label = label
	s.lastSet.Value = value
	summary := models.APIKeySummary{Name: name, Label: label, Configured: true}
	s.keys = append(s.keys, summary)
	return summary, nil
}

func (s *fakeSettingsStore) DeleteAPIKey(ctx context.Context, name string) error {
	return s.deleteErr
}

func (s *fakeSettingsStore) SystemPromptState(ctx context.Context) (string, bool, *time.Time) {
	return s.prompt, s.overridden, s.promptAt
}

func (s *fakeSettingsStore) SetSystemPrompt(ctx context.Context, prompt string) error {
	s.prompt = prompt
	s.overridden = true
	return nil
}

func (s *fakeSettingsStore) ResetSystemPrompt(ctx context.Context) error {
	s.resetCalled = true
	s.overridden = false
	return nil
}

func (s *fakeSettingsStore) Overrides(ctx context.Context) models.GenerationOverrides {
	return s.overrides
}

func (s *fakeSettingsStore) SetOverrides(ctx context.Context, overrides models.GenerationOverrides) error {
	s.overrides = overrides
	return nil
}

// testDeps regroupe les collaborateurs injectés dans un routeur de test
type testDeps struct {
	planRunner  *fakePlanRunner
	batchRunner *fakeBatchRunner
	converter   *fakeConverter
	history     *fakeHistoryService
	settings    *fakeSettingsStore
	storage     *storage.StorageService
}

func newTestRouter(t *testing.T) (*gin.Engine, *testDeps) {
	t.Helper()

	backend, err := filesystem.NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)

	deps := &testDeps{
		planRunner:  &fakePlanRunner{},
		batchRunner: &fakeBatchRunner{},
		converter:   &fakeConverter{},
		history:     &fakeHistoryService{plans: make(map[uuid.UUID]*models.GeneratedPlan)},
		settings:    &fakeSettingsStore{},
		storage:     storage.NewStorageService(backend),
	}

	handlers := NewHandlers(deps.planRunner, deps.batchRunner, deps.converter,
		deps.storage, deps.history, deps.settings, nil)
	return SetupRouter(handlers), deps
}

func doJSON(t *testing.T, router *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

// multipartRequest construit une requête multipart avec un fichier par entrée
func multipartRequest(t *testing.T, url, field string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
