package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cleansync-worker/internal/history"
	"cleansync-worker/internal/storage"
	"cleansync-worker/internal/validation"
	"cleansync-worker/pkg/models"
)

// PlanRunner pilote les jobs de génération asynchrones
type PlanRunner interface {
	StartJob(ctx context.Context, req *models.GeneratePlanRequest) (*models.PlanJob, error)
	GetStatus(jobID string) (*models.PlanJob, error)
	GetResult(jobID string) (*models.CleaningPlan, string, error)
}

// BatchRunner pilote les batchs de génération
type BatchRunner interface {
	StartBatch(ctx context.Context, req *models.BatchRunRequest) (*models.BatchJob, error)
	GetStatus(jobID string) (*models.BatchJob, error)
	GetResults(jobID string) ([]models.CleaningPlan, error)
}

// Converter couvre les opérations Gemini synchrones exposées par l'API
type Converter interface {
	ConvertPlan(ctx context.Context, rawText string) (*models.CleaningPlan, error)
	AnalyzeTemplate(filename string) string
}

// SettingsStore couvre l'administration des clés et réglages
type SettingsStore interface {
	ListAPIKeys(ctx context.Context) ([]models.APIKeySummary, error)
	SetAPIKey(ctx context.Context, name, label, value string) (models.APIKeySummary, error)
	DeleteAPIKey(ctx context.Context, name string) error
	SystemPromptState(ctx context.Context) (prompt string, overridden bool, updatedAt *time.Time)
	SetSystemPrompt(ctx context.Context, prompt string) error
	ResetSystemPrompt(ctx context.Context) error
	Overrides(ctx context.Context) models.GenerationOverrides
	SetOverrides(ctx context.Context, overrides models.GenerationOverrides) error
}

type Handlers struct {
	planRunner  PlanRunner
	batchRunner BatchRunner
	converter   Converter
	storage     *storage.StorageService
	history     history.Service
	settings    SettingsStore
	validator   *validation.UploadValidator
}

func NewHandlers(
	planRunner PlanRunner,
	batchRunner BatchRunner,
	converter Converter,
	storageService *storage.StorageService,
	historyService history.Service,
	settings SettingsStore,
	validator *validation.UploadValidator,
) *Handlers {
	if validator == nil {
		validator = validation.NewUploadValidator(nil)
	}
	return &Handlers{
		planRunner:  planRunner,
		batchRunner: batchRunner,
		converter:   converter,
		storage:     storageService,
		history:     historyService,
		settings:    settings,
		validator:   validator,
	}
}

// Root godoc
// @Summary Message d'accueil de l'API
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "CleanSync API"})
}

// Health godoc
// @Summary Health check du service
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "cleansync-worker",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ListStoredPlans godoc
// @Summary Liste l'historique des plans générés
// @Tags plans
// @Produce json
// @Param limit query int false "Nombre max de plans" default(20)
// @Param source query string false "Filtre par source (generator, converter, batch)"
// @Success 200 {object} models.StoredPlanListResponse
// @Router /plans [get]
func (h *Handlers) ListStoredPlans(c *gin.Context) {
	limit := intQuery(c, "limit", 20)
	source := c.Query("source")

	summaries, err := h.history.ListPlans(c.Request.Context(), source, limit, intQuery(c, "offset", 0))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.StoredPlanListResponse{Plans: summaries})
}

// GetStoredPlan godoc
// @Summary Détail d'un plan historisé
// @Tags plans
// @Produce json
// @Param id path string true "ID du plan"
// @Success 200 {object} models.StoredPlanDetailResponse
// @Failure 404 {object} map[string]string
// @Router /plans/{id} [get]
func (h *Handlers) GetStoredPlan(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan id"})
		return
	}

	record, err := h.history.GetPlan(c.Request.Context(), planID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	plan, err := record.Plan()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.StoredPlanDetailResponse{
		Summary: record.ToSummary(),
		Plan:    plan,
	})
}

// DeleteStoredPlan godoc
// @Summary Supprime un plan historisé
// @Tags plans
// @Produce json
// @Param id path string true "ID du plan"
// @Success 200 {object} models.StoredPlanDeleteResponse
// @Failure 404 {object} map[string]string
// @Router /plans/{id} [delete]
func (h *Handlers) DeleteStoredPlan(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan id"})
		return
	}

	if err := h.history.DeletePlan(c.Request.Context(), planID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	c.JSON(http.StatusOK, models.StoredPlanDeleteResponse{ID: planID.String(), Deleted: true})
}

// intQuery lit un paramètre entier positif, valeur par défaut sinon
func intQuery(c *gin.Context, name string, defaultValue int) int {
	if raw := c.Query(name); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}
