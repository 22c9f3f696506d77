package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"cleansync-worker/internal/jobs"
	"cleansync-worker/pkg/models"
)

// GeneratePlan godoc
// @Summary Démarre un job de génération de plan
// @Description Valide les fichiers référencés et planifie la génération en tâche de fond. Retourne immédiatement l'identifiant du job.
// @Tags generation
// @Accept json
// @Produce json
// @Param request body models.GeneratePlanRequest true "Requête de génération"
// @Success 202 {object} models.JobAcceptedResponse
// @Failure 400 {object} map[string]interface{}
// @Router /generate-plan [post]
func (h *Handlers) GeneratePlan(c *gin.Context) {
	var req models.GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format", "details": err.Error()})
		return
	}

	job, err := h.planRunner.StartJob(c.Request.Context(), &req)
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, jobs.ErrNoFiles) &&
			!errors.Is(err, jobs.ErrUnknownFile) &&
			!errors.Is(err, jobs.ErrUnknownCategory) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Plan job %s accepted (%d files)", job.ID, len(req.FileIDs))
	c.JSON(http.StatusAccepted, models.JobAcceptedResponse{
		JobID:  job.ID,
		Status: job.Status,
	})
}

// GetJobStatus godoc
// @Summary État d'un job de génération
// @Tags generation
// @Produce json
// @Param id path string true "ID du job"
// @Success 200 {object} models.PlanJob
// @Failure 404 {object} map[string]string
// @Router /generate-plan/status/{id} [get]
func (h *Handlers) GetJobStatus(c *gin.Context) {
	job, err := h.planRunner.GetStatus(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// GetJobResult godoc
// @Summary Résultat d'un job de génération terminé
// @Description Disponible uniquement quand le job est en statut succeeded
// @Tags generation
// @Produce json
// @Param id path string true "ID du job"
// @Success 200 {object} models.PlanResultResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /generate-plan/result/{id} [get]
func (h *Handlers) GetJobResult(c *gin.Context) {
	jobID := c.Param("id")

	plan, docxURL, err := h.planRunner.GetResult(jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.PlanResultResponse{
		Plan:    plan,
		DocxURL: docxURL,
	})
}

// ConvertPlan godoc
// @Summary Convertit un plan externe au format CleanSync
// @Description Lit un document texte et le normalise en plan de nettoyage via le modèle génératif
// @Tags generation
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document de plan externe"
// @Success 200 {object} models.ConvertPlanResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /convert-plan [post]
func (h *Handlers) ConvertPlan(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	validationResult := h.validator.ValidateDocument(header)
	if !validationResult.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "Validation failed",
			"validation_errors": validationResult.Errors,
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	started := time.Now()
	plan, err := h.converter.ConvertPlan(c.Request.Context(), decodeText(raw))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	payload := models.JSON{"filename": header.Filename}
	if _, err := h.history.Record(c.Request.Context(), "converter", payload, plan, "", nil, time.Since(started).Milliseconds()); err != nil {
		log.Printf("ConvertPlan: failed to record history: %v", err)
	}

	c.JSON(http.StatusOK, models.ConvertPlanResponse{Plan: plan})
}

// decodeText interprète les octets reçus comme UTF-8, latin-1 en repli
func decodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}
