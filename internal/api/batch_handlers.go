package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"cleansync-worker/internal/jobs"
	"cleansync-worker/pkg/models"
)

// RunBatch godoc
// @Summary Démarre un batch de génération
// @Description Traite un lot de plantegninger, item par item ou via la soumission groupée du provider
// @Tags batch
// @Accept json
// @Produce json
// @Param request body models.BatchRunRequest true "Requête de batch"
// @Success 202 {object} models.BatchStatusResponse
// @Failure 400 {object} map[string]interface{}
// @Router /batch/run [post]
func (h *Handlers) RunBatch(c *gin.Context) {
	var req models.BatchRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format", "details": err.Error()})
		return
	}

	job, err := h.batchRunner.StartBatch(c.Request.Context(), &req)
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, jobs.ErrNoFiles) &&
			!errors.Is(err, jobs.ErrUnknownFile) &&
			!errors.Is(err, jobs.ErrUnknownCategory) &&
			!errors.Is(err, jobs.ErrBatchAPIUnavailable) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Batch %s accepted (%d files, batch API: %v)", job.ID, job.TotalFiles, req.UseBatchAPI)
	c.JSON(http.StatusAccepted, models.BatchStatusResponse{Job: job})
}

// GetBatchStatus godoc
// @Summary État d'un batch
// @Tags batch
// @Produce json
// @Param id path string true "ID du batch"
// @Success 200 {object} models.BatchStatusResponse
// @Failure 404 {object} map[string]string
// @Router /batch/status/{id} [get]
func (h *Handlers) GetBatchStatus(c *gin.Context) {
	job, err := h.batchRunner.GetStatus(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, models.BatchStatusResponse{Job: job})
}

// GetBatchResults godoc
// @Summary Résultats d'un batch
// @Description Retourne l'état du batch et les plans produits jusqu'ici
// @Tags batch
// @Produce json
// @Param id path string true "ID du batch"
// @Success 200 {object} models.BatchResultsResponse
// @Failure 404 {object} map[string]string
// @Router /batch/results/{id} [get]
func (h *Handlers) GetBatchResults(c *gin.Context) {
	jobID := c.Param("id")

	job, err := h.batchRunner.GetStatus(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	plans, err := h.batchRunner.GetResults(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.JSON(http.StatusOK, models.BatchResultsResponse{Job: job, Plans: plans})
}
