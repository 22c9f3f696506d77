package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cleansync-worker/internal/configstore"
	"cleansync-worker/pkg/models"
)

// ListAPIKeys godoc
// @Summary Liste les clés d'API configurées
// @Tags admin
// @Produce json
// @Success 200 {object} models.APIKeyListResponse
// @Router /admin/api-keys [get]
func (h *Handlers) ListAPIKeys(c *gin.Context) {
	keys, err := h.settings.ListAPIKeys(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.APIKeyListResponse{APIKeys: keys})
}

// UpsertAPIKey godoc
// @Summary Crée ou met à jour une clé d'API
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.APIKeyUpdateRequest true "Clé à stocker"
// @Success 200 {object} models.APIKeyUpdateResponse
// @Failure 400 {object} map[string]string
// @Router /admin/api-keys [post]
func (h *Handlers) UpsertAPIKey(c *gin.Context) {
	var req models.APIKeyUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format", "details": err.Error()})
		return
	}

	summary, err := h.settings.SetAPIKey(c.Request.Context(), req.Name, req.Label, req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.APIKeyUpdateResponse{Key: summary})
}

// DeleteAPIKey godoc
// @Summary Supprime une clé d'API
// @Tags admin
// @Produce json
// @Param name path string true "Nom de la clé"
// @Success 200 {object} models.APIKeyDeleteResponse
// @Failure 404 {object} map[string]string
// @Router /admin/api-keys/{name} [delete]
func (h *Handlers) DeleteAPIKey(c *gin.Context) {
	name := c.Param("name")
	if err := h.settings.DeleteAPIKey(c.Request.Context(), name); err != nil {
		if errors.Is(err, configstore.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "api key not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.APIKeyDeleteResponse{Name: name, Deleted: true})
}

// GetSystemPrompt godoc
// @Summary Prompt système effectif
// @Tags admin
// @Produce json
// @Success 200 {object} models.SystemPromptResponse
// @Router /admin/system-prompt [get]
func (h *Handlers) GetSystemPrompt(c *gin.Context) {
	prompt, overridden, updatedAt := h.settings.SystemPromptState(c.Request.Context())
	c.JSON(http.StatusOK, models.SystemPromptResponse{
		Prompt:       prompt,
		UpdatedAt:    updatedAt,
		IsOverridden: overridden,
	})
}

// UpdateSystemPrompt godoc
// @Summary Remplace ou réinitialise le prompt système
// @Description use_default=true retire l'override et revient au prompt par défaut
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.SystemPromptUpdateRequest true "Nouveau prompt"
// @Success 200 {object} models.SystemPromptResponse
// @Failure 400 {object} map[string]string
// @Router /admin/system-prompt [post]
func (h *Handlers) UpdateSystemPrompt(c *gin.Context) {
	var req models.SystemPromptUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.UseDefault {
		if err := h.settings.ResetSystemPrompt(ctx); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	} else {
		if req.Prompt == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
			return
		}
		if err := h.settings.SetSystemPrompt(ctx, *req.Prompt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	prompt, overridden, updatedAt := h.settings.SystemPromptState(ctx)
	c.JSON(http.StatusOK, models.SystemPromptResponse{
		Prompt:       prompt,
		UpdatedAt:    updatedAt,
		IsOverridden: overridden,
	})
}

// GetGenerationConfig godoc
// @Summary Overrides Gemini courants
// @Tags admin
// @Produce json
// @Success 200 {object} models.GenerationConfigResponse
// @Router /admin/gemini-config [get]
func (h *Handlers) GetGenerationConfig(c *gin.Context) {
	c.JSON(http.StatusOK, models.GenerationConfigResponse{
		Config: h.settings.Overrides(c.Request.Context()),
	})
}

// UpdateGenerationConfig godoc
// @Summary Remplace les overrides Gemini
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.GenerationOverrides true "Nouveaux réglages"
// @Success 200 {object} models.GenerationConfigResponse
// @Failure 400 {object} map[string]string
// @Router /admin/gemini-config [post]
func (h *Handlers) UpdateGenerationConfig(c *gin.Context) {
	var req models.GenerationOverrides
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format", "details": err.Error()})
		return
	}

	if err := h.settings.SetOverrides(c.Request.Context(), req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.GenerationConfigResponse{
		Config: h.settings.Overrides(c.Request.Context()),
	})
}
