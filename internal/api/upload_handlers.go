package api

import (
	"log"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"cleansync-worker/internal/storage"
	"cleansync-worker/pkg/models"
)

// UploadFloorplans godoc
// @Summary Upload de plantegninger
// @Description Stocke un lot d'images ou de PDF de plantegninger et retourne leurs identifiants
// @Tags upload
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Fichiers plantegning (png, jpg, pdf)"
// @Success 200 {object} models.UploadResponse
// @Failure 400 {object} map[string]interface{}
// @Router /upload/floorplans [post]
func (h *Handlers) UploadFloorplans(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form", "details": err.Error()})
		return
	}
	files := form.File["files"]

	validationResult := h.validator.ValidateFloorplans(files)
	if !validationResult.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "Validation failed",
			"validation_errors": validationResult.Errors,
		})
		return
	}

	fileIDs := make([]string, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		fileID, err := h.storage.SaveUpload(c.Request.Context(), storage.CategoryFloorplans,
			h.validator.SanitizeFilename(header.Filename), file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		fileIDs = append(fileIDs, fileID)
	}

	log.Printf("Stored %d floorplan files", len(fileIDs))
	c.JSON(http.StatusOK, models.UploadResponse{FileIDs: fileIDs})
}

// UploadTemplate godoc
// @Summary Upload d'un template de plan
// @Tags upload
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Fichier template"
// @Success 200 {object} models.TemplateMetadata
// @Failure 400 {object} map[string]interface{}
// @Router /upload/template [post]
func (h *Handlers) UploadTemplate(c *gin.Context) {
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

	sanitized := h.validator.SanitizeFilename(header.Filename)
	fileID, err := h.storage.SaveUpload(c.Request.Context(), storage.CategoryTemplates, sanitized, file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.TemplateMetadata{
		TemplateID: fileID,
		Filename:   h.converter.AnalyzeTemplate(sanitized),
	})
}

// UploadExternalPlan godoc
// @Summary Upload de plans externes à convertir
// @Tags upload
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Fichiers de plan externes"
// @Success 200 {object} models.UploadResponse
// @Failure 400 {object} map[string]interface{}
// @Router /upload/external-plan [post]
func (h *Handlers) UploadExternalPlan(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form", "details": err.Error()})
		return
	}
	files := form.File["files"]

	validationResult := h.validator.ValidateDocuments(files)
	if !validationResult.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "Validation failed",
			"validation_errors": validationResult.Errors,
		})
		return
	}

	fileIDs := make([]string, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		fileID, err := h.storage.SaveUpload(c.Request.Context(), storage.CategoryPlans,
			h.validator.SanitizeFilename(header.Filename), file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		fileIDs = append(fileIDs, fileID)
	}

	c.JSON(http.StatusOK, models.UploadResponse{FileIDs: fileIDs})
}

// Download godoc
// @Summary Téléchargement d'un fichier stocké
// @Tags files
// @Produce application/octet-stream
// @Param file_id path string true "Identifiant du fichier (categorie/uuid.ext)"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Router /download/{file_id} [get]
func (h *Handlers) Download(c *gin.Context) {
	fileID := c.Param("file_id")
	// le wildcard gin garde le slash initial
	if len(fileID) > 0 && fileID[0] == '/' {
		fileID = fileID[1:]
	}

	data, err := h.storage.Resolve(c.Request.Context(), fileID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	filename := path.Base(fileID)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// ListStoredFiles godoc
// @Summary Liste les fichiers d'une catégorie de stockage
// @Tags files
// @Produce json
// @Param category path string true "Catégorie (floorplans, templates, plans, docx)"
// @Success 200 {object} models.StoredFileListResponse
// @Failure 400 {object} map[string]string
// @Router /files/{category} [get]
func (h *Handlers) ListStoredFiles(c *gin.Context) {
	category := c.Param("category")

	fileIDs, err := h.storage.ListCategory(c.Request.Context(), category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.StoredFileListResponse{Category: category, FileIDs: fileIDs})
}

// DeleteStoredFile godoc
// @Summary Supprime un fichier stocké
// @Description Suppression idempotente: un identifiant valide déjà absent réussit
// @Tags files
// @Produce json
// @Param file_id path string true "Identifiant du fichier (categorie/uuid.ext)"
// @Success 200 {object} models.StoredFileDeleteResponse
// @Failure 400 {object} map[string]string
// @Router /files/{file_id} [delete]
func (h *Handlers) DeleteStoredFile(c *gin.Context) {
	fileID := c.Param("file_id")
	if len(fileID) > 0 && fileID[0] == '/' {
		fileID = fileID[1:]
	}

	if err := h.storage.Delete(c.Request.Context(), fileID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Deleted stored file %s", fileID)
	c.JSON(http.StatusOK, models.StoredFileDeleteResponse{FileID: fileID, Deleted: true})
}
