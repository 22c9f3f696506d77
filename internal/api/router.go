package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cleansync-worker/internal/categories"
)

// SetupRouter assemble le routeur gin avec toutes les routes de l'API
func SetupRouter(handlers *Handlers) *gin.Engine {
	r := gin.Default()

	r.Use(SecurityHeadersMiddleware())
	r.Use(StandardErrorResponse())

	r.GET("/health", handlers.Health)
	SetupSwagger(r)

	api := r.Group("/api")
	{
		api.GET("/", handlers.Root)

		api.POST("/upload/floorplans", handlers.UploadFloorplans)
		api.POST("/upload/template", handlers.UploadTemplate)
		api.POST("/upload/external-plan", handlers.UploadExternalPlan)
		api.GET("/download/*file_id", handlers.Download)
		api.GET("/files/:category", handlers.ListStoredFiles)
		api.DELETE("/files/*file_id", handlers.DeleteStoredFile)

		api.POST("/generate-plan", handlers.GeneratePlan)
		api.GET("/generate-plan/status/:id", handlers.GetJobStatus)
		api.GET("/generate-plan/result/:id", handlers.GetJobResult)

		api.POST("/convert-plan", handlers.ConvertPlan)

		api.POST("/batch/run", handlers.RunBatch)
		api.GET("/batch/status/:id", handlers.GetBatchStatus)
		api.GET("/batch/results/:id", handlers.GetBatchResults)

		api.GET("/plan-categories", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"categories": categories.List()})
		})

		api.GET("/plans", handlers.ListStoredPlans)
		api.GET("/plans/:id", handlers.GetStoredPlan)
		api.DELETE("/plans/:id", handlers.DeleteStoredPlan)

		admin := api.Group("/admin")
		{
			admin.GET("/api-keys", handlers.ListAPIKeys)
			admin.POST("/api-keys", handlers.UpsertAPIKey)
			admin.DELETE("/api-keys/:name", handlers.DeleteAPIKey)

			admin.GET("/system-prompt", handlers.GetSystemPrompt)
			admin.POST("/system-prompt", handlers.UpdateSystemPrompt)

			admin.GET("/gemini-config", handlers.GetGenerationConfig)
			admin.POST("/gemini-config", handlers.UpdateGenerationConfig)
		}
	}

	return r
}
