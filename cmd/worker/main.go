// CleanSync Worker
// @title CleanSync Worker API
// @version 1.0.0
// @description Génération asynchrone de renholdsplaner depuis des plantegninger
// @BasePath /api
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lpernett/godotenv"

	"cleansync-worker/internal/api"
	"cleansync-worker/internal/config"
	"cleansync-worker/internal/configstore"
	"cleansync-worker/internal/database"
	"cleansync-worker/internal/docx"
	"cleansync-worker/internal/gemini"
	"cleansync-worker/internal/history"
	"cleansync-worker/internal/jobs"
	"cleansync-worker/internal/storage"
	pkgstorage "cleansync-worker/pkg/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.Load()

	storageBackend, err := storage.NewStorage(&pkgstorage.StorageConfig{
		Type:      cfg.StorageType,
		BasePath:  cfg.StoragePath,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
	})
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}
	storageService := storage.NewStorageService(storageBackend)

	db, err := database.Connect(cfg.DatabaseURL, cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	settings := configstore.NewStore(db.DB, cfg.PromptPath)
	historyService := history.NewService(history.NewPlanRepository(db.DB))

	geminiClient := gemini.NewClient(&gemini.ClientConfig{
		Model:        cfg.GeminiModel,
		KeyName:      cfg.GeminiKeyName,
		BaseURL:      cfg.GeminiBaseURL,
		PollInterval: cfg.GeminiPollInterval,
	}, settings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := jobs.NewTaskPool(&jobs.PoolConfig{
		WorkerCount: cfg.WorkerCount,
		QueueSize:   cfg.QueueSize,
	})
	pool.Start(ctx)

	planRunner := jobs.NewPlanJobRunner(geminiClient, storageService, historyService, docx.Render, pool)
	batchRunner := jobs.NewBatchRunner(geminiClient, geminiClient, storageService, historyService, pool)

	cleanupService := jobs.NewCleanupService(cfg.CleanupInterval, cfg.JobMaxAge, planRunner, batchRunner)
	go cleanupService.Start(ctx)

	if cfg.HistoryRetention > 0 {
		historyCleanup := jobs.NewCleanupService(cfg.CleanupInterval, cfg.HistoryRetention,
			history.NewPruner(history.NewPlanRepository(db.DB)))
		go historyCleanup.Start(ctx)
	}

	handlers := api.NewHandlers(planRunner, batchRunner, geminiClient, storageService, historyService, settings, nil)
	router := api.SetupRouter(handlers)

	log.Printf("Starting cleansync-worker on port %s", cfg.Port)
	log.Printf("Storage type: %s", cfg.StorageType)
	if cfg.StorageType == "filesystem" {
		log.Printf("Storage path: %s", cfg.StoragePath)
	}
	log.Printf("Gemini model: %s", cfg.GeminiModel)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- router.Run(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatal("Server failed to start:", err)
	case sig := <-quit:
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
		cleanupService.Stop()
		pool.Stop()
		log.Println("Server shutdown complete")
	}
}
