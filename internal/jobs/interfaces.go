package jobs

import (
	"context"

	"github.com/google/uuid"

	"cleansync-worker/pkg/models"
)

// Contrats des collaborateurs consommés par les runners. Les
// implémentations vivent dans internal/gemini, internal/storage,
// internal/history et internal/docx.

// Generator couvre les appels de génération unitaires
type Generator interface {
	AnalyzeFloorplan(ctx context.Context, data []byte, filename string, options models.FloorPlanOptions) ([]models.Room, error)
	GeneratePlan(ctx context.Context, rooms []models.Room, templateName, category string) (*models.CleaningPlan, error)
	ConvertPlan(ctx context.Context, rawText string) (*models.CleaningPlan, error)
	AnalyzeTemplate(filename string) string
}

// BatchGenerator couvre la soumission groupée; absent si le provider ne la
// supporte pas
type BatchGenerator interface {
	GeneratePlanBatch(ctx context.Context, roomBatches [][]models.Room, templateName, category string) ([]models.CleaningPlan, error)
}

// BlobStore résout et stocke les fichiers référencés par les jobs
type BlobStore interface {
	Resolve(ctx context.Context, fileID string) ([]byte, error)
	Exists(ctx context.Context, fileID string) (bool, error)
	StoreDocx(ctx context.Context, data []byte) (string, error)
}

// History persiste les plans générés
type History interface {
	Record(ctx context.Context, source string, payload models.JSON, plan *models.CleaningPlan, docxID string, metadata models.JSON, generationMS int64) (uuid.UUID, error)
}

// Renderer produit l'artefact docx depuis un plan; fonction pure
type Renderer func(plan *models.CleaningPlan) ([]byte, error)
