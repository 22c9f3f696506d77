package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"cleansync-worker/internal/gemini"
	"cleansync-worker/pkg/models"
)

// ErrBatchAPIUnavailable est levée quand le mode bulk est demandé sans
// collaborateur de soumission groupée configuré. Erreur de configuration:
// synchrone, avant toute planification.
var ErrBatchAPIUnavailable = errors.New("batch API mode requested but no batch generator is configured")

// BatchRunner détient le registre des batchs et pilote chaque batch vers
// un état terminal, item par item ou par soumission groupée selon la
// requête.
type BatchRunner struct {
	generator Generator
	batch     BatchGenerator // nil si la soumission groupée n'est pas disponible
	blobs     BlobStore
	history   History
	pool      *TaskPool

	registry *Registry[*models.BatchJob]

	mu      sync.RWMutex
	results map[string][]models.CleaningPlan
}

func NewBatchRunner(generator Generator, batch BatchGenerator, blobs BlobStore, history History, pool *TaskPool) *BatchRunner {
	return &BatchRunner{
		generator: generator,
		batch:     batch,
		blobs:     blobs,
		history:   history,
		pool:      pool,
		registry:  NewRegistry[*models.BatchJob](),
		results:   make(map[string][]models.CleaningPlan),
	}
}

// StartBatch valide la requête et planifie le traitement. La stratégie
// bulk sans collaborateur configuré échoue ici, jamais dans la tâche.
func (r *BatchRunner) StartBatch(ctx context.Context, req *models.BatchRunRequest) (*models.BatchJob, error) {
	if len(req.FileIDs) == 0 {
		return nil, ErrNoFiles
	}
	if req.UseBatchAPI && r.batch == nil {
		return nil, ErrBatchAPIUnavailable
	}
	if err := validatePlanCategory(req.Options.PlanCategory); err != nil {
		return nil, err
	}
	for _, fileID := range req.FileIDs {
		exists, err := r.blobs.Exists(ctx, fileID)
		if err != nil {
			return nil, fmt.Errorf("failed to check file %s: %w", fileID, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFile, fileID)
		}
	}

	now := time.Now()
	job := &models.BatchJob{
		ID:         uuid.NewString(),
		Status:     models.StatusPending,
		TotalFiles: len(req.FileIDs),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.registry.Put(job.ID, job)
	r.mu.Lock()
	r.results[job.ID] = nil
	r.mu.Unlock()

	request := *req
	if err := r.pool.Submit(Task{
		Name: "batch-job-" + job.ID,
		Run: func(taskCtx context.Context) {
			r.runBatch(taskCtx, job.ID, &request)
		},
	}); err != nil {
		return nil, err
	}

	return job.Clone(), nil
}

// GetStatus retourne l'état committé le plus récent du batch
func (r *BatchRunner) GetStatus(jobID string) (*models.BatchJob, error) {
	return r.registry.Get(jobID)
}

// GetResults retourne les plans produits jusqu'ici
func (r *BatchRunner) GetResults(jobID string) ([]models.CleaningPlan, error) {
	if _, err := r.registry.Get(jobID); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.CleaningPlan(nil), r.results[jobID]...), nil
}

func (r *BatchRunner) fail(jobID, message string, detail *models.FailureDetail) {
	r.registry.Update(jobID, func(job *models.BatchJob) {
		job.Status = models.StatusFailed
		job.Message = message
		job.Detail = detail
		job.UpdatedAt = time.Now()
	})
}

func (r *BatchRunner) failClassified(jobID string, err error) {
	svcErr := gemini.Classify(err)
	r.fail(jobID, svcErr.Message, svcErr.Detail())
}

func (r *BatchRunner) runBatch(ctx context.Context, jobID string, req *models.BatchRunRequest) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("BatchRunner: batch %s panicked: %v", jobID, rec)
			r.fail(jobID, unexpectedFailureMessage, &models.FailureDetail{
				Message: fmt.Sprint(rec),
				Source:  "worker",
			})
		}
	}()

	r.registry.Update(jobID, func(job *models.BatchJob) {
		job.Status = models.StatusRunning
		job.UpdatedAt = time.Now()
	})

	if req.UseBatchAPI {
		r.runBulk(ctx, jobID, req)
		return
	}
	r.runPerItem(ctx, jobID, req)
}

// runPerItem traite les fichiers un par un: progression partielle tolérée,
// un record d'historique par item réussi, arrêt au premier échec sans
// rollback des items déjà enregistrés.
func (r *BatchRunner) runPerItem(ctx context.Context, jobID string, req *models.BatchRunRequest) {
	for _, fileID := range req.FileIDs {
		itemStarted := time.Now()

		plan, err := r.processItem(ctx, fileID, req.Options)
		if err != nil {
			r.failClassified(jobID, err)
			return
		}

		payload := models.JSON{
			"job_id":  jobID,
			"file_id": fileID,
			"options": req.Options,
		}
		if _, err := r.history.Record(ctx, "batch", payload, plan, "", nil, time.Since(itemStarted).Milliseconds()); err != nil {
			r.fail(jobID, err.Error(), &models.FailureDetail{Message: err.Error(), Source: "history"})
			return
		}

		r.mu.Lock()
		r.results[jobID] = append(r.results[jobID], *plan)
		r.mu.Unlock()

		r.registry.Update(jobID, func(job *models.BatchJob) {
			job.ProcessedFiles++
			job.UpdatedAt = time.Now()
		})
	}

	r.registry.Update(jobID, func(job *models.BatchJob) {
		job.Status = models.StatusSucceeded
		job.UpdatedAt = time.Now()
	})
}

// runBulk délègue tout le lot à la soumission groupée: tout ou rien. Le
// nombre de résultats doit être exactement le nombre d'items soumis, et
// aucun record d'historique n'est écrit avant validation complète.
func (r *BatchRunner) runBulk(ctx context.Context, jobID string, req *models.BatchRunRequest) {
	roomBatches := make([][]models.Room, 0, len(req.FileIDs))
	for _, fileID := range req.FileIDs {
		data, err := r.blobs.Resolve(ctx, fileID)
		if err != nil {
			r.fail(jobID, err.Error(), &models.FailureDetail{Message: err.Error(), Source: "storage"})
			return
		}
		rooms, err := r.generator.AnalyzeFloorplan(ctx, data, fileID, req.Options)
		if err != nil {
			r.failClassified(jobID, err)
			return
		}
		roomBatches = append(roomBatches, rooms)
	}

	started := time.Now()
	plans, err := r.batch.GeneratePlanBatch(ctx, roomBatches, "", req.Options.PlanCategory)
	if err != nil {
		r.failClassified(jobID, err)
		return
	}
	if len(plans) != len(req.FileIDs) {
		r.fail(jobID,
			fmt.Sprintf("batch returned %d plans for %d submitted files", len(plans), len(req.FileIDs)),
			&models.FailureDetail{
				Message:   fmt.Sprintf("batch returned %d plans for %d submitted files", len(plans), len(req.FileIDs)),
				Source:    gemini.SourceProvider,
				Reason:    "batch_count_mismatch",
				Retryable: false,
			})
		return
	}

	generationMS := time.Since(started).Milliseconds()
	for i, fileID := range req.FileIDs {
		payload := models.JSON{
			"job_id":  jobID,
			"file_id": fileID,
			"options": req.Options,
		}
		plan := plans[i]
		if _, err := r.history.Record(ctx, "batch", payload, &plan, "", nil, generationMS); err != nil {
			r.fail(jobID, err.Error(), &models.FailureDetail{Message: err.Error(), Source: "history"})
			return
		}
	}

	r.mu.Lock()
	r.results[jobID] = plans
	r.mu.Unlock()

	r.registry.Update(jobID, func(job *models.BatchJob) {
		job.Status = models.StatusSucceeded
		job.ProcessedFiles = job.TotalFiles
		job.UpdatedAt = time.Now()
	})
}

// processItem analyse un fichier puis génère son plan individuel
func (r *BatchRunner) processItem(ctx context.Context, fileID string, options models.FloorPlanOptions) (*models.CleaningPlan, error) {
	data, err := r.blobs.Resolve(ctx, fileID)
	if err != nil {
		return nil, err
	}
	rooms, err := r.generator.AnalyzeFloorplan(ctx, data, fileID, options)
	if err != nil {
		return nil, err
	}
	return r.generator.GeneratePlan(ctx, rooms, "", options.PlanCategory)
}

// PruneTerminal retire les batchs terminaux plus vieux que cutoff
func (r *BatchRunner) PruneTerminal(cutoff time.Time) int {
	pruned := r.registry.PruneTerminal(cutoff)
	if len(pruned) == 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range pruned {
		delete(r.results, id)
	}
	return len(pruned)
}
