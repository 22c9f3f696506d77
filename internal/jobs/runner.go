package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"cleansync-worker/internal/categories"
	"cleansync-worker/internal/gemini"
	"cleansync-worker/pkg/models"
)

// Erreurs synchrones levées avant la planification de la tâche de fond
var (
	ErrNoFiles           = errors.New("file_ids is required")
	ErrUnknownFile       = errors.New("unknown file id")
	ErrUnknownCategory   = errors.New("unknown plan category")
	ErrResultUnavailable = errors.New("job result is not available")
)

const unexpectedFailureMessage = "Uventet feil under generering"

// validatePlanCategory refuse une catégorie renseignée mais absente du
// référentiel; une catégorie vide reste acceptée
func validatePlanCategory(id string) error {
	if id == "" || categories.IsValid(id) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownCategory, id)
}

// PlanJobRunner détient le registre des jobs de génération et pilote
// chaque job vers un état terminal via une tâche de fond. Les mutations
// d'un record passent par le registre; les lecteurs de statut ne voient
// jamais d'état intermédiaire déchiré.
type PlanJobRunner struct {
	generator Generator
	blobs     BlobStore
	history   History
	render    Renderer
	pool      *TaskPool

	registry *Registry[*models.PlanJob]

	mu      sync.RWMutex
	results map[string]*models.CleaningPlan
}

func NewPlanJobRunner(generator Generator, blobs BlobStore, history History, render Renderer, pool *TaskPool) *PlanJobRunner {
	return &PlanJobRunner{
		generator: generator,
		blobs:     blobs,
		history:   history,
		render:    render,
		pool:      pool,
		registry:  NewRegistry[*models.PlanJob](),
		results:   make(map[string]*models.CleaningPlan),
	}
}

// StartJob valide la requête, enregistre un job pending et planifie la
// tâche de fond. Retourne immédiatement sans attendre l'appel externe.
func (r *PlanJobRunner) StartJob(ctx context.Context, req *models.GeneratePlanRequest) (*models.PlanJob, error) {
	if len(req.FileIDs) == 0 {
		return nil, ErrNoFiles
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
	job := &models.PlanJob{
		ID:        uuid.NewString(),
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.registry.Put(job.ID, job)

	request := *req
	if err := r.pool.Submit(Task{
		Name: "plan-job-" + job.ID,
		Run: func(taskCtx context.Context) {
			r.runJob(taskCtx, job.ID, &request)
		},
	}); err != nil {
		return nil, err
	}

	return job.Clone(), nil
}

// GetStatus retourne l'état committé le plus récent du job
func (r *PlanJobRunner) GetStatus(jobID string) (*models.PlanJob, error) {
	return r.registry.Get(jobID)
}

// GetResult retourne le plan produit, uniquement pour un job succeeded
func (r *PlanJobRunner) GetResult(jobID string) (*models.CleaningPlan, string, error) {
	job, err := r.registry.Get(jobID)
	if err != nil {
		return nil, "", err
	}
	if job.Status != models.StatusSucceeded {
		return nil, "", ErrResultUnavailable
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.results[jobID]
	if !ok {
		return nil, "", ErrResultUnavailable
	}
	return plan, job.DocxURL, nil
}

// fail écrit la transition terminale d'échec avec son diagnostic
func (r *PlanJobRunner) fail(jobID, message string, detail *models.FailureDetail) {
	r.registry.Update(jobID, func(job *models.PlanJob) {
		job.Status = models.StatusFailed
		job.Message = message
		job.Detail = detail
		job.UpdatedAt = time.Now()
	})
}

// runJob pilote un job de pending à un état terminal. Toute erreur est
// classifiée et écrite dans le record; rien ne traverse la frontière de la
// tâche de fond.
func (r *PlanJobRunner) runJob(ctx context.Context, jobID string, req *models.GeneratePlanRequest) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("PlanJobRunner: job %s panicked: %v", jobID, rec)
			r.fail(jobID, unexpectedFailureMessage, &models.FailureDetail{
				Message: fmt.Sprint(rec),
				Source:  "worker",
			})
		}
	}()

	r.registry.Update(jobID, func(job *models.PlanJob) {
		job.Status = models.StatusRunning
		job.UpdatedAt = time.Now()
	})
	started := time.Now()

	// Les fichiers sont traités strictement dans l'ordre de soumission
	var rooms []models.Room
	for _, fileID := range req.FileIDs {
		data, err := r.blobs.Resolve(ctx, fileID)
		if err != nil {
			r.fail(jobID, err.Error(), &models.FailureDetail{Message: err.Error(), Source: "storage"})
			return
		}
		extracted, err := r.generator.AnalyzeFloorplan(ctx, data, fileID, req.Options)
		if err != nil {
			svcErr := gemini.Classify(err)
			r.fail(jobID, svcErr.Message, svcErr.Detail())
			return
		}
		rooms = append(rooms, extracted...)
	}

	templateName := ""
	if req.TemplateID != "" {
		templateName = r.generator.AnalyzeTemplate(req.TemplateID)
	}

	// Synthèse finale, seulement après la réussite de tous les fichiers
	plan, err := r.generator.GeneratePlan(ctx, rooms, templateName, req.Options.PlanCategory)
	if err != nil {
		svcErr := gemini.Classify(err)
		r.fail(jobID, svcErr.Message, svcErr.Detail())
		return
	}

	docxBytes, err := r.render(plan)
	if err != nil {
		r.fail(jobID, err.Error(), &models.FailureDetail{Message: err.Error(), Source: "render"})
		return
	}
	docxID, err := r.blobs.StoreDocx(ctx, docxBytes)
	if err != nil {
		r.fail(jobID, err.Error(), &models.FailureDetail{Message: err.Error(), Source: "storage"})
		return
	}

	payload := models.JSON{
		"file_ids":    req.FileIDs,
		"template_id": req.TemplateID,
		"options":     req.Options,
	}
	metadata := models.JSON{
		"template_id":   req.TemplateID,
		"file_count":    len(req.FileIDs),
		"plan_category": req.Options.PlanCategory,
	}
	if _, err := r.history.Record(ctx, "generator", payload, plan, docxID, metadata, time.Since(started).Milliseconds()); err != nil {
		r.fail(jobID, err.Error(), &models.FailureDetail{Message: err.Error(), Source: "history"})
		return
	}

	r.mu.Lock()
	r.results[jobID] = plan
	r.mu.Unlock()

	r.registry.Update(jobID, func(job *models.PlanJob) {
		job.Status = models.StatusSucceeded
		job.DocxURL = "/api/download/" + docxID
		job.UpdatedAt = time.Now()
	})
	log.Printf("PlanJobRunner: job %s succeeded in %v", jobID, time.Since(started))
}

// PruneTerminal retire les jobs terminaux plus vieux que cutoff
func (r *PlanJobRunner) PruneTerminal(cutoff time.Time) int {
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
