package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"cleansync-worker/pkg/models"
)

// Service expose l'historique des plans générés: écriture depuis les
// runners, consultation et purge depuis l'API d'administration
type Service interface {
	Record(ctx context.Context, source string, payload models.JSON, plan *models.CleaningPlan, docxID string, metadata models.JSON, generationMS int64) (uuid.UUID, error)
	ListPlans(ctx context.Context, source string, limit, offset int) ([]models.StoredPlanSummary, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*models.GeneratedPlan, error)
	DeletePlan(ctx context.Context, id uuid.UUID) error
}

type serviceImpl struct {
	repo   PlanRepository
	tracer trace.Tracer
}

func NewService(repo PlanRepository) Service {
	return &serviceImpl{
		repo:   repo,
		tracer: otel.Tracer("cleansync-worker/history"),
	}
}

func (s *serviceImpl) Record(ctx context.Context, source string, payload models.JSON, plan *models.CleaningPlan, docxID string, metadata models.JSON, generationMS int64) (uuid.UUID, error) {
	ctx, span := s.tracer.Start(ctx, "HistoryService.Record")
	defer span.End()

	planBytes, err := json.Marshal(plan)
	if err != nil {
		span.RecordError(err)
		return uuid.Nil, fmt.Errorf("failed to encode plan: %w", err)
	}

	record := &models.GeneratedPlan{
		Source:         source,
		RequestPayload: payload,
		PlanJSON:       string(planBytes),
		DocxID:         docxID,
		Metadata:       metadata,
		GenerationMS:   generationMS,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		span.RecordError(err)
		log.Printf("HistoryService.Record: Failed to persist plan from %s: %v", source, err)
		return uuid.Nil, fmt.Errorf("failed to persist generated plan: %w", err)
	}

	log.Printf("HistoryService.Record: Plan %s persisted (source: %s, %dms)", record.ID, source, generationMS)
	return record.ID, nil
}

func (s *serviceImpl) ListPlans(ctx context.Context, source string, limit, offset int) ([]models.StoredPlanSummary, error) {
	ctx, span := s.tracer.Start(ctx, "HistoryService.ListPlans")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	plans, err := s.repo.List(ctx, PlanFilters{Source: source, Limit: limit, Offset: offset})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list generated plans: %w", err)
	}

	summaries := make([]models.StoredPlanSummary, 0, len(plans))
	for _, p := range plans {
		summaries = append(summaries, p.ToSummary())
	}
	return summaries, nil
}

func (s *serviceImpl) GetPlan(ctx context.Context, id uuid.UUID) (*models.GeneratedPlan, error) {
	ctx, span := s.tracer.Start(ctx, "HistoryService.GetPlan")
	defer span.End()

	plan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get plan %s: %w", id, err)
	}
	return plan, nil
}

func (s *serviceImpl) DeletePlan(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "HistoryService.DeletePlan")
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete plan %s: %w", id, err)
	}

	log.Printf("HistoryService.DeletePlan: Plan %s removed", id)
	return nil
}

// Pruner adapte la purge des plans persistés au service de nettoyage
type Pruner struct {
	repo PlanRepository
}

func NewPruner(repo PlanRepository) *Pruner {
	return &Pruner{repo: repo}
}

func (p *Pruner) PruneTerminal(cutoff time.Time) int {
	deleted, err := p.repo.DeleteOldPlans(context.Background(), cutoff)
	if err != nil {
		log.Printf("HistoryPruner: failed to delete old plans: %v", err)
		return 0
	}
	return int(deleted)
}
