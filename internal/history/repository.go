package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cleansync-worker/pkg/models"
)

type PlanRepository interface {
	Create(ctx context.Context, plan *models.GeneratedPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.GeneratedPlan, error)
	List(ctx context.Context, filters PlanFilters) ([]*models.GeneratedPlan, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteOldPlans(ctx context.Context, olderThan time.Time) (int64, error)
}

type PlanFilters struct {
	Source string
	Limit  int
	Offset int
}

type planRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(ctx context.Context, plan *models.GeneratedPlan) error {
	plan.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *planRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GeneratedPlan, error) {
	var plan models.GeneratedPlan
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) List(ctx context.Context, filters PlanFilters) ([]*models.GeneratedPlan, error) {
	var plans []*models.GeneratedPlan

	query := r.db.WithContext(ctx).Model(&models.GeneratedPlan{})

	if filters.Source != "" {
		query = query.Where("source = ?", filters.Source)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	query = query.Order("created_at DESC")

	err := query.Find(&plans).Error
	return plans, err
}

func (r *planRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.GeneratedPlan{}).Error
}

func (r *planRepository) DeleteOldPlans(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", olderThan).
		Delete(&models.GeneratedPlan{})

	return result.RowsAffected, result.Error
}
