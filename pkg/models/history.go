package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSON type pour la compatibilité PostgreSQL
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSON", value)
	}

	if len(bytes) == 0 {
		*j = make(map[string]interface{})
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// GeneratedPlan est le modèle d'historique des plans générés
type GeneratedPlan struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Source         string    `json:"source" gorm:"type:varchar(32);not null;index"` // generator, converter, batch
	RequestPayload JSON      `json:"request_payload" gorm:"type:jsonb;default:'{}'"`
	PlanJSON       string    `json:"plan_json" gorm:"type:text;not null"`
	DocxID         string    `json:"docx_id" gorm:"type:text"`
	Metadata       JSON      `json:"metadata" gorm:"type:jsonb;default:'{}'"`
	GenerationMS   int64     `json:"generation_ms"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}

// TableName spécifie le nom de la table
func (GeneratedPlan) TableName() string {
	return "generated_plans"
}

// BeforeCreate hook GORM pour initialiser l'ID et le timestamp
func (p *GeneratedPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.RequestPayload == nil {
		p.RequestPayload = JSON{}
	}
	if p.Metadata == nil {
		p.Metadata = JSON{}
	}
	return nil
}

// Plan désérialise le plan stocké
func (p *GeneratedPlan) Plan() (*CleaningPlan, error) {
	var plan CleaningPlan
	if err := json.Unmarshal([]byte(p.PlanJSON), &plan); err != nil {
		return nil, fmt.Errorf("failed to decode stored plan %s: %w", p.ID, err)
	}
	return &plan, nil
}

// StoredPlanSummary est la vue résumée d'un plan historisé
// @Description Résumé d'un plan généré précédemment
type StoredPlanSummary struct {
	ID                uuid.UUID `json:"id"`
	Source            string    `json:"source"`
	DocxURL           string    `json:"docx_url,omitempty"`
	Metadata          JSON      `json:"metadata,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	GenerationSeconds float64   `json:"generation_seconds,omitempty"`
} // @name StoredPlanSummary

// ToSummary convertit un GeneratedPlan en résumé API
func (p *GeneratedPlan) ToSummary() StoredPlanSummary {
	summary := StoredPlanSummary{
		ID:        p.ID,
		Source:    p.Source,
		Metadata:  p.Metadata,
		CreatedAt: p.CreatedAt,
	}
	if p.DocxID != "" {
		summary.DocxURL = "/api/download/" + p.DocxID
	}
	if p.GenerationMS > 0 {
		summary.GenerationSeconds = float64(p.GenerationMS) / 1000.0
	}
	// file_count dérivé du payload si absent des metadata
	if _, ok := summary.Metadata["file_count"]; !ok {
		if ids, ok := p.RequestPayload["file_ids"].([]interface{}); ok && len(ids) > 0 {
			merged := JSON{}
			for k, v := range summary.Metadata {
				merged[k] = v
			}
			merged["file_count"] = len(ids)
			summary.Metadata = merged
		}
	}
	return summary
}
