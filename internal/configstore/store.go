package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cleansync-worker/pkg/models"
)

const (
	settingSystemPrompt     = "system_prompt"
	settingGenerationConfig = "generation_config"
)

var ErrKeyNotFound = errors.New("api key not found")

// Store persiste les clés d'API et les réglages modifiables à chaud. Il
// alimente le client Gemini et l'API d'administration.
type Store struct {
	db *gorm.DB

	// prompt par défaut chargé depuis le fichier au démarrage
	defaultPrompt string
}

// NewStore charge le prompt par défaut depuis promptPath. Un fichier
// absent n'est pas fatal: les instructions embarquées du client servent
// de repli.
func NewStore(db *gorm.DB, promptPath string) *Store {
	s := &Store{db: db}
	if promptPath != "" {
		data, err := os.ReadFile(promptPath)
		if err != nil {
			log.Printf("ConfigStore: default prompt not loaded from %s: %v", promptPath, err)
		} else {
			s.defaultPrompt = strings.TrimSpace(string(data))
		}
	}
	return s
}

// normalizeKeyName aligne la casse des noms de clés
func normalizeKeyName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// APIKeyValue retourne la valeur stockée de la clé nommée, "" si absente
func (s *Store) APIKeyValue(ctx context.Context, name string) (string, error) {
	var key models.APIKey
	err := s.db.WithContext(ctx).Where("name = ?", normalizeKeyName(name)).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read api key %s: %w", name, err)
	}
	return key.Value, nil
}

// ListAPIKeys retourne les clés configurées, valeurs masquées
func (s *Store) ListAPIKeys(ctx context.Context) ([]models.APIKeySummary, error) {
	var keys []models.APIKey
	if err := s.db.WithContext(ctx).Order("name").Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	summaries := make([]models.APIKeySummary, 0, len(keys))
	for i := range keys {
		summaries = append(summaries, keys[i].ToSummary())
	}
	return summaries, nil
}

// SetAPIKey crée ou remplace la clé nommée et retourne sa vue masquée
func (s *Store) SetAPIKey(ctx context.Context, name, label, value string) (models.APIKeySummary, error) {
	name = normalizeKeyName(name)
	if name == "" {
		return models.APIKeySummary{}, fmt.Errorf("api key name is required")
	}
	if value == "" {
		return models.APIKeySummary{}, fmt.Errorf("api key value is required")
	}
	if label == "" {
		label = name
	}
	key := models.APIKey{
		Name:      name,
		Label:     label,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"label", "value", "updated_at"}),
	}).Create(&key).Error
	if err != nil {
		return models.APIKeySummary{}, fmt.Errorf("failed to store api key %s: %w", name, err)
	}
	log.Printf("ConfigStore: api key %s updated", name)
	return key.ToSummary(), nil
}

// DeleteAPIKey supprime la clé nommée
func (s *Store) DeleteAPIKey(ctx context.Context, name string) error {
	name = normalizeKeyName(name)
	result := s.db.WithContext(ctx).Where("name = ?", name).Delete(&models.APIKey{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete api key %s: %w", name, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrKeyNotFound
	}
	log.Printf("ConfigStore: api key %s removed", name)
	return nil
}

func (s *Store) getSetting(ctx context.Context, name string) (*models.Setting, bool) {
	var setting models.Setting
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&setting).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("ConfigStore: failed to read setting %s: %v", name, err)
		}
		return nil, false
	}
	return &setting, true
}

func (s *Store) setSetting(ctx context.Context, name, value string) error {
	setting := models.Setting{
		Name:      name,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("failed to store setting %s: %w", name, err)
	}
	return nil
}

func (s *Store) deleteSetting(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Where("name = ?", name).Delete(&models.Setting{}).Error
}

// SystemPrompt retourne l'override stocké, sinon le prompt par défaut du
// fichier. ok=false signifie: utiliser les instructions embarquées.
func (s *Store) SystemPrompt(ctx context.Context) (string, bool) {
	if setting, ok := s.getSetting(ctx, settingSystemPrompt); ok && strings.TrimSpace(setting.Value) != "" {
		return setting.Value, true
	}
	if s.defaultPrompt != "" {
		return s.defaultPrompt, true
	}
	return "", false
}

// SystemPromptState retourne le prompt effectif, s'il est overridé et la
// date du dernier override
func (s *Store) SystemPromptState(ctx context.Context) (prompt string, overridden bool, updatedAt *time.Time) {
	if setting, ok := s.getSetting(ctx, settingSystemPrompt); ok && strings.TrimSpace(setting.Value) != "" {
		at := setting.UpdatedAt
		return setting.Value, true, &at
	}
	return s.defaultPrompt, false, nil
}

// SetSystemPrompt installe un override du prompt système
func (s *Store) SetSystemPrompt(ctx context.Context, prompt string) error {
	if err := s.setSetting(ctx, settingSystemPrompt, prompt); err != nil {
		return err
	}
	log.Printf("ConfigStore: system prompt overridden (%d chars)", len(prompt))
	return nil
}

// ResetSystemPrompt retire l'override et revient au prompt par défaut
func (s *Store) ResetSystemPrompt(ctx context.Context) error {
	if err := s.deleteSetting(ctx, settingSystemPrompt); err != nil {
		return fmt.Errorf("failed to reset system prompt: %w", err)
	}
	log.Printf("ConfigStore: system prompt reset to default")
	return nil
}

// Overrides retourne les réglages de génération stockés. Toute valeur
// illisible est ignorée: le client retombe sur ses défauts.
func (s *Store) Overrides(ctx context.Context) models.GenerationOverrides {
	var overrides models.GenerationOverrides
	setting, ok := s.getSetting(ctx, settingGenerationConfig)
	if !ok || setting.Value == "" {
		return overrides
	}
	if err := json.Unmarshal([]byte(setting.Value), &overrides); err != nil {
		log.Printf("ConfigStore: invalid generation config, using defaults: %v", err)
		return models.GenerationOverrides{}
	}
	return overrides
}

// SetOverrides remplace les réglages de génération stockés
func (s *Store) SetOverrides(ctx context.Context, overrides models.GenerationOverrides) error {
	data, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("failed to encode generation config: %w", err)
	}
	if err := s.setSetting(ctx, settingGenerationConfig, string(data)); err != nil {
		return err
	}
	log.Printf("ConfigStore: generation config updated")
	return nil
}
