package models

import (
	"time"
)

// APIKey est une clé d'API provider stockée côté serveur
type APIKey struct {
	Name      string    `json:"name" gorm:"type:varchar(64);primary_key"`
	Label     string    `json:"label" gorm:"type:varchar(128)"`
	Value     string    `json:"-" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName spécifie le nom de la table
func (APIKey) TableName() string {
	return "api_keys"
}

// ToSummary masque la valeur de la clé pour l'API d'administration
func (k *APIKey) ToSummary() APIKeySummary {
	lastFour := k.Value
	if len(lastFour) > 4 {
		lastFour = lastFour[len(lastFour)-4:]
	}
	return APIKeySummary{
		Name:       k.Name,
		Label:      k.Label,
		Configured: k.Value != "",
		LastFour:   lastFour,
		UpdatedAt:  k.UpdatedAt,
	}
}

// APIKeySummary est la vue publique d'une clé configurée
// @Description Clé d'API sans sa valeur
type APIKeySummary struct {
	Name       string    `json:"name"`
	Label      string    `json:"label"`
	Configured bool      `json:"configured"`
	LastFour   string    `json:"last_four,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
} // @name APIKeySummary

// Setting est un réglage nommé modifiable à chaud (prompt système, overrides Gemini)
type Setting struct {
	Name      string    `json:"name" gorm:"type:varchar(64);primary_key"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName spécifie le nom de la table
func (Setting) TableName() string {
	return "settings"
}

// GenerationOverrides sont les réglages Gemini modifiables à chaud.
// Les clés absentes gardent les valeurs par défaut du client.
type GenerationOverrides struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`
	MediaResolution string   `json:"media_resolution,omitempty"` // low, medium, high
}
