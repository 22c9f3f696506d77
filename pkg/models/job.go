package models

import (
	"time"
)

type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
)

// FailureDetail est le diagnostic structuré attaché à un job échoué
// @Description Détail structuré d'un échec de génération
type FailureDetail struct {
	Message    string `json:"message"`
	Source     string `json:"source"`                // "gemini" ou "parse"
	StatusCode int    `json:"status_code,omitempty"` // code transport si connu
	Reason     string `json:"reason,omitempty"`      // code d'erreur fourni par le provider
	Retryable  bool   `json:"retryable"`
} // @name FailureDetail

// PlanJob représente un job de génération de plan asynchrone.
// Le record est détenu exclusivement par le runner; les lecteurs
// reçoivent des copies.
type PlanJob struct {
	ID        string         `json:"id"`
	Status    JobStatus      `json:"status"`
	DocxURL   string         `json:"docx_url,omitempty"`
	Message   string         `json:"message,omitempty"`
	Detail    *FailureDetail `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsTerminal retourne true si le job est dans un état final
func (j *PlanJob) IsTerminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

// Clone retourne une copie détachée du record
func (j *PlanJob) Clone() *PlanJob {
	cp := *j
	if j.Detail != nil {
		detail := *j.Detail
		cp.Detail = &detail
	}
	return &cp
}

// BatchJob représente un job de traitement batch sur plusieurs fichiers
type BatchJob struct {
	ID             string         `json:"id"`
	Status         JobStatus      `json:"status"`
	TotalFiles     int            `json:"total_files"`
	ProcessedFiles int            `json:"processed_files"`
	Message        string         `json:"message,omitempty"`
	Detail         *FailureDetail `json:"detail,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsTerminal retourne true si le batch est dans un état final
func (j *BatchJob) IsTerminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

// Clone retourne une copie détachée du record
func (j *BatchJob) Clone() *BatchJob {
	cp := *j
	if j.Detail != nil {
		detail := *j.Detail
		cp.Detail = &detail
	}
	return &cp
}

// LastUpdated retourne le timestamp de dernière mutation du record
func (j *PlanJob) LastUpdated() time.Time {
	return j.UpdatedAt
}

// LastUpdated retourne le timestamp de dernière mutation du record
func (j *BatchJob) LastUpdated() time.Time {
	return j.UpdatedAt
}
