package models

import "time"

// GeneratePlanRequest démarre un job de génération asynchrone
// @Description Requête de génération de plan de nettoyage
type GeneratePlanRequest struct {
	FileIDs    []string         `json:"file_ids" binding:"required"`
	TemplateID string           `json:"template_id,omitempty"`
	Options    FloorPlanOptions `json:"options"`
} // @name GeneratePlanRequest

// JobAcceptedResponse est renvoyée immédiatement après création du job
type JobAcceptedResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
} // @name JobAcceptedResponse

// PlanResultResponse contient l'artefact d'un job terminé
type PlanResultResponse struct {
	Plan    *CleaningPlan `json:"plan"`
	DocxURL string        `json:"docx_url"`
} // @name PlanResultResponse

// ConvertPlanResponse contient le plan normalisé depuis un document externe
type ConvertPlanResponse struct {
	Plan *CleaningPlan `json:"plan"`
} // @name ConvertPlanResponse

// UploadResponse liste les identifiants des fichiers stockés
type UploadResponse struct {
	FileIDs []string `json:"file_ids"`
} // @name UploadResponse

// TemplateMetadata décrit un template uploadé
type TemplateMetadata struct {
	TemplateID string `json:"template_id"`
	Filename   string `json:"filename"`
} // @name TemplateMetadata

// BatchRunRequest démarre un batch de génération
// @Description Requête de traitement batch de plantegninger
type BatchRunRequest struct {
	FileIDs     []string         `json:"file_ids" binding:"required"`
	Options     FloorPlanOptions `json:"options"`
	UseBatchAPI bool             `json:"use_batch_api"`
} // @name BatchRunRequest

// BatchStatusResponse contient l'état courant d'un batch
type BatchStatusResponse struct {
	Job *BatchJob `json:"job"`
} // @name BatchStatusResponse

// BatchResultsResponse contient l'état et les plans produits
type BatchResultsResponse struct {
	Job   *BatchJob      `json:"job"`
	Plans []CleaningPlan `json:"plans"`
} // @name BatchResultsResponse

// APIKeyListResponse liste les clés configurées
type APIKeyListResponse struct {
	APIKeys []APIKeySummary `json:"api_keys"`
} // @name APIKeyListResponse

// APIKeyUpdateRequest crée ou met à jour une clé
type APIKeyUpdateRequest struct {
	Name  string `json:"name" binding:"required"`
	Value string `json:"value" binding:"required"`
	Label string `json:"label,omitempty"`
} // @name APIKeyUpdateRequest

// APIKeyUpdateResponse confirme la clé créée ou mise à jour
type APIKeyUpdateResponse struct {
	Key APIKeySummary `json:"key"`
} // @name APIKeyUpdateResponse

// APIKeyDeleteResponse confirme la suppression d'une clé
type APIKeyDeleteResponse struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
} // @name APIKeyDeleteResponse

// SystemPromptResponse expose le prompt système courant
type SystemPromptResponse struct {
	Prompt       string     `json:"prompt"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	IsOverridden bool       `json:"is_overridden"`
} // @name SystemPromptResponse

// SystemPromptUpdateRequest remplace ou réinitialise le prompt système
type SystemPromptUpdateRequest struct {
	Prompt     *string `json:"prompt,omitempty"`
	UseDefault bool    `json:"use_default"`
} // @name SystemPromptUpdateRequest

// GenerationConfigResponse expose les overrides Gemini courants
type GenerationConfigResponse struct {
	Config GenerationOverrides `json:"config"`
} // @name GenerationConfigResponse

// StoredPlanListResponse liste l'historique des plans
type StoredPlanListResponse struct {
	Plans []StoredPlanSummary `json:"plans"`
} // @name StoredPlanListResponse

// StoredPlanDetailResponse contient un plan historisé complet
type StoredPlanDetailResponse struct {
	Summary StoredPlanSummary `json:"summary"`
	Plan    *CleaningPlan     `json:"plan"`
} // @name StoredPlanDetailResponse

// StoredPlanDeleteResponse confirme la suppression d'un plan historisé
type StoredPlanDeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
} // @name StoredPlanDeleteResponse

// StoredFileListResponse liste les fichiers d'une catégorie de stockage
type StoredFileListResponse struct {
	Category string   `json:"category"`
	FileIDs  []string `json:"file_ids"`
} // @name StoredFileListResponse

// StoredFileDeleteResponse confirme la suppression d'un fichier stocké
type StoredFileDeleteResponse struct {
	FileID  string `json:"file_id"`
	Deleted bool   `json:"deleted"`
} // @name StoredFileDeleteResponse
