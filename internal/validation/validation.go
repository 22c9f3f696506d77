// Package validation contrôle les fichiers reçus par l'API avant leur
// stockage: extensions, tailles, noms de fichiers.
package validation

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ValidationConfig contient la configuration de validation
type ValidationConfig struct {
	MaxFileSize         int64 // taille max par fichier (bytes)
	MaxTotalSize        int64 // taille max totale (bytes)
	MaxFiles            int
	MaxFilenameLength   int
	FloorplanExtensions map[string]bool // plantegninger
	DocumentExtensions  map[string]bool // templates et plans externes
}

// DefaultValidationConfig retourne une configuration par défaut sécurisée
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		MaxFileSize:       20 * 1024 * 1024, // 20MB par fichier
		MaxTotalSize:      100 * 1024 * 1024,
		MaxFiles:          20,
		MaxFilenameLength: 255,
		FloorplanExtensions: map[string]bool{
			".png":  true,
			".jpg":  true,
			".jpeg": true,
			".webp": true,
			".pdf":  true,
		},
		DocumentExtensions: map[string]bool{
			".txt":  true,
			".md":   true,
			".csv":  true,
			".pdf":  true,
			".docx": true,
		},
	}
}

// ValidationError représente une erreur de validation avec détails
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// ValidationResult contient le résultat de validation
type ValidationResult struct {
	Valid  bool               `json:"valid"`
	Errors []*ValidationError `json:"errors,omitempty"`
}

// AddError ajoute une erreur de validation
func (vr *ValidationResult) AddError(field, value, message, code string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Code:    code,
	})
}

func (vr *ValidationResult) merge(other *ValidationResult) {
	if !other.Valid {
		vr.Valid = false
		vr.Errors = append(vr.Errors, other.Errors...)
	}
}

// UploadValidator valide les uploads de l'API
type UploadValidator struct {
	config *ValidationConfig
}

func NewUploadValidator(config *ValidationConfig) *UploadValidator {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &UploadValidator{config: config}
}

// validateFilename contrôle le nom sans regarder l'extension autorisée
func (v *UploadValidator) validateFilename(filename string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if filename == "" {
		result.AddError("filename", "", "filename is required", "REQUIRED")
		return result
	}

	if len(filename) > v.config.MaxFilenameLength {
		result.AddError("filename", filename,
			fmt.Sprintf("filename too long (max %d characters)", v.config.MaxFilenameLength),
			"TOO_LONG")
	}

	if !utf8.ValidString(filename) {
		result.AddError("filename", filename, "filename must be valid UTF-8", "INVALID_ENCODING")
	}

	forbidden := []string{"..", "/", "\\", ":", "*", "?", "\"", "<", ">", "|", "\x00"}
	for _, char := range forbidden {
		if strings.Contains(filename, char) {
			result.AddError("filename", filename,
				fmt.Sprintf("filename contains forbidden character: %q", char),
				"FORBIDDEN_CHAR")
		}
	}

	if filepath.Ext(filename) == "" {
		result.AddError("filename", filename, "filename must have an extension", "NO_EXTENSION")
	}

	return result
}

func (v *UploadValidator) validateHeader(header *multipart.FileHeader, allowed map[string]bool) *ValidationResult {
	result := &ValidationResult{Valid: true}

	result.merge(v.validateFilename(header.Filename))

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != "" && !allowed[ext] {
		result.AddError("filename", header.Filename,
			fmt.Sprintf("file extension %s not allowed", ext),
			"FORBIDDEN_EXTENSION")
	}

	if header.Size > v.config.MaxFileSize {
		result.AddError("file_size", fmt.Sprintf("%d", header.Size),
			fmt.Sprintf("file too large (max %d bytes)", v.config.MaxFileSize),
			"FILE_TOO_LARGE")
	}
	if header.Size == 0 {
		result.AddError("file_size", "0", "file is empty", "EMPTY_FILE")
	}

	return result
}

func (v *UploadValidator) validateSet(files []*multipart.FileHeader, allowed map[string]bool) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(files) == 0 {
		result.AddError("files", "", "at least one file is required", "REQUIRED")
		return result
	}
	if len(files) > v.config.MaxFiles {
		result.AddError("files", fmt.Sprintf("%d", len(files)),
			fmt.Sprintf("too many files (max %d)", v.config.MaxFiles),
			"TOO_MANY_FILES")
		return result
	}

	var totalSize int64
	for _, header := range files {
		result.merge(v.validateHeader(header, allowed))
		totalSize += header.Size
	}
	if totalSize > v.config.MaxTotalSize {
		result.AddError("files", fmt.Sprintf("%d", totalSize),
			fmt.Sprintf("total upload too large (max %d bytes)", v.config.MaxTotalSize),
			"TOTAL_TOO_LARGE")
	}

	return result
}

// ValidateFloorplans valide un lot de plantegninger
func (v *UploadValidator) ValidateFloorplans(files []*multipart.FileHeader) *ValidationResult {
	return v.validateSet(files, v.config.FloorplanExtensions)
}

// ValidateDocument valide un template ou un plan externe
func (v *UploadValidator) ValidateDocument(header *multipart.FileHeader) *ValidationResult {
	return v.validateHeader(header, v.config.DocumentExtensions)
}

// ValidateDocuments valide un lot de documents texte
func (v *UploadValidator) ValidateDocuments(files []*multipart.FileHeader) *ValidationResult {
	return v.validateSet(files, v.config.DocumentExtensions)
}

var (
	dotRuns       = regexp.MustCompile(`\.\.+`)
	dangerousRuns = regexp.MustCompile(`[\/\\:*?"<>|]+`)
	underscoreRun = regexp.MustCompile(`_+`)
)

// SanitizeFilename neutralise un nom de fichier fourni par le client.
// L'extension est préservée, le reste est normalisé.
func (v *UploadValidator) SanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = dotRuns.ReplaceAllString(base, "_")
	base = dangerousRuns.ReplaceAllString(base, "_")
	base = strings.ReplaceAll(base, ".", "_")
	base = underscoreRun.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_ ")

	if len(ext) < 2 {
		ext = ""
	}
	if base == "" {
		base = "unnamed_file"
	}

	sanitized := base + ext
	if len(sanitized) > 200 {
		maxBase := 200 - len(ext)
		if maxBase > 0 && len(base) > maxBase {
			sanitized = base[:maxBase] + ext
		} else {
			sanitized = sanitized[:200]
		}
	}

	return sanitized
}
