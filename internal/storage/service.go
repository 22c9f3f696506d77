package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"cleansync-worker/pkg/storage"
)

// Catégories de fichiers gérées par le service
const (
	CategoryFloorplans = "floorplans"
	CategoryTemplates  = "templates"
	CategoryPlans      = "plans"
	CategoryDocx       = "docx"
)

var validCategories = map[string]bool{
	CategoryFloorplans: true,
	CategoryTemplates:  true,
	CategoryPlans:      true,
	CategoryDocx:       true,
}

// StorageService adresse les fichiers par identifiant opaque
// "categorie/uuid.ext". L'identifiant est la seule monnaie d'échange entre
// l'API, les runners et le backend de stockage.
type StorageService struct {
	storage storage.Storage
}

func NewStorageService(backend storage.Storage) *StorageService {
	return &StorageService{storage: backend}
}

// SaveUpload stocke un fichier reçu et retourne son identifiant
func (s *StorageService) SaveUpload(ctx context.Context, category, filename string, data io.Reader) (string, error) {
	if !validCategories[category] {
		return "", fmt.Errorf("unknown storage category: %s", category)
	}

	ext := strings.ToLower(path.Ext(filename))
	fileID := fmt.Sprintf("%s/%s%s", category, uuid.NewString(), ext)

	if err := s.storage.Upload(ctx, fileID, data); err != nil {
		return "", fmt.Errorf("failed to store upload %s: %w", filename, err)
	}

	return fileID, nil
}

// Resolve charge le contenu du fichier identifié
func (s *StorageService) Resolve(ctx context.Context, fileID string) ([]byte, error) {
	if err := validateFileID(fileID); err != nil {
		return nil, err
	}

	reader, err := s.storage.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	return data, nil
}

// Exists vérifie que l'identifiant référence un fichier stocké
func (s *StorageService) Exists(ctx context.Context, fileID string) (bool, error) {
	if err := validateFileID(fileID); err != nil {
		return false, err
	}
	return s.storage.Exists(ctx, fileID)
}

// StoreDocx stocke un artefact docx généré et retourne son identifiant
func (s *StorageService) StoreDocx(ctx context.Context, data []byte) (string, error) {
	fileID := fmt.Sprintf("%s/%s.docx", CategoryDocx, uuid.NewString())
	if err := s.storage.Upload(ctx, fileID, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to store docx: %w", err)
	}
	return fileID, nil
}

// Delete supprime le fichier identifié
func (s *StorageService) Delete(ctx context.Context, fileID string) error {
	if err := validateFileID(fileID); err != nil {
		return err
	}
	return s.storage.Delete(ctx, fileID)
}

// ListCategory liste les identifiants d'une catégorie
func (s *StorageService) ListCategory(ctx context.Context, category string) ([]string, error) {
	if !validCategories[category] {
		return nil, fmt.Errorf("unknown storage category: %s", category)
	}
	return s.storage.List(ctx, category+"/")
}

// validateFileID refuse tout identifiant hors des catégories connues ou
// contenant un segment de traversée
func validateFileID(fileID string) error {
	if fileID == "" {
		return fmt.Errorf("file id is required")
	}
	if strings.Contains(fileID, "..") || strings.HasPrefix(fileID, "/") {
		return fmt.Errorf("invalid file id: %s", fileID)
	}
	category, _, found := strings.Cut(fileID, "/")
	if !found || !validCategories[category] {
		return fmt.Errorf("invalid file id: %s", fileID)
	}
	return nil
}
