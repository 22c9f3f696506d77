package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"cleansync-worker/pkg/models"
)

// Collaborateurs en mémoire pour les tests des runners

type fakeGenerator struct {
	mu           sync.Mutex
	analyzeErr   map[string]error // par nom de fichier
	planErr      error
	analyzeCalls []string
	planCalls    int
}

func (g *fakeGenerator) AnalyzeFloorplan(ctx context.Context, data []byte, filename string, options models.FloorPlanOptions) ([]models.Room, error) {
	g.mu.Lock()
	g.analyzeCalls = append(g.analyzeCalls, filename)
	g.mu.Unlock()

	if err, ok := g.analyzeErr[filename]; ok {
		return nil, err
	}
	area := 10.0
	return []models.Room{{ID: filename, Name: "Rom " + filename, AreaM2: &area}}, nil
}

func (g *fakeGenerator) GeneratePlan(ctx context.Context, rooms []models.Room, templateName, category string) (*models.CleaningPlan, error) {
	g.mu.Lock()
	g.planCalls++
	g.mu.Unlock()

	if g.planErr != nil {
		return nil, g.planErr
	}
	plan := &models.CleaningPlan{TemplateName: templateName}
	for _, room := range rooms {
		plan.Entries = append(plan.Entries, models.CleaningPlanEntry{
			RoomName:    room.Name,
			AreaM2:      room.AreaM2,
			Description: "Vask",
			Frequency:   map[string]bool{"MAN": true},
		})
		if room.AreaM2 != nil {
			plan.TotalAreaM2 += *room.AreaM2
		}
	}
	return plan, nil
}

func (g *fakeGenerator) ConvertPlan(ctx context.Context, rawText string) (*models.CleaningPlan, error) {
	return &models.CleaningPlan{
		Entries: []models.CleaningPlanEntry{{RoomName: "Konvertert", Frequency: map[string]bool{}}},
	}, nil
}

func (g *fakeGenerator) AnalyzeTemplate(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return strings.ReplaceAll(stem, "_", " ")
}

func (g *fakeGenerator) analyzed() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.analyzeCalls...)
}

type fakeBatchGenerator struct {
	mu        sync.Mutex
	err       error
	planCount int // 0: un plan par lot soumis
	calls     int
}

func (g *fakeBatchGenerator) GeneratePlanBatch(ctx context.Context, roomBatches [][]models.Room, templateName, category string) ([]models.CleaningPlan, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if g.err != nil {
		return nil, g.err
	}
	count := g.planCount
	if count == 0 {
		count = len(roomBatches)
	}
	plans := make([]models.CleaningPlan, 0, count)
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("Ukjent %d", i)
		if i < len(roomBatches) && len(roomBatches[i]) > 0 {
			name = roomBatches[i][0].Name
		}
		plans = append(plans, models.CleaningPlan{
			Entries: []models.CleaningPlanEntry{{RoomName: name, Frequency: map[string]bool{"MAN": true}}},
		})
	}
	return plans, nil
}

type fakeBlobStore struct {
	mu         sync.Mutex
	files      map[string][]byte
	resolveErr map[string]error
	storeErr   error
	stored     [][]byte
}

func newFakeBlobStore(fileIDs ...string) *fakeBlobStore {
	files := make(map[string][]byte)
	for _, id := range fileIDs {
		files[id] = []byte("data-" + id)
	}
	return &fakeBlobStore{files: files}
}

func (s *fakeBlobStore) Exists(ctx context.Context, fileID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[fileID]
	return ok, nil
}

func (s *fakeBlobStore) Resolve(ctx context.Context, fileID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.resolveErr[fileID]; ok {
		return nil, err
	}
	data, ok := s.files[fileID]
	if !ok {
		return nil, errors.New("file not found: " + fileID)
	}
	return data, nil
}

func (s *fakeBlobStore) StoreDocx(ctx context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storeErr != nil {
		return "", s.storeErr
	}
	s.stored = append(s.stored, data)
	return fmt.Sprintf("docx/artifact-%d.docx", len(s.stored)), nil
}

type recordedPlan struct {
	Source       string
	Payload      models.JSON
	Plan         *models.CleaningPlan
	DocxID       string
	GenerationMS int64
}

type fakeHistory struct {
	mu      sync.Mutex
	err     error
	records []recordedPlan
}

func (h *fakeHistory) Record(ctx context.Context, source string, payload models.JSON, plan *models.CleaningPlan, docxID string, metadata models.JSON, generationMS int64) (uuid.UUID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.err != nil {
		return uuid.Nil, h.err
	}
	h.records = append(h.records, recordedPlan{
		Source:       source,
		Payload:      payload,
		Plan:         plan,
		DocxID:       docxID,
		GenerationMS: generationMS,
	})
	return uuid.New(), nil
}

func (h *fakeHistory) recorded() []recordedPlan {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]recordedPlan(nil), h.records...)
}

func okRenderer(plan *models.CleaningPlan) ([]byte, error) {
	return []byte("docx-bytes"), nil
}

func startTestPool(t *testing.T) *TaskPool {
	t.Helper()
	pool := NewTaskPool(&PoolConfig{WorkerCount: 2, QueueSize: 8})
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() {
		pool.Stop()
		cancel()
	})
	return pool
}

func waitTerminal[T Record[T]](t *testing.T, get func() (T, error)) T {
	t.Helper()
	var last T
	require.Eventually(t, func() bool {
		record, err := get()
		if err != nil {
			return false
		}
		last = record
		return record.IsTerminal()
	}, 2*time.Second, 5*time.Millisecond, "job never reached a terminal state")
	return last
}
