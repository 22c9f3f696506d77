package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleansync-worker/internal/gemini"
	"cleansync-worker/pkg/models"
)

func newTestBatchRunner(t *testing.T, generator *fakeGenerator, batch BatchGenerator, blobs *fakeBlobStore, history *fakeHistory) *BatchRunner {
	t.Helper()
	return NewBatchRunner(generator, batch, blobs, history, startTestPool(t))
}

func TestStartBatch_NoFiles(t *testing.T) {
	runner := newTestBatchRunner(t, &fakeGenerator{}, nil, newFakeBlobStore(), &fakeHistory{})

	_, err := runner.StartBatch(context.Background(), &models.BatchRunRequest{})
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestStartBatch_UnknownFile(t *testing.T) {
	runner := newTestBatchRunner(t, &fakeGenerator{}, nil, newFakeBlobStore("a.png"), &fakeHistory{})

	_, err := runner.StartBatch(context.Background(), &models.BatchRunRequest{
		FileIDs: []string{"a.png", "nope.png"},
	})
	assert.ErrorIs(t, err, ErrUnknownFile)
}

func TestStartBatch_UnknownCategory(t *testing.T) {
	runner := newTestBatchRunner(t, &fakeGenerator{}, nil, newFakeBlobStore("a.png"), &fakeHistory{})

	_, err := runner.StartBatch(context.Background(), &models.BatchRunRequest{
		FileIDs: []string{"a.png"},
		Options: models.FloorPlanOptions{PlanCategory: "verksted"},
	})
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestStartBatch_BatchAPIUnavailable(t *testing.T) {
	// erreur de configuration: levée de façon synchrone, avant validation des fichiers
	runner := newTestBatchRunner(t, &fakeGenerator{}, nil, newFakeBlobStore("a.png"), &fakeHistory{})

	_, err := runner.StartBatch(context.Background(), &models.BatchRunRequest{
		FileIDs:     []string{"a.png"},
		UseBatchAPI: true,
	})
	assert.ErrorIs(t, err, ErrBatchAPIUnavailable)
}

func TestRunBatch_PerItemSuccess(t *testing.T) {
	generator := &fakeGenerator{}
	history := &fakeHistory{}
	runner := newTestBatchRunner(t, generator, nil, newFakeBlobStore("a.png", "b.png", "c.png"), history)

	job, err := runner.StartBatch(context.Background(), &models.BatchRunRequest{
		FileIDs: []string{"a.png", "b.png", "c.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, job.TotalFiles)

	final := waitTerminal(t, func() (*models.BatchJob, error) { return runner.GetStatus(job.ID) })
	require.Equal(t, models.StatusSucceeded, final.Status)
	assert.Equal(t, 3, final.ProcessedFiles)

	plans, err := runner.GetResults(job.ID)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, "Rom a.png", plans[0].Entries[0].RoomName)
	assert.Equal(t, "Rom c.png", plans[2].Entries[0].RoomName)

	// un record d'historique par item, dans l'ordre de traitement
	records := history.recorded()
	require.Len(t, records, 3)
	for i, fileID := range []string{"a.png", "b.png", "c.png"} {
		assert.Equal(t, "batch", records[i].Source)
		assert.Equal(t, fileID, records[i].Payload["file_id"])
		assert.Equal(t, job.ID, records[i].Payload["job_id"])
	}
}

func TestRunBatch_PerItemHaltsOnFirstFailure(t *testing.T) {
	generator := &fakeGenerator{
		analyzeErr: map[string]error{
			"b.png": &gemini.ServiceError{
				Message:   "invalid image",
				Source:    gemini.SourceProvider,
				Reason:    "INVALID_ARGUMENT",
				Retryable: false,
			},
		},
	}
	history := &fakeHistory{}
	runner := newTestBatchRunner(t, generator, nil, newFakeBlobStore("a.png", "b.png", "c.png"), history)

	job, err := runner.StartBatch(context.Background(), &models.BatchRunRequest{
		FileIDs: []string{"a.png", "b.png", "c.png"},
	})
	require.NoError(t, err)

	final := waitTerminal(t, func() (*models.BatchJob, error) { return runner.GetStatus(job.ID) })
	require.Equal(t, models.StatusFailed, final.Status)
	// la progression reflète les items déjà réussis, sans rollback
	assert.Equal(t, 1, final.ProcessedFiles)
	require.NotNil(t, final.Detail)
	assert.Equal(t, "INVALID_ARGUMENT", final.Detail.Reason)

	// le record du premier item reste écrit, rien pour les suivants
	records := history.recorded()
	require.Len(t, records, 1)
	assert.Equal(t, "a.png", records[0].Payload["file_id"])

	plans, err := runner.GetResults(job.ID)
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	// le troisième fichier n'est jamais analysé
	assert.NotContains(t, generator.analyzed(), "c.png")
}

func TestRunBatch_BulkSuccess(t *testing.T) {
	generator := &fakeGenerator{}
	batch := &fakeBatchGenerator{}
	history := &fakeHistory{}
	runner := newTestBatchRunner(t, generator, batch, newFakeBlobStore("a.png", "b.png"), history)

	job, err := runner.StartBatch(context.Background(), &models.BatchRunRequest{
		FileIDs:     []string{"a.png", "b.png"},
		UseBatchAPI: true,
	})
	require.NoError(t, err)

	final := waitTerminal(t, func() (*models.BatchJob, error) { return runner.GetStatus(job.ID) })
	require.Equal(t, models.StatusSucceeded, final.Status)
	assert.Equal(t, 2, final.ProcessedFiles)

	// une seule soumission groupée, pas de génération unitaire
	assert.Equal(t, 1, batch.calls)
	assert.Equal(t, 0, generator.planCalls)

	plans, err := runner.GetResults(job.ID)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "Rom a.png", plans[0].Entries[0].RoomName)
	assert.Equal(t, "Rom b.png", plans[1].Entries[0].RoomName)

	records := history.recorded()
	require.Len(t, records, 2)
	assert.Equal(t, records[0].GenerationMS, records[1].GenerationMS)
}

func TestRunBatch_BulkCountMismatch(t *testing.T) {
	batch := &fakeBatchGenerator{planCount: 1}
	history := &fakeHistory{}
	runner := newTestBatchRunner(t, &fakeGenerator{}, batch, newFakeBlobStore("a.png", "b.png"), history)

	job, err := runner.StartBatch(context.Background(), &models.BatchRunRequest{
		FileIDs:     []string{"a.png", "b.png"},
		UseBatchAPI: true,
	})
	require.NoError(t, err)

	final := waitTerminal(t, func() (*models.BatchJob, error) { return runner.GetStatus(job.ID) })
	require.Equal(t, models.StatusFailed, final.Status)
	require.NotNil(t, final.Detail)
	assert.Equal(t, "batch_count_mismatch", final.Detail.Reason)
	assert.Equal(t, 0, final.ProcessedFiles)

	// incohérence: aucun record d'historique, aucun résultat exposé
	assert.Empty(t, history.recorded())
	plans, err := runner.GetResults(job.ID)
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestRunBatch_BulkProviderFailure(t *testing.T) {
	batch := &fakeBatchGenerator{err: &gemini.ServiceError{
		Message:    "overloaded",
		Source:     gemini.SourceProvider,
		StatusCode: 503,
		Reason:     "UNAVAILABLE",
		Retryable:  true,
	}}
	history := &fakeHistory{}
	runner := newTestBatchRunner(t, &fakeGenerator{}, batch, newFakeBlobStore("a.png"), history)

	job, err := runner.StartBatch(context.Background(), &models.BatchRunRequest{
		FileIDs:     []string{"a.png"},
		UseBatchAPI: true,
	})
	require.NoError(t, err)

	final := waitTerminal(t, func() (*models.BatchJob, error) { return runner.GetStatus(job.ID) })
	require.Equal(t, models.StatusFailed, final.Status)
	require.NotNil(t, final.Detail)
	assert.Equal(t, 503, final.Detail.StatusCode)
	assert.True(t, final.Detail.Retryable)
	assert.Empty(t, history.recorded())
}

func TestRunBatch_HistoryFailureHalts(t *testing.T) {
	history := &fakeHistory{err: errors.New("database gone")}
	runner := newTestBatchRunner(t, &fakeGenerator{}, nil, newFakeBlobStore("a.png", "b.png"), history)

	job, err := runner.StartBatch(context.Background(), &models.BatchRunRequest{
		FileIDs: []string{"a.png", "b.png"},
	})
	require.NoError(t, err)

	final := waitTerminal(t, func() (*models.BatchJob, error) { return runner.GetStatus(job.ID) })
	require.Equal(t, models.StatusFailed, final.Status)
	assert.Equal(t, 0, final.ProcessedFiles)
	require.NotNil(t, final.Detail)
	assert.Equal(t, "history", final.Detail.Source)
}

func TestBatchGetResults_Unknown(t *testing.T) {
	runner := newTestBatchRunner(t, &fakeGenerator{}, nil, newFakeBlobStore(), &fakeHistory{})
	_, err := runner.GetResults("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestBatchPruneTerminal(t *testing.T) {
	runner := newTestBatchRunner(t, &fakeGenerator{}, nil, newFakeBlobStore("a.png"), &fakeHistory{})

	job, err := runner.StartBatch(context.Background(), &models.BatchRunRequest{FileIDs: []string{"a.png"}})
	require.NoError(t, err)
	waitTerminal(t, func() (*models.BatchJob, error) { return runner.GetStatus(job.ID) })

	pruned := runner.PruneTerminal(time.Now().Add(time.Hour))
	assert.Equal(t, 1, pruned)
	_, err = runner.GetStatus(job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = runner.GetResults(job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}
