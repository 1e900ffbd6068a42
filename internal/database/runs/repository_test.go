package runs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/koreader-highlights/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.SyncRun{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return NewRepository(db)
}

func TestRepository_Start(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	run, err := repo.Start(ctx, entities.SyncTriggerManual, "/books", "2026-01-11", "2026-01-17")
	require.NoError(t, err)
	assert.Len(t, run.RunID, 36)
	assert.Equal(t, entities.SyncStatusRunning, run.Status)

	stored, err := repo.Get(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, "/books", stored.BooksPath)
	assert.Equal(t, "2026-01-11", stored.WindowFrom)
	assert.Equal(t, "2026-01-17", stored.WindowTo)
	assert.Nil(t, stored.CompletedAt)
}

func TestRepository_Complete_Success(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	run, err := repo.Start(ctx, entities.SyncTriggerScheduled, "/books", "2026-01-11", "2026-01-17")
	require.NoError(t, err)

	err = repo.Complete(ctx, run.RunID, Totals{
		FilesTotal:  3,
		FilesFailed: 1,
		Inserted:    10,
		Duplicate:   4,
		Failed:      1,
		Errors:      []string{"/books/B.sdr/metadata.epub.lua: line 3, column 1 (offset 40): unterminated string literal"},
	}, nil)
	require.NoError(t, err)

	stored, err := repo.Get(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, entities.SyncStatusCompleted, stored.Status)
	assert.Equal(t, 3, stored.FilesTotal)
	assert.Equal(t, 1, stored.FilesFailed)
	assert.Equal(t, 10, stored.Inserted)
	assert.Equal(t, 4, stored.Duplicate)
	assert.Equal(t, 1, stored.Failed)
	assert.NotNil(t, stored.CompletedAt)
	assert.Len(t, DecodeErrors(stored), 1)
}

func TestRepository_Complete_Failure(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	run, err := repo.Start(ctx, entities.SyncTriggerManual, "/missing", "2026-01-11", "2026-01-17")
	require.NoError(t, err)

	err = repo.Complete(ctx, run.RunID, Totals{}, errors.New("books directory /missing: file does not exist"))
	require.NoError(t, err)

	stored, err := repo.Get(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, entities.SyncStatusFailed, stored.Status)
	assert.Equal(t, []string{"books directory /missing: file does not exist"}, DecodeErrors(stored))
}

func TestRepository_List(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 3 {
		repo.now = func() time.Time { return base.AddDate(0, 0, 7*i) }
		run, err := repo.Start(ctx, entities.SyncTriggerScheduled, "/books", "", "")
		require.NoError(t, err)
		ids = append(ids, run.RunID)
	}

	recent, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[2], recent[0].RunID)
	assert.Equal(t, ids[1], recent[1].RunID)
}

func TestRepository_IsRunning(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	running, err := repo.IsRunning(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	run, err := repo.Start(ctx, entities.SyncTriggerManual, "/books", "", "")
	require.NoError(t, err)

	running, err = repo.IsRunning(ctx)
	require.NoError(t, err)
	assert.True(t, running)

	require.NoError(t, repo.Complete(ctx, run.RunID, Totals{}, nil))

	running, err = repo.IsRunning(ctx)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestRepository_IsRunning_StaleRun(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	run, err := repo.Start(ctx, entities.SyncTriggerScheduled, "/books", "", "")
	require.NoError(t, err)

	// Simulate a run that started long ago and never finished
	repo.db.Model(&entities.SyncRun{}).
		Where("run_id = ?", run.RunID).
		Update("started_at", time.Now().Add(-2*StaleAfter))

	running, err := repo.IsRunning(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	stored, err := repo.Get(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, entities.SyncStatusFailed, stored.Status)
	assert.Equal(t, []string{"sync was interrupted"}, DecodeErrors(stored))
}
