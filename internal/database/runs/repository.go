// Package runs provides database operations for sync run history.
//
// # Interface Implementation
//
//	var _ services.RunRecorder = (*Repository)(nil)
//
// # Usage
//
//	repo := runs.NewRepository(db)
//	run, err := repo.Start(ctx, entities.SyncTriggerManual, "/books", "2026-01-11", "2026-01-17")
package runs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/koreader-highlights/internal/entities"
)

// StaleAfter is how long a run may stay in the running state before it is
// assumed to have been interrupted.
const StaleAfter = 30 * time.Minute

// Totals are the counters recorded when a run finishes.
type Totals struct {
	FilesTotal  int
	FilesFailed int
	Inserted    int
	Duplicate   int
	Failed      int
	Errors      []string
}

// Repository handles all sync run database operations.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a new runs repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Start records a new running sync and returns it with its RunID set.
func (r *Repository) Start(ctx context.Context, trigger entities.SyncTrigger, booksPath, from, to string) (*entities.SyncRun, error) {
	run := &entities.SyncRun{
		RunID:      uuid.NewString(),
		Trigger:    trigger,
		Status:     entities.SyncStatusRunning,
		BooksPath:  booksPath,
		WindowFrom: from,
		WindowTo:   to,
		StartedAt:  r.now(),
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// Complete marks a run as finished and stores its totals. A run with a
// fatal error is recorded as failed.
func (r *Repository) Complete(ctx context.Context, runID string, totals Totals, runErr error) error {
	status := entities.SyncStatusCompleted
	errs := totals.Errors
	if runErr != nil {
		status = entities.SyncStatusFailed
		errs = append(errs, runErr.Error())
	}

	updates := map[string]any{
		"status":       status,
		"files_total":  totals.FilesTotal,
		"files_failed": totals.FilesFailed,
		"inserted":     totals.Inserted,
		"duplicate":    totals.Duplicate,
		"failed":       totals.Failed,
		"completed_at": r.now(),
	}
	if len(errs) > 0 {
		encoded, err := json.Marshal(errs)
		if err != nil {
			return err
		}
		updates["errors"] = string(encoded)
	}

	return r.db.WithContext(ctx).Model(&entities.SyncRun{}).
		Where("run_id = ?", runID).
		Updates(updates).Error
}

// Get retrieves a run by its RunID.
func (r *Repository) Get(ctx context.Context, runID string) (*entities.SyncRun, error) {
	var run entities.SyncRun
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns the most recent runs, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]entities.SyncRun, error) {
	var runs []entities.SyncRun
	query := r.db.WithContext(ctx).Order("started_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&runs).Error
	return runs, err
}

// IsRunning checks if a sync is currently in progress.
// Runs older than StaleAfter are marked failed and do not count.
func (r *Repository) IsRunning(ctx context.Context) (bool, error) {
	var active []entities.SyncRun
	err := r.db.WithContext(ctx).
		Where("status = ?", entities.SyncStatusRunning).
		Find(&active).Error
	if err != nil {
		return false, err
	}

	staleThreshold := r.now().Add(-StaleAfter)
	running := false
	for _, run := range active {
		if run.StartedAt.Before(staleThreshold) {
			_ = r.Complete(ctx, run.RunID, Totals{}, errors.New("sync was interrupted"))
			continue
		}
		running = true
	}
	return running, nil
}

// DecodeErrors returns the error messages stored on a run.
func DecodeErrors(run *entities.SyncRun) []string {
	if run.Errors == "" {
		return nil
	}
	var errs []string
	if err := json.Unmarshal([]byte(run.Errors), &errs); err != nil {
		return []string{run.Errors}
	}
	return errs
}
