package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/koreader-highlights/internal/entities"
	"github.com/mrlokans/koreader-highlights/internal/services"
	"github.com/mrlokans/koreader-highlights/internal/window"
)

// SyncRunner performs one sync over a date window.
type SyncRunner interface {
	Run(ctx context.Context, trigger entities.SyncTrigger, w window.Window) (*services.SyncOutcome, error)
}

var _ SyncRunner = (*services.SyncService)(nil)

// SyncRunTask syncs the highlights captured between From and To
// (YYYY-MM-DD, inclusive). The window is fixed when the task is queued.
type SyncRunTask struct {
	From    string               `json:"from"`
	To      string               `json:"to"`
	Trigger entities.SyncTrigger `json:"trigger"`
}

// NewSyncRunTask creates a task for window w.
func NewSyncRunTask(w window.Window, trigger entities.SyncTrigger) SyncRunTask {
	return SyncRunTask{From: w.From.String(), To: w.To.String(), Trigger: trigger}
}

// Window parses the task's date range.
func (t SyncRunTask) Window() (window.Window, error) {
	from, err := window.ParseDate(t.From)
	if err != nil {
		return window.Window{}, err
	}
	to, err := window.ParseDate(t.To)
	if err != nil {
		return window.Window{}, err
	}
	return window.New(from, to)
}

// Config returns the queue configuration for sync runs. A failed run is not
// retried by the queue; the next scheduled run covers it.
func (t SyncRunTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sync_run",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     2 * time.Hour,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SyncRunProcessor creates a processor function for SyncRunTask. Each run
// is bounded by timeout.
func SyncRunProcessor(runner SyncRunner, timeout time.Duration) backlite.QueueProcessor[SyncRunTask] {
	return func(ctx context.Context, task SyncRunTask) error {
		if runner == nil {
			return fmt.Errorf("sync runner not configured")
		}

		w, err := task.Window()
		if err != nil {
			return fmt.Errorf("sync run: %w", err)
		}
		trigger := task.Trigger
		if trigger == "" {
			trigger = entities.SyncTriggerScheduled
		}

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		outcome, err := runner.Run(ctx, trigger, w)
		if errors.Is(err, services.ErrSyncInProgress) {
			log.Printf("[TASK] Sync for %s skipped: another sync is running", w)
			return nil
		}
		if err != nil {
			return fmt.Errorf("sync run %s: %w", w, err)
		}

		log.Printf("[TASK] Sync %s for %s: %d inserted, %d duplicate, %d failed",
			outcome.RunID, w, outcome.Report.Totals.Inserted,
			outcome.Report.Totals.Duplicate, outcome.Report.Totals.Failed)
		return nil
	}
}

// NewSyncRunQueue creates a backlite queue for sync runs.
func NewSyncRunQueue(runner SyncRunner, timeout time.Duration) backlite.Queue {
	return backlite.NewQueue(SyncRunProcessor(runner, timeout))
}
