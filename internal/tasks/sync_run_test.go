package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/koreader-highlights/internal/entities"
	"github.com/mrlokans/koreader-highlights/internal/importers"
	"github.com/mrlokans/koreader-highlights/internal/services"
	"github.com/mrlokans/koreader-highlights/internal/window"
)

type fakeRunner struct {
	calls    chan window.Window
	trigger  entities.SyncTrigger
	err      error
	deadline bool
}

func (f *fakeRunner) Run(ctx context.Context, trigger entities.SyncTrigger, w window.Window) (*services.SyncOutcome, error) {
	f.trigger = trigger
	_, f.deadline = ctx.Deadline()
	if f.calls != nil {
		f.calls <- w
	}
	if f.err != nil {
		return nil, f.err
	}
	return &services.SyncOutcome{RunID: "run-1", Report: &importers.Report{Window: w}}, nil
}

func weekWindow(t *testing.T) window.Window {
	t.Helper()
	w, err := window.New(window.Date{Year: 2026, Month: time.January, Day: 11}, window.Date{Year: 2026, Month: time.January, Day: 17})
	require.NoError(t, err)
	return w
}

func TestSyncRunTask_Window(t *testing.T) {
	task := NewSyncRunTask(weekWindow(t), entities.SyncTriggerScheduled)
	assert.Equal(t, "2026-01-11", task.From)
	assert.Equal(t, "2026-01-17", task.To)

	w, err := task.Window()
	require.NoError(t, err)
	assert.Equal(t, weekWindow(t), w)

	_, err = SyncRunTask{From: "2026-01-17", To: "2026-01-11"}.Window()
	assert.ErrorIs(t, err, window.ErrInvalidRange)

	_, err = SyncRunTask{From: "last week", To: "2026-01-11"}.Window()
	assert.Error(t, err)
}

func TestSyncRunTaskConfig(t *testing.T) {
	cfg := SyncRunTask{}.Config()

	assert.Equal(t, "sync_run", cfg.Name)
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.NotNil(t, cfg.Retention)
}

func TestSyncRunProcessor(t *testing.T) {
	runner := &fakeRunner{calls: make(chan window.Window, 1)}
	process := SyncRunProcessor(runner, time.Minute)

	err := process(context.Background(), NewSyncRunTask(weekWindow(t), entities.SyncTriggerScheduled))
	require.NoError(t, err)

	assert.Equal(t, weekWindow(t), <-runner.calls)
	assert.Equal(t, entities.SyncTriggerScheduled, runner.trigger)
	assert.True(t, runner.deadline, "run is bounded by the task timeout")
}

func TestSyncRunProcessor_DefaultsToScheduledTrigger(t *testing.T) {
	runner := &fakeRunner{}
	err := SyncRunProcessor(runner, 0)(context.Background(), SyncRunTask{From: "2026-01-11", To: "2026-01-17"})
	require.NoError(t, err)
	assert.Equal(t, entities.SyncTriggerScheduled, runner.trigger)
}

func TestSyncRunProcessor_Errors(t *testing.T) {
	task := NewSyncRunTask(weekWindow(t), entities.SyncTriggerManual)

	err := SyncRunProcessor(&fakeRunner{err: services.ErrSyncInProgress}, time.Minute)(context.Background(), task)
	assert.NoError(t, err, "an overlapping run is skipped, not failed")

	err = SyncRunProcessor(&fakeRunner{err: errors.New("books path missing")}, time.Minute)(context.Background(), task)
	assert.ErrorContains(t, err, "books path missing")

	err = SyncRunProcessor(nil, time.Minute)(context.Background(), task)
	assert.Error(t, err)

	err = SyncRunProcessor(&fakeRunner{}, time.Minute)(context.Background(), SyncRunTask{From: "bad", To: "2026-01-17"})
	assert.Error(t, err)
}

func TestSyncRunQueue_EndToEnd(t *testing.T) {
	client, err := NewClient(filepath.Join(t.TempDir(), "highlights.db"), DefaultConfig())
	require.NoError(t, err)
	defer client.Close()

	runner := &fakeRunner{calls: make(chan window.Window, 1)}
	client.Register(NewSyncRunQueue(runner, time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	_, err = client.Enqueue(NewSyncRunTask(weekWindow(t), entities.SyncTriggerScheduled))
	require.NoError(t, err)

	select {
	case w := <-runner.calls:
		assert.Equal(t, weekWindow(t), w)
	case <-time.After(5 * time.Second):
		t.Fatal("sync run was not executed within timeout")
	}
}
