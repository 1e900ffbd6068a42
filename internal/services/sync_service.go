package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/afero"

	"github.com/mrlokans/koreader-highlights/internal/database/runs"
	"github.com/mrlokans/koreader-highlights/internal/entities"
	"github.com/mrlokans/koreader-highlights/internal/importers"
	"github.com/mrlokans/koreader-highlights/internal/koreader"
	"github.com/mrlokans/koreader-highlights/internal/syncer"
	"github.com/mrlokans/koreader-highlights/internal/window"
)

var ErrSyncInProgress = errors.New("a sync is already running")

// RunRecorder keeps the history of sync runs.
// Use this interface when you need to track a run from start to finish.
type RunRecorder interface {
	IsRunning(ctx context.Context) (bool, error)
	Start(ctx context.Context, trigger entities.SyncTrigger, booksPath, from, to string) (*entities.SyncRun, error)
	Complete(ctx context.Context, runID string, totals runs.Totals, runErr error) error
}

var _ RunRecorder = (*runs.Repository)(nil)

// SyncSettings are the knobs of a sync run.
type SyncSettings struct {
	BooksPath string
	Workers   int
	MaxDepth  int
	// Location is the device clock used for epoch timestamps.
	Location *time.Location
	Engine   syncer.Options
}

// SyncOutcome is what a finished run reports back.
type SyncOutcome struct {
	RunID    string
	Report   *importers.Report
	Files    int
	Duration time.Duration
}

// SyncService discovers sidecar files, runs them through the import
// pipeline and records the run.
type SyncService struct {
	fs       afero.Fs
	store    syncer.Store
	recorder RunRecorder
	settings SyncSettings
}

// NewSyncService creates a new SyncService.
func NewSyncService(fs afero.Fs, store syncer.Store, recorder RunRecorder, settings SyncSettings) *SyncService {
	if settings.Location == nil {
		settings.Location = time.Local
	}
	return &SyncService{
		fs:       fs,
		store:    store,
		recorder: recorder,
		settings: settings,
	}
}

// BooksPath returns the library root the service scans.
func (s *SyncService) BooksPath() string {
	return s.settings.BooksPath
}

// Run syncs every highlight captured inside w. Per-file problems end up in
// the report; the returned error is set only when the run itself could not
// proceed.
func (s *SyncService) Run(ctx context.Context, trigger entities.SyncTrigger, w window.Window) (*SyncOutcome, error) {
	running, err := s.recorder.IsRunning(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check sync status: %w", err)
	}
	if running {
		return nil, ErrSyncInProgress
	}

	run, err := s.recorder.Start(ctx, trigger, s.settings.BooksPath, w.From.String(), w.To.String())
	if err != nil {
		return nil, fmt.Errorf("failed to record sync start: %w", err)
	}
	log.Printf("[SYNC] Run %s started (%s) for %s, window %s", run.RunID, trigger, s.settings.BooksPath, w)

	startTime := time.Now()
	outcome := &SyncOutcome{RunID: run.RunID}

	paths, err := koreader.Discover(s.fs, s.settings.BooksPath)
	if err != nil {
		log.Printf("[SYNC] Run %s failed: %v", run.RunID, err)
		s.complete(run.RunID, runs.Totals{}, err)
		return outcome, err
	}
	outcome.Files = len(paths)
	log.Printf("[SYNC] Found %d metadata files", len(paths))

	extractor := koreader.NewExtractor(
		koreader.WithLocation(s.settings.Location),
		koreader.WithMaxDepth(s.settings.MaxDepth),
	)
	engine := syncer.NewEngine(s.store, s.settings.Engine)
	pipeline := importers.NewPipeline(s.fs, extractor, engine, w, s.settings.Workers)

	report := pipeline.Run(ctx, paths)
	outcome.Report = report
	outcome.Duration = time.Since(startTime)

	for _, f := range report.Files {
		if f.Err != nil {
			log.Printf("[SYNC] %s: %s failed: %v", f.Path, f.Stage, f.Err)
		}
	}

	s.complete(run.RunID, runs.Totals{
		FilesTotal:  len(report.Files),
		FilesFailed: report.FilesFailed,
		Inserted:    report.Totals.Inserted,
		Duplicate:   report.Totals.Duplicate,
		Failed:      report.Totals.Failed,
		Errors:      report.Errors(),
	}, nil)

	log.Printf("[SYNC] Run %s completed in %v: %d inserted, %d duplicate, %d failed, %d/%d files failed",
		run.RunID, outcome.Duration.Round(time.Millisecond),
		report.Totals.Inserted, report.Totals.Duplicate, report.Totals.Failed,
		report.FilesFailed, len(report.Files))

	return outcome, nil
}

// complete records the end of a run. It uses a fresh context so that a
// cancelled run is still closed out.
func (s *SyncService) complete(runID string, totals runs.Totals, runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.recorder.Complete(ctx, runID, totals, runErr); err != nil {
		log.Printf("[SYNC] Failed to record completion of run %s: %v", runID, err)
	}
}
