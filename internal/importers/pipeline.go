package importers

import (
	"context"
	"errors"
	"slices"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/koreader-highlights/internal/entities"
	"github.com/mrlokans/koreader-highlights/internal/koreader"
	"github.com/mrlokans/koreader-highlights/internal/luatable"
	"github.com/mrlokans/koreader-highlights/internal/syncer"
	"github.com/mrlokans/koreader-highlights/internal/window"
)

const DefaultWorkers = 4

// Loader reads one sidecar file into a book and its highlights.
//
// Implementations:
//   - koreader.Extractor
type Loader interface {
	Load(fs afero.Fs, path string) (*koreader.Extraction, error)
}

// Syncer persists one book's highlights.
//
// Implementations:
//   - syncer.Engine
type Syncer interface {
	Sync(ctx context.Context, book *entities.Book, highlights []entities.Highlight) syncer.Result
}

var (
	_ Loader = (*koreader.Extractor)(nil)
	_ Syncer = (*syncer.Engine)(nil)
)

// Pipeline handles the per-file workflow:
// read → decode → extract → filter by date → sync.
//
// Files are processed concurrently and independently; a failing file is
// recorded in the report and never stops the others.
type Pipeline struct {
	fs      afero.Fs
	loader  Loader
	syncer  Syncer
	window  window.Window
	workers int
}

// NewPipeline creates a pipeline that keeps highlights captured inside w.
func NewPipeline(fs afero.Fs, loader Loader, s Syncer, w window.Window, workers int) *Pipeline {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Pipeline{fs: fs, loader: loader, syncer: s, window: w, workers: workers}
}

// Run processes every path and returns a report with one entry per path,
// in input order.
func (p *Pipeline) Run(ctx context.Context, paths []string) *Report {
	files := make([]FileReport, len(paths))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, path := range paths {
		g.Go(func() error {
			files[i] = p.processFile(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{Window: p.window}
	for _, f := range files {
		report.add(f)
	}
	return report
}

func (p *Pipeline) processFile(ctx context.Context, path string) FileReport {
	report := FileReport{Path: path}

	extraction, err := p.loader.Load(p.fs, path)
	if err != nil {
		report.Stage = stageOf(err)
		report.Err = err
		return report
	}

	report.Title = extraction.Book.Title
	report.Extracted = len(extraction.Highlights)
	report.Skipped = extraction.Skipped

	selected := slices.Collect(p.window.Filter(extraction.Highlights))
	report.InWindow = len(selected)
	if len(selected) == 0 {
		return report
	}

	report.Result = p.syncer.Sync(ctx, &extraction.Book, selected)
	if report.Result.BookErr != nil {
		report.Stage = StageSync
		report.Err = report.Result.BookErr
	}
	return report
}

func stageOf(err error) Stage {
	var parseErr *luatable.ParseError
	var extractErr *koreader.ExtractError
	switch {
	case errors.As(err, &parseErr):
		return StageDecode
	case errors.As(err, &extractErr):
		return StageExtract
	default:
		return StageRead
	}
}
