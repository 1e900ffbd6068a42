package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/koreader-highlights/internal/database/books"
	"github.com/mrlokans/koreader-highlights/internal/database/runs"
	"github.com/mrlokans/koreader-highlights/internal/importers"
	"github.com/mrlokans/koreader-highlights/internal/koreader"
	"github.com/mrlokans/koreader-highlights/internal/scheduler"
	"github.com/mrlokans/koreader-highlights/internal/services"
	"github.com/mrlokans/koreader-highlights/internal/syncer"
	"github.com/mrlokans/koreader-highlights/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// Store implementations
var _ syncer.Store = (*books.Repository)(nil)

// RunRecorder implementations
var _ services.RunRecorder = (*runs.Repository)(nil)

// =============================================================================
// Import Pipeline
// =============================================================================

var _ importers.Loader = (*koreader.Extractor)(nil)
var _ importers.Syncer = (*syncer.Engine)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.SyncRunner = (*services.SyncService)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
