// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Storage Interfaces
//
//   - syncer.Store: Book upsert and highlight insert by natural key (internal/syncer/engine.go)
//   - services.RunRecorder: Sync run history (internal/services/sync_service.go)
//
// ## Pipeline Interfaces
//
//   - importers.Loader: Read, decode and extract one sidecar file (internal/importers/pipeline.go)
//   - importers.Syncer: Persist one book's highlights (internal/importers/pipeline.go)
//
// ## Background Work Interfaces
//
//   - tasks.SyncRunner: Run one sync over a window (internal/tasks/sync_run.go)
//   - scheduler.Enqueuer: Queue a task (internal/scheduler/sync_scheduler.go)
//
// # Adding a New Sidecar Schema
//
// KOReader has changed its metadata layout over time. To accept another one:
//
//  1. Add the candidate keys to internal/koreader/schema.go
//
//  2. Teach collectEntries in internal/koreader/extractor.go where the
//     highlight list lives, keeping entries in source order
//
//  3. Add a sample file to the extractor tests
//
// # Adding a New Storage Backend
//
// To store highlights somewhere other than SQLite:
//
//  1. Implement syncer.Store. InsertHighlight must report false, not an
//     error, when the natural key is already stored, and must be safe for
//     concurrent use.
//
//  2. Add compile-time check:
//
//     var _ syncer.Store = (*Repository)(nil)
//
//  3. Pass it to services.NewSyncService in entrypoint.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
