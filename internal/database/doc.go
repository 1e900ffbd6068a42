// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, error classification
//	├── books/           # Book upserts, highlight inserts and queries
//	└── runs/            # Sync run history
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./highlights.db")
//
//	booksRepo := books.NewRepository(db.DB)
//	runsRepo := runs.NewRepository(db.DB)
//
//	inserted, err := booksRepo.InsertHighlight(ctx, &highlight)
//	recent, err := runsRepo.List(ctx, 10)
//
// # Interface Implementations
//
//   - books.Repository: implements syncer.Store
//   - runs.Repository: implements services.RunRecorder
//
// # Concurrency
//
// The database is opened in WAL mode with a busy timeout. Highlights carry
// a UNIQUE index over their natural key and are inserted with
// ON CONFLICT DO NOTHING, so concurrent inserts of the same highlight store
// exactly one row. Errors that remain after the busy timeout are classified
// by IsTransient for the sync engine's retry loop.
package database
