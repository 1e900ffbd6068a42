// Package services holds the application workflows that tie discovery,
// the import pipeline and storage together.
//
//	svc := services.NewSyncService(afero.NewOsFs(), booksRepo, runsRepo, services.SyncSettings{
//		BooksPath: cfg.Books.Path,
//		Workers:   cfg.Sync.Workers,
//		MaxDepth:  cfg.Decoder.MaxDepth,
//		Engine:    syncer.Options{Attempts: 3, Backoff: 100 * time.Millisecond, IsTransient: database.IsTransient},
//	})
//	outcome, err := svc.Run(ctx, entities.SyncTriggerManual, cfg.Window)
package services
