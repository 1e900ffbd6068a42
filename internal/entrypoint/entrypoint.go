package entrypoint

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/mrlokans/koreader-highlights/internal/config"
	"github.com/mrlokans/koreader-highlights/internal/database"
	"github.com/mrlokans/koreader-highlights/internal/database/books"
	"github.com/mrlokans/koreader-highlights/internal/database/runs"
	"github.com/mrlokans/koreader-highlights/internal/scheduler"
	"github.com/mrlokans/koreader-highlights/internal/services"
	"github.com/mrlokans/koreader-highlights/internal/syncer"
	"github.com/mrlokans/koreader-highlights/internal/tasks"
	"github.com/mrlokans/koreader-highlights/internal/window"
)

const shutdownTimeout = 30 * time.Second

// App holds the storage and services every command works with.
type App struct {
	DB    *database.Database
	Books *books.Repository
	Runs  *runs.Repository
	Sync  *services.SyncService
}

// NewApp opens the database and wires the sync service from cfg.
func NewApp(cfg *config.Config) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path, database.WithSQLLogging(cfg.Database.LogSQL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	booksRepo := books.NewRepository(db.DB)
	runsRepo := runs.NewRepository(db.DB)

	syncService := services.NewSyncService(afero.NewOsFs(), booksRepo, runsRepo, services.SyncSettings{
		BooksPath: cfg.Books.Path,
		Workers:   cfg.Sync.Workers,
		MaxDepth:  cfg.Decoder.MaxDepth,
		Location:  time.Local,
		Engine: syncer.Options{
			Attempts:    cfg.Sync.RetryAttempts,
			Backoff:     cfg.Sync.RetryBackoff,
			IsTransient: database.IsTransient,
		},
	})

	return &App{
		DB:    db,
		Books: booksRepo,
		Runs:  runsRepo,
		Sync:  syncService,
	}, nil
}

func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

// RunScheduler queues sync runs on cfg's cron schedule and processes them
// until SIGINT or SIGTERM. With runNow a run is queued at start as well.
func RunScheduler(cfg *config.Config, version string, runNow bool) error {
	log.Printf("Starting koreader-highlights scheduler v%s", version)

	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	taskClient, err := tasks.NewClient(cfg.Database.Path, tasks.Config{
		Workers:         cfg.Tasks.Workers,
		TaskTimeout:     cfg.Tasks.Timeout,
		ReleaseAfter:    cfg.Tasks.ReleaseAfter,
		CleanupInterval: cfg.Tasks.CleanupInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize task queue: %w", err)
	}
	defer func() {
		if err := taskClient.Close(); err != nil {
			log.Printf("Error closing task client: %v", err)
		}
	}()

	taskClient.Register(tasks.NewSyncRunQueue(app.Sync, cfg.Tasks.Timeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go taskClient.Start(ctx)

	// Scheduled runs resolve the configured date selectors against the
	// day they fire on.
	syncScheduler := scheduler.NewSyncScheduler(taskClient, cfg.Schedule.Spec, func(today window.Date) (window.Window, error) {
		return config.ResolveWindow(cfg.Dates, today)
	})
	if err := syncScheduler.Start(ctx); err != nil {
		return err
	}

	if runNow {
		if _, err := syncScheduler.RunNow(); err != nil {
			log.Printf("[SCHEDULER] Initial run not queued: %v", err)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutting down, waiting up to %v for a running sync", shutdownTimeout)

	syncScheduler.Stop()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	taskClient.Stop(stopCtx)

	log.Println("Scheduler exiting")
	return nil
}
