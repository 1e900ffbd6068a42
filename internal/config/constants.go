package config

import "time"

// Defaults used when neither a flag nor the environment sets a value.
const (
	// DefaultBooksPath is where the e-reader's library is mounted
	DefaultBooksPath = "/Volumes/Kindle/livros"

	// DefaultDatabasePath is the default path for the highlights database
	DefaultDatabasePath = "./highlights.db"

	DefaultEnvFile = ".env"

	DefaultSyncWorkers      = 4
	DefaultRetryAttempts    = 3
	DefaultRetryBackoff     = 100 * time.Millisecond
	DefaultDecoderMaxDepth  = 500
	DefaultSyncSchedule     = "0 6 * * 1" // Mondays at 06:00
	DefaultTaskWorkers      = 1
	DefaultTaskTimeout      = 30 * time.Minute
	DefaultTaskReleaseAfter = time.Hour
	DefaultTaskCleanup      = time.Hour
)
