package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mrlokans/koreader-highlights/internal/scheduler"
	"github.com/mrlokans/koreader-highlights/internal/window"
)

type (
	Config struct {
		Books
		Database
		Sync
		Decoder
		Schedule
		Tasks

		// Window is the resolved date range of a one-off sync. Scheduled
		// runs resolve their own window at fire time.
		Window window.Window
		Dates  DateFlags
	}

	Books struct {
		Path string
	}
	Database struct {
		Path   string
		LogSQL bool
	}
	Sync struct {
		Workers       int
		RetryAttempts int
		RetryBackoff  time.Duration
	}
	Decoder struct {
		MaxDepth int
	}
	Schedule struct {
		Spec string // Cron format: "0 6 * * 1" = Mondays at 06:00
	}
	Tasks struct {
		Workers         int
		Timeout         time.Duration
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
)

// Flags are the values given explicitly on the command line. Empty strings
// and nil pointers mean "not given".
type Flags struct {
	BooksPath    string
	DatabasePath string
	EnvFile      string
	Schedule     string
	Workers      *int
	DateFlags
}

// Load builds the configuration. Precedence, highest first: flags, process
// environment, env file, defaults. The date window is resolved against today.
func Load(flags Flags, today window.Date) (*Config, error) {
	if err := loadEnvFile(flags.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("books_path", DefaultBooksPath)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("log_sql", false)
	v.SetDefault("sync_workers", DefaultSyncWorkers)
	v.SetDefault("sync_retry_attempts", DefaultRetryAttempts)
	v.SetDefault("sync_retry_backoff", DefaultRetryBackoff)
	v.SetDefault("decoder_max_depth", DefaultDecoderMaxDepth)
	v.SetDefault("sync_schedule", DefaultSyncSchedule)
	v.SetDefault("task_workers", DefaultTaskWorkers)
	v.SetDefault("task_timeout", DefaultTaskTimeout)
	v.SetDefault("task_release_after", DefaultTaskReleaseAfter)
	v.SetDefault("task_cleanup_interval", DefaultTaskCleanup)

	if flags.BooksPath != "" {
		v.Set("books_path", flags.BooksPath)
	}
	if flags.DatabasePath != "" {
		v.Set("database_path", flags.DatabasePath)
	}
	if flags.Schedule != "" {
		v.Set("sync_schedule", flags.Schedule)
	}
	if flags.Workers != nil {
		v.Set("sync_workers", *flags.Workers)
	}

	dates, err := dateFlags(v, flags.DateFlags)
	if err != nil {
		return nil, err
	}
	w, err := ResolveWindow(dates, today)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Books: Books{
			Path: v.GetString("BOOKS_PATH"),
		},
		Database: Database{
			Path:   v.GetString("DATABASE_PATH"),
			LogSQL: v.GetBool("LOG_SQL"),
		},
		Sync: Sync{
			Workers:       v.GetInt("SYNC_WORKERS"),
			RetryAttempts: v.GetInt("SYNC_RETRY_ATTEMPTS"),
			RetryBackoff:  v.GetDuration("SYNC_RETRY_BACKOFF"),
		},
		Decoder: Decoder{
			MaxDepth: v.GetInt("DECODER_MAX_DEPTH"),
		},
		Schedule: Schedule{
			Spec: v.GetString("SYNC_SCHEDULE"),
		},
		Tasks: Tasks{
			Workers:         v.GetInt("TASK_WORKERS"),
			Timeout:         v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Window: w,
		Dates:  dates,
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// dateFlags fills the date selectors not given as flags from FROM, TO and
// LAST. The flag set wins as a whole so that --last on the command line is
// not combined with a FROM left in the environment.
func dateFlags(v *viper.Viper, f DateFlags) (DateFlags, error) {
	if f.From != "" || f.To != "" || f.Last != nil {
		return f, nil
	}
	out := DateFlags{From: v.GetString("FROM"), To: v.GetString("TO")}
	if raw := v.GetString("LAST"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return DateFlags{}, fmt.Errorf("LAST must be a number of days, got %q", raw)
		}
		out.Last = &n
	}
	return out, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	// godotenv never overrides variables already set in the process.
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate checks every section of the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Books,
		validation.Field(&c.Books.Path, validation.Required),
	); err != nil {
		return fmt.Errorf("books: %w", err)
	}
	if err := validation.ValidateStruct(&c.Database,
		validation.Field(&c.Database.Path, validation.Required),
	); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := validation.ValidateStruct(&c.Sync,
		validation.Field(&c.Sync.Workers, validation.Required, validation.Min(1)),
		validation.Field(&c.Sync.RetryAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.Sync.RetryBackoff, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := validation.ValidateStruct(&c.Decoder,
		validation.Field(&c.Decoder.MaxDepth, validation.Required, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	if err := validation.ValidateStruct(&c.Schedule,
		validation.Field(&c.Schedule.Spec, validation.Required, validation.By(validCron)),
	); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	if err := validation.ValidateStruct(&c.Tasks,
		validation.Field(&c.Tasks.Workers, validation.Required, validation.Min(1)),
		validation.Field(&c.Tasks.Timeout, validation.Required),
	); err != nil {
		return fmt.Errorf("tasks: %w", err)
	}
	return nil
}

func validCron(value any) error {
	spec, _ := value.(string)
	return scheduler.ValidateSchedule(spec)
}
