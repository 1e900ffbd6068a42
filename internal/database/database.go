package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/koreader-highlights/internal/entities"
)

// WAL journal; writers wait up to 5s for the lock before SQLITE_BUSY.
const dsnParams = "?_journal=WAL&_timeout=5000&_busy_timeout=5000&_foreign_keys=1"

type Database struct {
	DB *gorm.DB
}

type Option func(*gorm.Config)

// WithSQLLogging logs every statement instead of only slow or failed ones.
func WithSQLLogging(enabled bool) Option {
	return func(c *gorm.Config) {
		if enabled {
			c.Logger = logger.Default.LogMode(logger.Info)
		}
	}
}

// Silent disables the gorm logger, for tests.
func Silent() Option {
	return func(c *gorm.Config) {
		c.Logger = logger.Default.LogMode(logger.Silent)
	}
}

func NewDatabase(dbPath string, opts ...Option) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	db, err := gorm.Open(sqlite.Open(dbPath+dsnParams), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Book{},
		&entities.Highlight{},
		&entities.SyncRun{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsTransient reports whether err is lock contention that may clear on
// retry (SQLITE_BUSY or SQLITE_LOCKED).
func IsTransient(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
