package database

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/koreader-highlights/internal/entities"
)

func TestNewDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "highlights.db")

	db, err := NewDatabase(dbPath, Silent())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []any{&entities.Book{}, &entities.Highlight{}, &entities.SyncRun{}} {
		assert.True(t, db.DB.Migrator().HasTable(table))
	}
	assert.True(t, db.DB.Migrator().HasIndex(&entities.Highlight{}, "idx_highlight_natural_key"))

	var mode string
	require.NoError(t, db.DB.Raw("PRAGMA journal_mode").Scan(&mode).Error)
	assert.Equal(t, "wal", mode)
}

func TestNewDatabase_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "highlights.db")

	db, err := NewDatabase(dbPath, Silent())
	require.NoError(t, err)
	require.NoError(t, db.DB.Create(&entities.Book{FilePath: "/books/Dune.epub", Title: "Dune"}).Error)
	require.NoError(t, db.Close())

	db, err = NewDatabase(dbPath, Silent())
	require.NoError(t, err)
	defer db.Close()

	var count int64
	require.NoError(t, db.DB.Model(&entities.Book{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"wrapped busy", fmt.Errorf("insert: %w", sqlite3.Error{Code: sqlite3.ErrBusy}), true},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"disk full", sqlite3.Error{Code: sqlite3.ErrFull}, false},
		{"plain error", errors.New("database is locked"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTransient(tt.err))
		})
	}
}
