// Package books provides database operations for book and highlight management.
//
// This package implements the Store interface used by the sync engine.
//
// # Interface Implementation
//
//	var _ syncer.Store = (*Repository)(nil)
//
// # Usage
//
//	repo := books.NewRepository(db)
//	id, err := repo.UpsertBook(ctx, &book)
package books

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/koreader-highlights/internal/entities"
)

// Repository handles all book and highlight database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindBook returns the book stored under path, or nil when there is none.
func (r *Repository) FindBook(ctx context.Context, path string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).Where("file_path = ?", path).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// UpsertBook inserts the book or, when its file path is already stored,
// refreshes title and author. It returns the row ID either way.
func (r *Repository) UpsertBook(ctx context.Context, book *entities.Book) (uint, error) {
	row := entities.Book{
		FilePath: book.FilePath,
		Title:    book.Title,
		Author:   book.Author,
	}

	db := r.db.WithContext(ctx)
	err := db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_path"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "author", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert book %s: %w", book.FilePath, err)
	}

	var stored entities.Book
	if err := db.Select("id").Where("file_path = ?", book.FilePath).First(&stored).Error; err != nil {
		return 0, fmt.Errorf("failed to reload book %s: %w", book.FilePath, err)
	}
	return stored.ID, nil
}

// GetStats returns the number of stored books and highlights.
func (r *Repository) GetStats(ctx context.Context) (totalBooks int64, totalHighlights int64, err error) {
	db := r.db.WithContext(ctx)
	if err = db.Model(&entities.Book{}).Count(&totalBooks).Error; err != nil {
		return 0, 0, err
	}
	if err = db.Model(&entities.Highlight{}).Count(&totalHighlights).Error; err != nil {
		return 0, 0, err
	}
	return totalBooks, totalHighlights, nil
}
