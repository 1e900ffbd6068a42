package books

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/koreader-highlights/internal/entities"
)

// HighlightExists checks for a stored highlight with the same natural key.
func (r *Repository) HighlightExists(ctx context.Context, key entities.NaturalKey) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Highlight{}).
		Where("book_id = ? AND text = ? AND highlighted_at = ? AND location = ?",
			key.BookID, key.Text, key.HighlightedAt, key.Location).
		Count(&count).Error
	return count > 0, err
}

// InsertHighlight stores h unless a row with the same natural key exists.
// It reports whether a row was written; a lost race against a concurrent
// insert of the same key reports false without error.
func (r *Repository) InsertHighlight(ctx context.Context, h *entities.Highlight) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(h)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// HighlightQuery selects highlights by capture time. From is inclusive and
// To exclusive; zero values leave that side open.
type HighlightQuery struct {
	From            time.Time
	To              time.Time
	UnprocessedOnly bool
}

func (q HighlightQuery) apply(db *gorm.DB) *gorm.DB {
	if !q.From.IsZero() {
		db = db.Where("highlighted_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		db = db.Where("highlighted_at < ?", q.To)
	}
	if q.UnprocessedOnly {
		db = db.Where("processed = ?", false)
	}
	return db
}

// ListBooksWithHighlights returns the books that have highlights matching
// q, each carrying only the matching highlights in capture order.
func (r *Repository) ListBooksWithHighlights(ctx context.Context, q HighlightQuery) ([]entities.Book, error) {
	db := r.db.WithContext(ctx)
	matching := q.apply(db.Model(&entities.Highlight{}).Select("book_id"))

	var books []entities.Book
	err := db.Preload("Highlights", func(tx *gorm.DB) *gorm.DB {
		return q.apply(tx).Order("highlighted_at ASC, id ASC")
	}).Where("id IN (?)", matching).Order("title ASC, id ASC").Find(&books).Error
	return books, err
}

// MarkProcessed flags the given highlights as consumed and returns how many
// rows changed.
func (r *Repository) MarkProcessed(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&entities.Highlight{}).
		Where("id IN ? AND processed = ?", ids, false).
		Update("processed", true)
	return result.RowsAffected, result.Error
}
