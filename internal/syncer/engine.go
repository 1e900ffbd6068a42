// Package syncer reconciles extracted highlights with the database.
//
// Sync is idempotent: a highlight is identified by its natural key
// (book, text, capture time, location), so re-running a sync or syncing
// overlapping date windows never stores the same highlight twice.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mrlokans/koreader-highlights/internal/entities"
)

// Store is the storage the engine writes through. Implementations must be
// safe for concurrent use.
type Store interface {
	// FindBook returns nil, nil when no book has the given path.
	FindBook(ctx context.Context, path string) (*entities.Book, error)
	UpsertBook(ctx context.Context, book *entities.Book) (uint, error)
	HighlightExists(ctx context.Context, key entities.NaturalKey) (bool, error)
	// InsertHighlight reports false when the natural key is already stored.
	InsertHighlight(ctx context.Context, h *entities.Highlight) (bool, error)
}

const (
	DefaultAttempts = 3
	DefaultBackoff  = 100 * time.Millisecond
)

type Options struct {
	// Attempts is the total number of tries per storage call.
	Attempts int
	// Backoff is the first retry delay; it doubles on each retry.
	Backoff time.Duration
	// IsTransient selects the errors worth retrying. Nil retries nothing.
	IsTransient func(error) bool
}

func DefaultOptions() Options {
	return Options{Attempts: DefaultAttempts, Backoff: DefaultBackoff}
}

type Engine struct {
	store Store
	opts  Options
}

func NewEngine(store Store, opts Options) *Engine {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	return &Engine{store: store, opts: opts}
}

// Sync upserts the book by file path and inserts every highlight not
// already stored. Storage errors are recorded per highlight and never stop
// the batch; a failure to write the book fails all of its highlights.
func (e *Engine) Sync(ctx context.Context, book *entities.Book, highlights []entities.Highlight) Result {
	result := Result{FilePath: book.FilePath}

	bookID, created, err := e.upsertBook(ctx, book)
	if err != nil {
		result.BookErr = err
		for _, h := range highlights {
			result.fail(h.Text, err)
		}
		return result
	}
	result.BookID = bookID
	result.BookCreated = created

	for _, h := range highlights {
		h.BookID = bookID

		var exists bool
		err := e.withRetry(ctx, func(ctx context.Context) error {
			var err error
			exists, err = e.store.HighlightExists(ctx, h.NaturalKey())
			return err
		})
		if err != nil {
			result.fail(h.Text, fmt.Errorf("failed to check for duplicate: %w", err))
			continue
		}
		if exists {
			result.Duplicate++
			continue
		}

		var inserted bool
		err = e.withRetry(ctx, func(ctx context.Context) error {
			row := h
			var err error
			inserted, err = e.store.InsertHighlight(ctx, &row)
			return err
		})
		switch {
		case err != nil:
			result.fail(h.Text, fmt.Errorf("failed to insert: %w", err))
		case inserted:
			result.Inserted++
		default:
			// Another worker stored the same key between the check and the insert.
			result.Duplicate++
		}
	}

	return result
}

func (e *Engine) upsertBook(ctx context.Context, book *entities.Book) (uint, bool, error) {
	var existing *entities.Book
	err := e.withRetry(ctx, func(ctx context.Context) error {
		var err error
		existing, err = e.store.FindBook(ctx, book.FilePath)
		return err
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up book %s: %w", book.FilePath, err)
	}

	var id uint
	err = e.withRetry(ctx, func(ctx context.Context) error {
		var err error
		id, err = e.store.UpsertBook(ctx, book)
		return err
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to save book %s: %w", book.FilePath, err)
	}
	return id, existing == nil, nil
}

// withRetry runs op up to Attempts times with exponential backoff, retrying
// only errors that IsTransient accepts.
func (e *Engine) withRetry(ctx context.Context, op func(context.Context) error) error {
	if e.opts.Attempts == 1 {
		return op(ctx)
	}
	backoff := retry.WithMaxRetries(uint64(e.opts.Attempts-1), retry.NewExponential(e.opts.Backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if err != nil && e.opts.IsTransient != nil && e.opts.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
