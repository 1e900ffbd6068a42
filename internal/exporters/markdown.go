// Package exporters writes stored highlights out as Markdown notes.
package exporters

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/mrlokans/koreader-highlights/internal/entities"
	"github.com/mrlokans/koreader-highlights/internal/utils"
	"github.com/mrlokans/koreader-highlights/internal/window"
)

type ExportResult struct {
	BooksProcessed      int
	HighlightsProcessed int
	BooksFailed         int
	Files               []string
	Errors              []string
}

// MarkdownExporter writes one note per book into Dir. A note is named after
// the book and the window, so exporting the same window again overwrites it.
type MarkdownExporter struct {
	fs  afero.Fs
	Dir string
	now func() time.Time
}

func NewMarkdownExporter(fs afero.Fs, dir string) *MarkdownExporter {
	return &MarkdownExporter{fs: fs, Dir: dir, now: time.Now}
}

// Export writes a note for every book. A book that cannot be written is
// counted in BooksFailed and the rest are still exported.
func (exporter *MarkdownExporter) Export(books []entities.Book, w window.Window) (ExportResult, error) {
	result := ExportResult{}

	if err := exporter.fs.MkdirAll(exporter.Dir, 0o755); err != nil {
		return result, fmt.Errorf("failed to create export directory: %w", err)
	}

	for i := range books {
		book := &books[i]
		path := filepath.Join(exporter.Dir, NoteFileName(book, w))
		content := GenerateMarkdown(book, w, exporter.now())
		if err := afero.WriteFile(exporter.fs, path, []byte(content), 0o644); err != nil {
			result.BooksFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", book.Title, err))
			continue
		}
		result.BooksProcessed++
		result.HighlightsProcessed += len(book.Highlights)
		result.Files = append(result.Files, path)
	}

	return result, nil
}

// NoteFileName returns "<title> <from>..<to>.md" with the title reduced to
// a safe file name.
func NoteFileName(book *entities.Book, w window.Window) string {
	return utils.SanitizeFilename(book.Title) + " " + w.String() + ".md"
}

func GenerateMarkdown(book *entities.Book, w window.Window, now time.Time) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "---\n")
	fmt.Fprintf(&builder, "content_source: koreader\n")
	fmt.Fprintf(&builder, "content_type: book_highlights\n")
	fmt.Fprintf(&builder, "created_at: %s\n", now.Format("2006-01-02"))
	fmt.Fprintf(&builder, "title: \"%s\"\n", strings.ReplaceAll(book.Title, "\"", "\\\""))
	fmt.Fprintf(&builder, "author: \"%s\"\n", strings.ReplaceAll(book.Author, "\"", "\\\""))
	fmt.Fprintf(&builder, "from: %s\n", w.From)
	fmt.Fprintf(&builder, "to: %s\n", w.To)
	fmt.Fprintf(&builder, "tags: highlights, books\n")
	fmt.Fprintf(&builder, "---\n\n")
	fmt.Fprintf(&builder, "## Highlights\n\n")

	chapter := ""
	for _, highlight := range book.Highlights {
		if highlight.Chapter != "" && highlight.Chapter != chapter {
			chapter = highlight.Chapter
			fmt.Fprintf(&builder, "### %s\n\n", chapter)
		}
		fmt.Fprintf(&builder, "> %s\n\n", strings.ReplaceAll(highlight.Text, "\n", "\n> "))
		meta := highlight.HighlightedAt.Format("2006-01-02 15:04")
		if highlight.Page > 0 {
			meta += fmt.Sprintf(", p. %d", highlight.Page)
		}
		fmt.Fprintf(&builder, "*%s*\n\n", meta)
		if highlight.Note != "" {
			fmt.Fprintf(&builder, "**Note:** %s\n\n", highlight.Note)
		}
	}

	return builder.String()
}
