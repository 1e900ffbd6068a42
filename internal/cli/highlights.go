package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/mrlokans/koreader-highlights/internal/database/books"
	"github.com/mrlokans/koreader-highlights/internal/entrypoint"
	"github.com/mrlokans/koreader-highlights/internal/exporters"
)

// HighlightsCommand prints stored highlights captured in a date window.
type HighlightsCommand struct {
	commonFlags
	UnprocessedOnly bool
	MarkProcessed   bool
	MarkdownDir     string
}

func NewHighlightsCommand() *HighlightsCommand {
	return &HighlightsCommand{commonFlags: newCommonFlags()}
}

func (cmd *HighlightsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("highlights", flag.ContinueOnError)

	cmd.register(fs, true)
	fs.BoolVar(&cmd.UnprocessedOnly, "unprocessed", false, "Only show highlights not yet marked processed")
	fs.BoolVar(&cmd.MarkProcessed, "mark-processed", false, "Mark the listed highlights as processed")
	fs.StringVar(&cmd.MarkdownDir, "markdown", "", "Also write one Markdown note per book into this directory")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s highlights [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List stored highlights grouped by book. The window flags work as for sync.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Review this week's new highlights once:\n")
		fmt.Fprintf(os.Stderr, "  %s highlights -unprocessed -mark-processed\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n  # Export last week's highlights into a notes folder:\n")
		fmt.Fprintf(os.Stderr, "  %s highlights -last 7 -markdown ~/notes/books\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *HighlightsCommand) Run(ctx context.Context) error {
	cfg, err := cmd.load()
	if err != nil {
		return err
	}

	app, err := entrypoint.NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	// Capture times are stored as device wall-clock on the UTC location.
	query := books.HighlightQuery{
		From:            cfg.Window.From.Start(time.UTC),
		To:              cfg.Window.To.AddDays(1).Start(time.UTC),
		UnprocessedOnly: cmd.UnprocessedOnly,
	}
	found, err := app.Books.ListBooksWithHighlights(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list highlights: %w", err)
	}

	heading.Fprintf(cmd.out, "Highlights %s\n", cfg.Window)
	if len(found) == 0 {
		fmt.Fprintln(cmd.out, "No highlights found")
		return nil
	}

	var ids []uint
	for _, book := range found {
		fmt.Fprintln(cmd.out)
		title := book.Title
		if book.Author != "" {
			title += " by " + book.Author
		}
		heading.Fprintln(cmd.out, title)

		for _, h := range book.Highlights {
			ids = append(ids, h.ID)
			dimText.Fprintf(cmd.out, "  %s", h.HighlightedAt.Format("2006-01-02 15:04"))
			if h.Page > 0 {
				dimText.Fprintf(cmd.out, "  p.%d", h.Page)
			}
			if h.Chapter != "" {
				dimText.Fprintf(cmd.out, "  %s", h.Chapter)
			}
			fmt.Fprintln(cmd.out)
			fmt.Fprintf(cmd.out, "  > %s\n", strings.ReplaceAll(h.Text, "\n", "\n  > "))
			if h.Note != "" {
				okText.Fprintf(cmd.out, "  Note: %s\n", h.Note)
			}
		}
	}

	fmt.Fprintf(cmd.out, "\n%d highlights in %d books\n", len(ids), len(found))

	if cmd.MarkdownDir != "" {
		exporter := exporters.NewMarkdownExporter(afero.NewOsFs(), cmd.MarkdownDir)
		result, err := exporter.Export(found, cfg.Window)
		if err != nil {
			return err
		}
		for _, msg := range result.Errors {
			errText.Fprintf(cmd.out, "[ERROR] %s\n", msg)
		}
		fmt.Fprintf(cmd.out, "Exported %d books to %s\n", result.BooksProcessed, cmd.MarkdownDir)
		if result.BooksFailed > 0 {
			return fmt.Errorf("failed to export %d books", result.BooksFailed)
		}
	}

	if cmd.MarkProcessed {
		marked, err := app.Books.MarkProcessed(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to mark highlights processed: %w", err)
		}
		fmt.Fprintf(cmd.out, "Marked %d highlights as processed\n", marked)
	}
	return nil
}
