package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/koreader-highlights/internal/entities"
	"github.com/mrlokans/koreader-highlights/internal/entrypoint"
)

// SyncCommand runs one sync over a date window.
type SyncCommand struct {
	commonFlags
	Verbose bool
}

func NewSyncCommand() *SyncCommand {
	return &SyncCommand{commonFlags: newCommonFlags()}
}

func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)

	cmd.register(fs, true)
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Also list books with nothing in the window and per-highlight failures")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Store KOReader highlights captured in a date window in the database.\n")
		fmt.Fprintf(os.Stderr, "Highlights already stored are skipped, so windows may overlap.\n\n")
		fmt.Fprintf(os.Stderr, "Without date flags the window runs from last Sunday to yesterday.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # This week so far:\n")
		fmt.Fprintf(os.Stderr, "  %s sync\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # The last 30 days from a Kobo:\n")
		fmt.Fprintf(os.Stderr, "  %s sync -books /Volumes/KOBOeReader -last 30\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # A fixed range:\n")
		fmt.Fprintf(os.Stderr, "  %s sync -from 2026-01-01 -to 2026-01-31\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *SyncCommand) Run(ctx context.Context) error {
	cfg, err := cmd.load()
	if err != nil {
		return err
	}

	app, err := entrypoint.NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	outcome, err := app.Sync.Run(ctx, entities.SyncTriggerManual, cfg.Window)
	if err != nil {
		return err
	}

	printReport(cmd.out, outcome, app.Sync.BooksPath(), cmd.Verbose)
	return nil
}
