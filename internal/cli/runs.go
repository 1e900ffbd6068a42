package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/mrlokans/koreader-highlights/internal/database/runs"
	"github.com/mrlokans/koreader-highlights/internal/entities"
	"github.com/mrlokans/koreader-highlights/internal/entrypoint"
)

// RunsCommand lists recent sync runs.
type RunsCommand struct {
	commonFlags
	Limit  int
	Errors bool
}

func NewRunsCommand() *RunsCommand {
	return &RunsCommand{commonFlags: newCommonFlags()}
}

func (cmd *RunsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)

	cmd.register(fs, false)
	fs.IntVar(&cmd.Limit, "limit", 10, "Number of runs to show")
	fs.BoolVar(&cmd.Errors, "errors", false, "Print the recorded errors of each run")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s runs [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Show the most recent sync runs, newest first.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *RunsCommand) Run(ctx context.Context) error {
	cfg, err := cmd.load()
	if err != nil {
		return err
	}

	app, err := entrypoint.NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	history, err := app.Runs.List(ctx, cmd.Limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(history) == 0 {
		fmt.Fprintln(cmd.out, "No sync runs recorded")
		return nil
	}

	heading.Fprintf(cmd.out, "%-19s  %-9s  %-9s  %-22s  %8s  %9s  %6s  %5s\n",
		"STARTED", "TRIGGER", "STATUS", "WINDOW", "INSERTED", "DUPLICATE", "FAILED", "FILES")
	for i := range history {
		run := &history[i]
		fmt.Fprintf(cmd.out, "%-19s  %-9s  ", run.StartedAt.Local().Format(time.DateTime), run.Trigger)
		statusColor(run.Status).Fprintf(cmd.out, "%-9s", run.Status)
		fmt.Fprintf(cmd.out, "  %-22s  %8d  %9d  %6d  %5s\n",
			run.WindowFrom+".."+run.WindowTo, run.Inserted, run.Duplicate, run.Failed,
			fmt.Sprintf("%d/%d", run.FilesTotal-run.FilesFailed, run.FilesTotal))

		if cmd.Errors {
			for _, e := range runs.DecodeErrors(run) {
				dimText.Fprintf(cmd.out, "    %s\n", e)
			}
		}
	}

	totalBooks, totalHighlights, err := app.Books.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to count stored highlights: %w", err)
	}
	fmt.Fprintf(cmd.out, "\nStored: %d highlights in %d books\n", totalHighlights, totalBooks)
	return nil
}

func statusColor(status entities.SyncStatus) *color.Color {
	switch status {
	case entities.SyncStatusCompleted:
		return okText
	case entities.SyncStatusFailed:
		return errText
	default:
		return dupText
	}
}
