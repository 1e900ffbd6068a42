package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/mrlokans/koreader-highlights/internal/services"
)

var (
	heading = color.New(color.Bold)
	okText  = color.New(color.FgGreen)
	dupText = color.New(color.FgYellow)
	errText = color.New(color.FgRed, color.Bold)
	dimText = color.New(color.Faint)
)

// printReport writes the per-book lines and the run summary.
func printReport(w io.Writer, outcome *services.SyncOutcome, booksPath string, verbose bool) {
	report := outcome.Report

	heading.Fprintf(w, "Sync %s\n", report.Window)
	fmt.Fprintf(w, "Books: %s\n", booksPath)
	fmt.Fprintf(w, "Run: %s\n\n", outcome.RunID)

	for _, f := range report.Files {
		switch {
		case f.Err != nil:
			errText.Fprint(w, "  [ERROR] ")
			fmt.Fprintf(w, "%s (%s): %v\n", f.Path, f.Stage, f.Err)
		case f.InWindow == 0:
			if verbose {
				dimText.Fprintf(w, "  [SKIP]  %s: no highlights in window (%d total)\n", f.Title, f.Extracted)
			}
		default:
			okText.Fprint(w, "  [OK]    ")
			fmt.Fprintf(w, "%s: %d new", f.Title, f.Result.Inserted)
			if f.Result.Duplicate > 0 {
				dupText.Fprintf(w, ", %d already stored", f.Result.Duplicate)
			}
			if f.Result.Failed > 0 {
				errText.Fprintf(w, ", %d failed", f.Result.Failed)
			}
			fmt.Fprintln(w)
			if verbose {
				for _, failure := range f.Result.Failures {
					dimText.Fprintf(w, "          %q: %s\n", failure.Text, failure.Reason)
				}
			}
		}
	}

	fmt.Fprintln(w)
	heading.Fprintln(w, "=== Summary ===")
	fmt.Fprintf(w, "Files:      %d (%d failed)\n", len(report.Files), report.FilesFailed)
	okText.Fprintf(w, "Inserted:   %d\n", report.Totals.Inserted)
	dupText.Fprintf(w, "Duplicate:  %d\n", report.Totals.Duplicate)
	if report.Totals.Failed > 0 {
		errText.Fprintf(w, "Failed:     %d\n", report.Totals.Failed)
	} else {
		fmt.Fprintf(w, "Failed:     %d\n", report.Totals.Failed)
	}
	fmt.Fprintf(w, "Took:       %v\n", outcome.Duration.Round(time.Millisecond))
}
