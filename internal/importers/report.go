package importers

import (
	"fmt"

	"github.com/mrlokans/koreader-highlights/internal/syncer"
	"github.com/mrlokans/koreader-highlights/internal/window"
)

// Stage names the step at which a file failed.
type Stage string

const (
	StageRead    Stage = "read"
	StageDecode  Stage = "decode"
	StageExtract Stage = "extract"
	StageSync    Stage = "sync"
)

// FileReport is the outcome for one sidecar file.
type FileReport struct {
	Path      string
	Title     string
	Extracted int
	InWindow  int
	Skipped   int
	Result    syncer.Result
	// Err is the file-fatal error, if any; Stage says where it happened.
	Err   error
	Stage Stage
}

func (f FileReport) Failed() bool {
	return f.Err != nil
}

// Report aggregates a run over many files.
type Report struct {
	Window      window.Window
	Files       []FileReport
	FilesFailed int
	Totals      syncer.Result
}

func (r *Report) add(f FileReport) {
	r.Files = append(r.Files, f)
	if f.Failed() {
		r.FilesFailed++
	}
	r.Totals.Add(f.Result)
}

// Errors lists every failure in the run, prefixed with its file path.
func (r *Report) Errors() []string {
	var out []string
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, fmt.Sprintf("%s: %s: %v", f.Path, f.Stage, f.Err))
			continue
		}
		for _, failure := range f.Result.Failures {
			out = append(out, fmt.Sprintf("%s: %q: %s", f.Path, truncate(failure.Text, 60), failure.Reason))
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
