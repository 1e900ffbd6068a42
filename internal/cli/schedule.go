package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/koreader-highlights/internal/config"
	"github.com/mrlokans/koreader-highlights/internal/entrypoint"
)

// ScheduleCommand keeps running and syncs on a cron schedule.
type ScheduleCommand struct {
	commonFlags
	RunNow  bool
	Version string
}

func NewScheduleCommand(version string) *ScheduleCommand {
	return &ScheduleCommand{commonFlags: newCommonFlags(), Version: version}
}

func (cmd *ScheduleCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)

	cmd.register(fs, true)
	fs.StringVar(&cmd.schedule, "cron", "", "Cron schedule (env SYNC_SCHEDULE, default \""+config.DefaultSyncSchedule+"\")")
	fs.BoolVar(&cmd.RunNow, "run-now", false, "Queue a sync immediately as well")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s schedule [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Run syncs periodically until interrupted. Each run resolves its date\n")
		fmt.Fprintf(os.Stderr, "window on the day it fires, so the default covers last Sunday to yesterday.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Every morning at 06:00, covering the previous week:\n")
		fmt.Fprintf(os.Stderr, "  %s schedule -cron \"0 6 * * *\" -last 7\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *ScheduleCommand) Run() error {
	cfg, err := cmd.load()
	if err != nil {
		return err
	}
	return entrypoint.RunScheduler(cfg, cmd.Version, cmd.RunNow)
}
