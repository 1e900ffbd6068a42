package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrlokans/koreader-highlights/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
}

func main() {
	// With no command, or only flags, run a one-off sync.
	name, args := "sync", os.Args[1:]
	if len(os.Args) > 1 && os.Args[1] != "" && os.Args[1][0] != '-' {
		name, args = os.Args[1], os.Args[2:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch name {
	case "sync":
		cmd := cli.NewSyncCommand()
		parse(cmd, args)
		exitOnError(cmd.Run(ctx))

	case "highlights":
		cmd := cli.NewHighlightsCommand()
		parse(cmd, args)
		exitOnError(cmd.Run(ctx))

	case "runs":
		cmd := cli.NewRunsCommand()
		parse(cmd, args)
		exitOnError(cmd.Run(ctx))

	case "schedule":
		// The scheduler installs its own signal handling.
		stop()
		cmd := cli.NewScheduleCommand(Version)
		parse(cmd, args)
		exitOnError(cmd.Run())

	case "version":
		fmt.Printf("koreader-highlights %s (%s)\n", Version, Commit)

	case "help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}
}

func parse(cmd command, args []string) {
	if err := cmd.ParseFlags(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  sync        Store highlights from a date window (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  highlights  List stored highlights, optionally marking them processed\n")
	fmt.Fprintf(os.Stderr, "  runs        Show recent sync runs\n")
	fmt.Fprintf(os.Stderr, "  schedule    Sync periodically on a cron schedule\n")
	fmt.Fprintf(os.Stderr, "  version     Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
