// Package cli implements the command-line commands. Each command owns a
// flag.FlagSet, loads the configuration through config.Load and prints a
// colored report to stdout.
package cli
