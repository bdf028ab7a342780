// Command pdf-sequencer runs the sequencer modes from the command line.
//
//	pdf-sequencer split   [flags] <pdf|dir>...
//	pdf-sequencer resolve --table lookup.txt [flags] <pdf|dir>...
//	pdf-sequencer rename  --table lookup.txt [--naming merged-pages] <pdf|dir>...
//	pdf-sequencer annotate --table lookup.txt --work-order WO-1 <pdf|dir>...
//	pdf-sequencer search  --keywords "pole,crossarm" <pdf|dir>...
//	pdf-sequencer analyze --keywords "pole" [--go95 rules.txt] <pdf|dir>...
//
// Paths are relative to --dir; outputs go to --outdir.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"syscall"

	"github.com/spf13/pflag"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches args to a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}

	name, rest := args[0], args[1:]
	switch name {
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK
	case "version", "-v", "--version":
		printVersion(stdout)
		return exitOK
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", name)
		printUsage(stderr)
		return exitUsage
	}

	c, err := newCLI(name, cmd, rest, stdout, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if err := cmd.run(ctx, c); err != nil {
		c.log.Error().Err(err).Str("command", name).Msg("command failed")
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "PDF Sequencer - split, sequence and analyze PDF batches")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  pdf-sequencer <command> [flags] <pdf|dir>...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "COMMANDS:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, "  %-10s %s\n", "version", "Print version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'pdf-sequencer <command> --help' for the flags of a command.")
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "PDF Sequencer\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
