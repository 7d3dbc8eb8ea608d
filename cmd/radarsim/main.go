package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/radarsim/internal/db"
	"github.com/banshee-data/radarsim/internal/version"
)

// errUsage marks a command line that could not be parsed; usage has already
// been printed.
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			log.Printf("radarsim: %v", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errUsage
	}
	command, rest := args[0], args[1:]

	switch command {
	case "simulate":
		return runSimulate(ctx, rest, stdout, stderr)
	case "pd":
		return runPd(ctx, rest, stdout, stderr)
	case "snr":
		return runSNR(rest, stdout, stderr)
	case "roc":
		return runROC(ctx, rest, stdout, stderr)
	case "snrtable":
		return runSNRTable(ctx, rest, stdout, stderr)
	case "serve":
		return runServe(ctx, rest, stderr)
	case "migrate":
		return runMigrate(rest, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, version.String())
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `radarsim - radar baseband simulation and detection statistics

Usage: radarsim <command> [options]

Commands:
  simulate   Simulate a scenario and write its summary and heatmaps
  pd         Print Pd over an SNR axis
  snr        Print the SNR required for a Pd
  roc        Write Pd-vs-SNR curves (HTML chart or CSV)
  snrtable   Build a required-SNR lookup table over N = 1..max-n
  serve      Serve the HTTP API
  migrate    Manage the results database schema
  version    Show version information
  help       Show this help message

Axes accept a list (1e-4,1e-6) or an inclusive range (start:stop:step).
Run 'radarsim <command> -h' for the options of one command.`)
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errUsage
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func runMigrate(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("migrate", stderr)
	dbPath := fs.String("db", "radarsim.db", "Path to the results database")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: radarsim migrate [-db path] <up|down|status|version N|help>")
		fs.PrintDefaults()
	}
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	return db.RunMigrateCommand(fs.Args(), *dbPath, stdout)
}

// openStore opens the results database, or returns nil for an empty path.
func openStore(path string) (*db.DB, error) {
	if path == "" {
		return nil, nil
	}
	database, err := db.NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}
