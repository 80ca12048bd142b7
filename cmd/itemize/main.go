package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/itemize-reconcile/internal/cli"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/config"
)

type command func(ctx context.Context, app *cli.App, args []string, out io.Writer) error

var commands = map[string]command{
	"pull":    cli.RunPull,
	"push":    cli.RunPush,
	"match":   cli.RunMatch,
	"status":  cli.RunStatus,
	"suggest": cli.RunSuggest,
	"decide":  cli.RunDecide,
	"stage":   cli.RunStage,
	"discard": cli.RunDiscard,
	"requeue": cli.RunRequeue,
	"serve":   cli.RunServe,
}

func main() {
	var configFile string
	var verbose bool

	// Global flags
	flag.StringVar(&configFile, "config", "", "Configuration file path (default: config.yaml if present)")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	run, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if verbose {
		cfg.Observability.Logging.Level = "debug"
	}

	app, err := cli.NewApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, app, args[1:], os.Stdout)
	stop()
	_ = app.Close()

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads an explicit file strictly; without one it falls back
// from config.yaml to the environment.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadOrEnv(), nil
	}
	return config.Load(path)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `itemize - reconcile ledger charges with itemized order history

Usage:
  itemize [-config FILE] [-verbose] <command> [options]

Commands:
  pull      Pull the ledger and order history, then rematch
  push      Write pending-push charges to the ledger (-dry-run to preview)
  match     Rematch charges against orders without pulling
  status    Show store contents and recent runs
  suggest   Show category suggestions for charges
  decide    Categorize or split a charge
  stage     Queue locally modified charges for the next push
  discard   Drop local decisions and restore the ledger's category
  requeue   Push categories the ledger dropped again
  serve     Run the review API

Run 'itemize <command> -h' for command options.`)
}
