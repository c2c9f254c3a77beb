// Command civsim runs the civilization diplomacy simulation.
//
//	civsim run     [flags]   one run, optionally observed over HTTP
//	civsim batch   -n N      N runs with consecutive seeds, end-type tally
//	civsim analyze [flags]   hypothesis aggregates over recorded turn logs
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

const usage = `usage: civsim <command> [flags]

commands:
  run       run one simulation and record it
  batch     run many simulations and tally how they ended
  analyze   summarize recorded turn logs

Run "civsim <command> -h" for the command's flags.
`

func main() {
	_ = godotenv.Load() // .env is optional

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "run":
		err = cmdRun(args)
	case "batch":
		err = cmdBatch(args)
	case "analyze":
		err = cmdAnalyze(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("civsim failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

// setupLogging installs the default text logger.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// envOr returns an environment variable or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
