package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/civ-diplomacy/internal/engine"
	"github.com/talgya/civ-diplomacy/internal/entropy"
)

var endOrder = []engine.EndType{engine.EndCulture, engine.EndMilitary, engine.EndStalemate}

func cmdBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	var sf simFlags
	sf.register(fs)
	n := fs.Int("n", 10, "number of runs")
	fs.Parse(args)
	setupLogging(sf.verbose)

	if *n <= 0 {
		return fmt.Errorf("-n must be positive, got %d", *n)
	}
	cfg, err := sf.load()
	if err != nil {
		return err
	}
	// Consecutive seeds from one base make the batch reproducible.
	base := cfg.Seed
	if base == 0 {
		base = entropy.CryptoSeed()
	}

	db, err := openDB(sf.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	stop := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			close(stop)
		}
	}()

	tally := make(map[engine.EndType]int)
	completed, totalTurns := 0, 0
runs:
	for i := 0; i < *n; i++ {
		select {
		case <-stop:
			slog.Info("batch interrupted", "completed", completed)
			break runs
		default:
		}

		cfg.Seed = base + int64(i)
		sim := engine.New(cfg)
		res, err := recordRun(sim, uuid.NewString(), runOptions{logDir: sf.logDir, db: db, stop: stop})
		if err != nil {
			return fmt.Errorf("run %d (seed %d): %w", i+1, cfg.Seed, err)
		}
		if res.Outcome == nil {
			break runs
		}
		completed++
		totalTurns += res.Outcome.Turn
		tally[res.Outcome.End]++
		slog.Info("batch run finished",
			"run", i+1,
			"of", *n,
			"seed", cfg.Seed,
			"end_type", res.Outcome.End,
			"turns", res.Outcome.Turn,
		)
	}

	fmt.Printf("\n%s runs (%s scenario, seeds %d..%d), %s turns total\n",
		humanize.Comma(int64(completed)), cfg.Scenario, base, base+int64(completed)-1, humanize.Comma(int64(totalTurns)))
	printTally("this batch", tally, completed)

	all, err := db.TallyEndTypes(string(cfg.Scenario))
	if err != nil {
		return fmt.Errorf("tally: %w", err)
	}
	sum := 0
	for _, v := range all {
		sum += v
	}
	printTally("all recorded "+string(cfg.Scenario)+" runs", all, sum)
	return nil
}

func printTally(label string, tally map[engine.EndType]int, total int) {
	fmt.Printf("  %s:\n", label)
	for _, end := range endOrder {
		share := 0.0
		if total > 0 {
			share = 100 * float64(tally[end]) / float64(total)
		}
		fmt.Printf("    %-10s %6s  %5.1f%%\n", end, humanize.Comma(int64(tally[end])), share)
	}
}
