package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/civ-diplomacy/internal/api"
	"github.com/talgya/civ-diplomacy/internal/engine"
	"github.com/talgya/civ-diplomacy/internal/persistence"
	"github.com/talgya/civ-diplomacy/internal/persistence/turnlog"
	"github.com/talgya/civ-diplomacy/internal/tuning"
)

// simFlags are the flags shared by run and batch.
type simFlags struct {
	config   string
	seed     int64
	scenario string
	turns    int
	planets  int
	civs     int
	logDir   string
	dbPath   string
	verbose  bool
}

func (f *simFlags) register(fs *flag.FlagSet) {
	dataDir := envOr("CIVSIM_DATA_DIR", "data")
	fs.StringVar(&f.config, "config", os.Getenv("CIVSIM_CONFIG"), "YAML tuning file")
	fs.Int64Var(&f.seed, "seed", 0, "random seed (0 = fresh)")
	fs.StringVar(&f.scenario, "scenario", "", "initial preset: random, thunderdome, all-low, all-high, one-outlier-low, one-outlier-low-others-high")
	fs.IntVar(&f.turns, "turns", 0, "turn ceiling (0 = config)")
	fs.IntVar(&f.planets, "planets", 0, "planet count (0 = config)")
	fs.IntVar(&f.civs, "civs", 0, "civilization count (0 = one per planet)")
	fs.StringVar(&f.logDir, "log-dir", filepath.Join(dataDir, "logs"), "turn log directory")
	fs.StringVar(&f.dbPath, "db", envOr("CIVSIM_DB", filepath.Join(dataDir, "runs.db")), "run index database")
	fs.BoolVar(&f.verbose, "v", false, "debug logging")
}

// load reads the config file and applies flag overrides.
func (f *simFlags) load() (tuning.Config, error) {
	cfg := tuning.Default()
	if f.config != "" {
		var err error
		if cfg, err = tuning.Load(f.config); err != nil {
			return cfg, err
		}
	}
	if f.scenario != "" {
		sc, err := tuning.ParseScenario(f.scenario)
		if err != nil {
			return cfg, err
		}
		cfg.Scenario = sc
	}
	if f.seed != 0 {
		cfg.Seed = f.seed
	}
	if f.turns > 0 {
		cfg.MaxTurns = f.turns
	}
	if f.planets > 0 {
		cfg.World.NumPlanets = f.planets
	}
	if f.civs > 0 {
		cfg.World.NumCivs = f.civs
	}
	return cfg, nil
}

// runOptions control one recorded run.
type runOptions struct {
	logDir   string
	db       *persistence.DB
	feed     *api.Feed
	interval time.Duration
	stop     <-chan struct{} // Closed to stop early
}

// runResult is what a finished (or stopped) run left behind.
type runResult struct {
	Sim     *engine.Simulation
	Outcome *engine.Outcome
	Record  persistence.RunRecord
	LogPath string
}

// recordRun runs one simulation, writing its turn log and index row.
func recordRun(sim *engine.Simulation, runID string, opts runOptions) (runResult, error) {
	res := runResult{Sim: sim, LogPath: filepath.Join(opts.logDir, runID+turnlog.Extension)}

	w, err := turnlog.NewWriter(res.LogPath)
	if err != nil {
		return res, err
	}

	var writeErr error
	eng := engine.NewEngine(sim)
	eng.Interval = opts.interval
	eng.OnTurn = func(sum engine.TurnSummary) {
		if err := w.WriteTurn(sum); err != nil && writeErr == nil {
			writeErr = err
			slog.Error("turn log write failed", "turn", sum.Turn, "error", err)
		}
		if opts.feed != nil {
			opts.feed.Publish(sum, sim.Map)
		}
	}
	eng.OnEnd = func(out engine.Outcome) {
		if err := w.WriteEnd(out); err != nil && writeErr == nil {
			writeErr = err
		}
		if opts.feed != nil {
			opts.feed.Finish(out)
		}
	}

	if opts.stop != nil {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-opts.stop:
				eng.Stop()
			case <-done:
			}
		}()
	}

	res.Outcome = eng.Run()
	if err := errors.Join(writeErr, w.Close()); err != nil {
		return res, fmt.Errorf("turn log %s: %w", res.LogPath, err)
	}
	if res.Outcome == nil {
		return res, nil
	}

	res.Record = persistence.NewRunRecord(sim, *res.Outcome, res.LogPath)
	res.Record.ID = runID
	if opts.db != nil {
		if err := opts.db.SaveRun(res.Record, sim.Events); err != nil {
			return res, fmt.Errorf("record run: %w", err)
		}
	}
	return res, nil
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var sf simFlags
	sf.register(fs)
	serve := fs.Int("serve", 0, "serve the observation API on this port (0 = off)")
	interval := fs.Duration("interval", 0, "pause between turns, e.g. 250ms")
	fs.Parse(args)
	setupLogging(sf.verbose)

	cfg, err := sf.load()
	if err != nil {
		return err
	}

	db, err := openDB(sf.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runID := uuid.NewString()
	sim := engine.New(cfg)

	stop := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig, ok := <-sigCh
		if ok {
			slog.Info("received signal, stopping", "signal", sig)
			close(stop)
		}
	}()

	opts := runOptions{logDir: sf.logDir, db: db, interval: *interval, stop: stop}
	if *serve > 0 {
		opts.feed = api.NewFeed(api.Meta{
			RunID:    runID,
			Seed:     sim.Seed,
			Scenario: string(sim.Config.Scenario),
			MaxTurns: sim.Config.MaxTurns,
			Width:    sim.Map.Width,
			Height:   sim.Map.Height,
		})
		srv := api.NewServer(opts.feed, *serve)
		srv.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", *serve)
	}

	res, err := recordRun(sim, runID, opts)
	if err != nil {
		return err
	}
	if res.Outcome == nil {
		fmt.Printf("Run %s stopped at turn %d; nothing recorded.\n", runID, sim.Turn)
		return nil
	}

	printOutcome(res)
	return nil
}

// openDB opens the run index, creating its directory.
func openDB(path string) (*persistence.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := persistence.Open(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("run index opened", "path", path)
	return db, nil
}

func printOutcome(res runResult) {
	out := res.Outcome
	fmt.Printf("\nRun %s (seed %d, %s)\n", res.Record.ID, res.Sim.Seed, res.Sim.Config.Scenario)
	switch {
	case out.WinnerID != nil:
		fmt.Printf("  %s victory for civilization %d on turn %s\n", out.End, *out.WinnerID, humanize.Comma(int64(out.Turn)))
	default:
		fmt.Printf("  %s after %s turns\n", out.End, humanize.Comma(int64(out.Turn)))
	}
	fmt.Printf("  %d of %d civilizations survive\n", len(res.Sim.Alive()), len(res.Sim.Civs))
	if fi, err := os.Stat(res.LogPath); err == nil {
		fmt.Printf("  turn log: %s (%s)\n", res.LogPath, humanize.Bytes(uint64(fi.Size())))
	}
}
