package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/talgya/civ-diplomacy/internal/analysis"
)

func cmdAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	logDir := fs.String("log-dir", filepath.Join(envOr("CIVSIM_DATA_DIR", "data"), "logs"), "turn log directory")
	bins := fs.Int("bins", analysis.DefaultOptions().Bins, "bins for H1..H3")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Parse(args)
	setupLogging(*verbose)

	runs, err := analysis.LoadDir(*logDir)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return fmt.Errorf("no turn logs in %s", *logDir)
	}

	opts := analysis.DefaultOptions()
	opts.Bins = *bins
	rep := analysis.Summarize(runs, opts)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printReport(rep)
	return nil
}

func printReport(rep analysis.Report) {
	fmt.Printf("%s runs, %s turns\n", humanize.Comma(int64(rep.Runs)), humanize.Comma(int64(rep.Turns)))

	printBins("H1 tech -> P(initiates war within lookahead)", rep.TechVsWarSoon)
	printBins("H2 desperation -> P(at war)", rep.DesperationVsAtWar)
	printBins("H3 mean population pressure -> war initiations", rep.PressureVsInitiations)

	fmt.Println("\nH4 cultural similarity by interaction type")
	types := make([]string, 0, len(rep.SimilarityByType))
	for k := range rep.SimilarityByType {
		types = append(types, k)
	}
	sort.Strings(types)
	for _, k := range types {
		g := rep.SimilarityByType[k]
		fmt.Printf("  %-12s n=%-8s mean=%.3f\n", k, humanize.Comma(int64(g.Count)), g.Mean)
	}

	fmt.Println("\nH5 starting cohorts")
	for _, c := range []struct {
		name string
		c    analysis.Cohort
	}{{"high potential", rep.HighPotential}, {"others", rep.Others}} {
		fmt.Printf("  %-15s civs=%-5d trade partners=%.2f population=%.1f survival=%.0f%%\n",
			c.name, c.c.Civs, c.c.MeanTradePartners, c.c.MeanPopulation, 100*c.c.SurvivalRate)
	}

	fmt.Println("\nH6 victories -> war initiations per turn")
	wins := make([]int, 0, len(rep.InitiationsByVictories))
	for k := range rep.InitiationsByVictories {
		wins = append(wins, k)
	}
	sort.Ints(wins)
	for _, k := range wins {
		g := rep.InitiationsByVictories[k]
		fmt.Printf("  %3d  n=%-8s mean=%.3f\n", k, humanize.Comma(int64(g.Count)), g.Mean)
	}
}

func printBins(title string, bins []analysis.BinStat) {
	fmt.Printf("\n%s\n", title)
	for _, b := range bins {
		fmt.Printf("  [%8.3f, %8.3f)  n=%-8s mean=%.3f\n", b.Lo, b.Hi, humanize.Comma(int64(b.Count)), b.Mean)
	}
}
