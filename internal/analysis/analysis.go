// Package analysis aggregates turn logs into the six behavioral hypotheses
// the simulation was built to explore:
//
//	H1  rapid tech growth precedes war initiation
//	H2  economic desperation raises the chance of being at war
//	H3  population pressure drives conflict
//	H4  cultural similarity favors trade over war
//	H5  friendly, cultured starters build more trade partnerships
//	H6  repeated victories make a civilization more aggressive
//
// Results are plain numbers; rendering is left to the caller.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/talgya/civ-diplomacy/internal/persistence/turnlog"
)

// Options tunes the aggregation.
type Options struct {
	Bins               int     // Equal-width bins for H1..H3
	LookaheadTurns     int     // H1 window for "initiated war soon"
	CohortFriendliness float64 // H5 minimum turn-1 friendliness
}

// DefaultOptions returns the standard analysis settings.
func DefaultOptions() Options {
	return Options{
		Bins:               5,
		LookaheadTurns:     5,
		CohortFriendliness: 0.6,
	}
}

// BinStat is the mean of y over samples whose x falls in [Lo, Hi).
type BinStat struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
}

// GroupStat summarizes samples sharing a key.
type GroupStat struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
}

// Cohort is one H5 group of civilizations.
type Cohort struct {
	Civs              int     `json:"civs"`
	MeanTradePartners float64 `json:"mean_trade_partners"`
	MeanPopulation    float64 `json:"mean_population"`
	SurvivalRate      float64 `json:"survival_rate"`
}

// Report holds every hypothesis aggregate.
type Report struct {
	Runs  int `json:"runs"`
	Turns int `json:"turns"`

	TechVsWarSoon          []BinStat            `json:"h1_tech_vs_war_soon"`
	DesperationVsAtWar     []BinStat            `json:"h2_desperation_vs_at_war"`
	PressureVsInitiations  []BinStat            `json:"h3_pressure_vs_initiations"`
	SimilarityByType       map[string]GroupStat `json:"h4_similarity_by_type"`
	HighPotential          Cohort               `json:"h5_high_potential"`
	Others                 Cohort               `json:"h5_others"`
	InitiationsByVictories map[int]GroupStat    `json:"h6_initiations_by_victories"`
}

// Run is the ordered turn records of one log.
type Run []turnlog.Record

// Summarize aggregates a set of runs.
func Summarize(runs []Run, opts Options) Report {
	if opts.Bins <= 0 {
		opts.Bins = DefaultOptions().Bins
	}
	rep := Report{
		Runs:                   len(runs),
		SimilarityByType:       make(map[string]GroupStat),
		InitiationsByVictories: make(map[int]GroupStat),
	}

	var h1x, h1y, h2x, h2y, h3x, h3y []float64
	sims := make(map[string][]float64)
	wins := make(map[int][]float64)
	var high, other []civHistory

	for _, run := range runs {
		turns := turnsOf(run)
		rep.Turns += len(turns)

		hist := histories(turns)
		for _, h := range hist {
			for i, row := range h.rows {
				if row.Status != "active" {
					continue
				}
				h1x = append(h1x, row.Tech)
				h1y = append(h1y, boolf(h.initiatesWithin(i, opts.LookaheadTurns)))
				h2x = append(h2x, row.DesperationValue)
				h2y = append(h2y, boolf(row.IsAtWar))
				wins[row.Victories] = append(wins[row.Victories], float64(row.WarInitiations))
			}
			if n, pressure, initiations := h.activeTotals(); n > 0 {
				h3x = append(h3x, pressure/float64(n))
				h3y = append(h3y, initiations)
			}
		}

		for _, rec := range turns {
			for _, rel := range rec.RelationsData {
				sims[rel.Type] = append(sims[rel.Type], rel.CulturalSimilarity)
			}
		}

		hi, lo := cohorts(hist, opts.CohortFriendliness)
		high = append(high, hi...)
		other = append(other, lo...)
	}

	rep.TechVsWarSoon = Bin(h1x, h1y, opts.Bins)
	rep.DesperationVsAtWar = Bin(h2x, h2y, opts.Bins)
	rep.PressureVsInitiations = Bin(h3x, h3y, opts.Bins)
	for k, v := range sims {
		rep.SimilarityByType[k] = group(v)
	}
	for k, v := range wins {
		rep.InitiationsByVictories[k] = group(v)
	}
	rep.HighPotential = summarizeCohort(high)
	rep.Others = summarizeCohort(other)
	return rep
}

// Bin groups (x, y) samples into n equal-width bins over the range of x and
// averages y in each. Empty input yields no bins; a degenerate range yields
// a single bin.
func Bin(xs, ys []float64, n int) []BinStat {
	if len(xs) == 0 || len(xs) != len(ys) || n <= 0 {
		return nil
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if hi == lo {
		return []BinStat{{Lo: lo, Hi: hi, Count: len(ys), Mean: mean(ys)}}
	}

	width := (hi - lo) / float64(n)
	bins := make([]BinStat, n)
	sums := make([]float64, n)
	for i := range bins {
		bins[i].Lo = lo + float64(i)*width
		bins[i].Hi = lo + float64(i+1)*width
	}
	bins[n-1].Hi = hi
	for i, x := range xs {
		k := int((x - lo) / width)
		if k >= n {
			k = n - 1
		}
		bins[k].Count++
		sums[k] += ys[i]
	}
	for i := range bins {
		if bins[i].Count > 0 {
			bins[i].Mean = sums[i] / float64(bins[i].Count)
		}
	}
	return bins
}

// turnsOf returns the turn records of a run sorted by turn.
func turnsOf(run Run) []turnlog.Record {
	var out []turnlog.Record
	for _, r := range run {
		if r.Kind == turnlog.KindTurn {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Turn < out[j].Turn })
	return out
}

// civHistory is one civilization's rows across a run, in turn order.
type civHistory struct {
	id   uint64
	rows []turnlog.CivRecord
}

func histories(turns []turnlog.Record) []*civHistory {
	byID := make(map[uint64]*civHistory)
	var order []*civHistory
	for _, rec := range turns {
		for _, row := range rec.CivData {
			h, ok := byID[row.ID]
			if !ok {
				h = &civHistory{id: row.ID}
				byID[row.ID] = h
				order = append(order, h)
			}
			h.rows = append(h.rows, row)
		}
	}
	return order
}

// initiatesWithin reports whether the civilization started a war in any of
// the n rows after row i.
func (h *civHistory) initiatesWithin(i, n int) bool {
	for j := i + 1; j <= i+n && j < len(h.rows); j++ {
		if h.rows[j].WarInitiations > 0 {
			return true
		}
	}
	return false
}

// activeTotals sums population pressure and war initiations over active rows.
func (h *civHistory) activeTotals() (n int, pressure, initiations float64) {
	for _, row := range h.rows {
		if row.Status != "active" {
			continue
		}
		n++
		pressure += row.PopulationPressure
		initiations += float64(row.WarInitiations)
	}
	return n, pressure, initiations
}

// cohorts splits a run's civilizations by turn-1 friendliness and culture.
// The culture bar is the run's median turn-1 culture.
func cohorts(hist []*civHistory, minFriendliness float64) (high, other []civHistory) {
	var cultures []float64
	for _, h := range hist {
		if len(h.rows) > 0 {
			cultures = append(cultures, h.rows[0].Culture)
		}
	}
	bar := median(cultures)
	for _, h := range hist {
		if len(h.rows) == 0 {
			continue
		}
		first := h.rows[0]
		if first.Friendliness >= minFriendliness && first.Culture >= bar {
			high = append(high, *h)
		} else {
			other = append(other, *h)
		}
	}
	return high, other
}

func summarizeCohort(civs []civHistory) Cohort {
	c := Cohort{Civs: len(civs)}
	if len(civs) == 0 {
		return c
	}
	var partners, pops []float64
	survivors := 0
	for _, h := range civs {
		for _, row := range h.rows {
			if row.Status != "active" {
				continue
			}
			partners = append(partners, float64(row.NumTradePartners))
			pops = append(pops, row.Population)
		}
		if h.rows[len(h.rows)-1].Status == "active" {
			survivors++
		}
	}
	c.MeanTradePartners = mean(partners)
	c.MeanPopulation = mean(pops)
	c.SurvivalRate = float64(survivors) / float64(len(civs))
	return c
}

func group(v []float64) GroupStat {
	return GroupStat{Count: len(v), Mean: mean(v)}
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func median(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	m := len(s) / 2
	if len(s)%2 == 1 {
		return s[m]
	}
	return (s[m-1] + s[m]) / 2
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// LoadDir reads every turn log in a directory.
func LoadDir(dir string) ([]Run, error) {
	files, err := turnlog.Files(dir)
	if err != nil {
		return nil, err
	}
	runs := make([]Run, 0, len(files))
	for _, f := range files {
		recs, err := turnlog.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		runs = append(runs, recs)
	}
	return runs, nil
}
