// Simulation ties together planets, civilizations and the per-turn systems.
package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/talgya/civ-diplomacy/internal/civ"
	"github.com/talgya/civ-diplomacy/internal/entropy"
	"github.com/talgya/civ-diplomacy/internal/tuning"
	"github.com/talgya/civ-diplomacy/internal/world"
)

// Seed offsets for independent random streams.
const (
	seedOffsetWorld   = 100
	seedOffsetSpawner = 200
)

// maxEvents bounds the retained event history.
const maxEvents = 1000

// Simulation holds the complete state of one run.
type Simulation struct {
	Config   tuning.Config
	Seed     int64 // Effective seed (never 0)
	Map      *world.Map
	Civs     []*civ.Civilization // Full roster in id order; never shrinks
	CivIndex map[civ.ID]*civ.Civilization
	Turn     int
	Events   []Event

	rng     entropy.Source
	outcome *Outcome

	// Records of the turn in progress.
	interactions []Interaction
	conquests    []ConquestEvent
}

// Event is a notable occurrence in the run.
type Event struct {
	Turn        int    `json:"turn"`
	Description string `json:"description"`
	Category    string `json:"category"` // "war", "conquest", "elimination", "victory"
}

// New generates the planets and civilizations for a run. The config is
// clamped first; every civilization starts on one home planet.
func New(cfg tuning.Config) *Simulation {
	cfg.Clamp()
	root := entropy.NewSeeded(cfg.Seed)
	cfg.Seed = root.Seed()

	m := world.Generate(world.GenConfig{
		Width:       cfg.World.GridWidth,
		Height:      cfg.World.GridHeight,
		NumPlanets:  cfg.World.NumPlanets,
		Seed:        cfg.Seed,
		YieldMin:    cfg.World.YieldMin,
		YieldMax:    cfg.World.YieldMax,
		CapacityMin: cfg.World.CapacityMin,
		CapacityMax: cfg.World.CapacityMax,
		Clustering:  cfg.World.Clustering,
	}, root.Derive(seedOffsetWorld))

	spawner := civ.NewSpawner(root.Derive(seedOffsetSpawner))
	civs := make([]*civ.Civilization, 0, cfg.World.Civs())
	for i := 0; i < cfg.World.Civs() && i < len(m.Order); i++ {
		c := spawner.Spawn(cfg.Scenario.PresetFor(i), cfg.World)
		c.Claim(m, m.Order[i])
		civs = append(civs, c)
	}

	sim := NewWithState(cfg, m, civs, root)
	slog.Info("simulation ready",
		"seed", sim.Seed,
		"scenario", cfg.Scenario,
		"civs", len(sim.Civs),
		"planets", m.PlanetCount(),
		"grid", fmt.Sprintf("%dx%d", m.Width, m.Height),
		"max_turns", cfg.MaxTurns,
	)
	return sim
}

// NewWithState wraps an existing map and roster. Civilizations must already
// hold their planets.
func NewWithState(cfg tuning.Config, m *world.Map, civs []*civ.Civilization, rng entropy.Source) *Simulation {
	sorted := append([]*civ.Civilization(nil), civs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	index := make(map[civ.ID]*civ.Civilization, len(sorted))
	for _, c := range sorted {
		index[c.ID] = c
		c.Alive = c.PlanetCount() > 0
	}

	sim := &Simulation{
		Config:   cfg,
		Seed:     cfg.Seed,
		Map:      m,
		Civs:     sorted,
		CivIndex: index,
		rng:      rng,
	}
	if s, ok := rng.(*entropy.Seeded); ok {
		sim.Seed = s.Seed()
	}
	return sim
}

// Step advances one turn. It returns the turn's summary and, once the run
// has ended, its outcome. Calls after the end return the same outcome.
func (s *Simulation) Step() (TurnSummary, *Outcome) {
	if s.outcome != nil {
		return TurnSummary{Turn: s.Turn}, s.outcome
	}

	s.Turn++
	s.interactions = nil
	s.conquests = nil

	// Economy first, so decisions see this turn's attributes.
	for _, c := range s.Civs {
		if !c.Alive {
			continue
		}
		if c.Advance(s.Config.Economy, s.Map) {
			s.emit("victory", fmt.Sprintf("civilization %d reached culture %.1f", c.ID, c.Culture))
			return s.finish(EndCulture, c)
		}
	}

	if len(s.Alive()) == 0 {
		return s.finish(EndStalemate, nil)
	}

	for _, c := range s.Alive() {
		c.WarInitiations = 0
	}

	s.runInteractions()

	alive := s.Alive()
	switch len(alive) {
	case 0:
		return s.finish(EndStalemate, nil)
	case 1:
		return s.finish(EndMilitary, alive[0])
	}
	if s.Turn >= s.Config.MaxTurns {
		return s.finish(EndStalemate, nil)
	}

	return s.snapshot(), nil
}

// Outcome returns the terminal state, or nil while running.
func (s *Simulation) Outcome() *Outcome {
	return s.outcome
}

// Done reports whether the run has ended.
func (s *Simulation) Done() bool {
	return s.outcome != nil
}

// Alive returns the living civilizations in id order.
func (s *Simulation) Alive() []*civ.Civilization {
	var out []*civ.Civilization
	for _, c := range s.Civs {
		if c.Alive {
			out = append(out, c)
		}
	}
	return out
}

func (s *Simulation) finish(end EndType, winner *civ.Civilization) (TurnSummary, *Outcome) {
	o := &Outcome{End: end, Turn: s.Turn}
	if winner != nil {
		id := winner.ID
		o.WinnerID = &id
	}
	s.outcome = o

	attrs := []any{"end_type", end, "turn", s.Turn}
	if winner != nil {
		attrs = append(attrs, "winner", winner.ID)
	}
	slog.Info("simulation ended", attrs...)
	return s.snapshot(), o
}

// emit records an event, trimming old history.
func (s *Simulation) emit(category, description string) {
	s.Events = append(s.Events, Event{Turn: s.Turn, Description: description, Category: category})
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
}

// setRelation stores a tag on both sides. The tags used by the engine are
// always valid, so a failure here is a programming error worth logging.
func setRelation(a, b *civ.Civilization, r civ.Relation) {
	if err := civ.SetMutualRelation(a, b, r); err != nil {
		slog.Error("set relation failed", "civ_a", a.ID, "civ_b", b.ID, "error", err)
	}
}

// eliminate removes a civilization from further play.
func (s *Simulation) eliminate(c *civ.Civilization) {
	c.Eliminate(s.CivIndex)
	s.emit("elimination", fmt.Sprintf("civilization %d has been eliminated", c.ID))
	slog.Info("civilization eliminated", "civ", c.ID, "turn", s.Turn)
}
