package engine

import (
	"reflect"
	"testing"

	"github.com/talgya/civ-diplomacy/internal/civ"
	"github.com/talgya/civ-diplomacy/internal/economy"
	"github.com/talgya/civ-diplomacy/internal/entropy"
	"github.com/talgya/civ-diplomacy/internal/tuning"
	"github.com/talgya/civ-diplomacy/internal/world"
)

// newTestSim builds a simulation where civilization i+1 holds the planets
// listed in holdings[i]. Every planet yields 1 of each resource.
func newTestSim(t *testing.T, rng entropy.Source, holdings ...[]world.Coord) *Simulation {
	t.Helper()
	cfg := tuning.Default()
	cfg.Seed = 1
	m := world.NewMap(20, 20)
	civs := make([]*civ.Civilization, 0, len(holdings))
	for i, coords := range holdings {
		c := civ.New(civ.ID(i + 1))
		c.Tech = 5
		c.Population = 10
		c.Friendliness = 0.5
		c.Stock = economy.Uniform(100)
		for _, pos := range coords {
			p := &world.Planet{Position: pos, Yield: economy.Uniform(1), Capacity: 100}
			if err := m.Add(p); err != nil {
				t.Fatalf("Add: %v", err)
			}
			c.Claim(m, p.ID)
		}
		c.RefreshFlux()
		civs = append(civs, c)
	}
	return NewWithState(cfg, m, civs, rng)
}

func at(x, y int) []world.Coord { return []world.Coord{{X: x, Y: y}} }

// checkInvariants verifies ownership consistency and the elimination rules.
func checkInvariants(t *testing.T, s *Simulation) {
	t.Helper()
	for _, id := range s.Map.Order {
		p := s.Map.Get(id)
		if p.OwnerID == nil {
			for _, c := range s.Civs {
				if c.Owns(id) {
					t.Fatalf("turn %d: unowned planet %d listed by civ %d", s.Turn, id, c.ID)
				}
			}
			continue
		}
		owner := s.CivIndex[*p.OwnerID]
		if owner == nil || !owner.Owns(id) {
			t.Fatalf("turn %d: planet %d owner %d does not list it", s.Turn, id, *p.OwnerID)
		}
	}
	for _, c := range s.Civs {
		for id := range c.Planets {
			if !s.Map.Get(id).OwnedBy(c.ID) {
				t.Fatalf("turn %d: civ %d lists planet %d it does not own", s.Turn, c.ID, id)
			}
		}
		if !c.Alive && (c.PlanetCount() != 0 || c.TradePartners() != 0) {
			t.Fatalf("turn %d: eliminated civ %d holds %d planets, %d trades",
				s.Turn, c.ID, c.PlanetCount(), c.TradePartners())
		}
		if c.Alive && c.PlanetCount() == 0 {
			t.Fatalf("turn %d: civ %d alive with no planets", s.Turn, c.ID)
		}
		if c.Friendliness < 0 || c.Friendliness > 1 {
			t.Fatalf("turn %d: civ %d friendliness %v out of range", s.Turn, c.ID, c.Friendliness)
		}
		if c.Stock.Energy < 0 || c.Stock.Food < 0 || c.Stock.Minerals < 0 {
			t.Fatalf("turn %d: civ %d negative stock %v", s.Turn, c.ID, c.Stock)
		}
	}
}

func TestInteract_ZeroPowerWarIsStalemate(t *testing.T) {
	rng := entropy.NewScripted(0.9, 0.9)
	s := newTestSim(t, rng, at(0, 0), at(1, 0))
	a, b := s.CivIndex[1], s.CivIndex[2]
	a.Friendliness, b.Friendliness = 0, 1
	a.Military, b.Military = 0, 0
	a.Tech, b.Tech = 0, 0

	in := s.interact(a, b)
	if in.Type != InteractionWar {
		t.Fatalf("type = %s, want war", in.Type)
	}
	if in.AttackerID == nil || *in.AttackerID != a.ID {
		t.Fatalf("attacker = %v, want %d", in.AttackerID, a.ID)
	}
	if in.Outcome != "stalemate" {
		t.Fatalf("outcome = %q, want stalemate", in.Outcome)
	}
	if rng.Consumed() != 2 {
		t.Fatalf("draws consumed = %d, want 2 (war-score only)", rng.Consumed())
	}
	if a.Relation(b.ID) != civ.War || b.Relation(a.ID) != civ.War {
		t.Fatalf("relations = %s/%s, want war", a.Relation(b.ID), b.Relation(a.ID))
	}
	if a.WarInitiations != 1 || b.WarInitiations != 0 {
		t.Fatalf("war initiations = %d/%d, want 1/0", a.WarInitiations, b.WarInitiations)
	}
	if a.Victories != 0 || b.Victories != 0 || a.PlanetCount() != 1 || b.PlanetCount() != 1 {
		t.Fatalf("stalemate changed state: victories %d/%d planets %d/%d",
			a.Victories, b.Victories, a.PlanetCount(), b.PlanetCount())
	}
}

func TestTrade_NetFlowAndReversal(t *testing.T) {
	s := newTestSim(t, entropy.NewScripted(), at(0, 0), at(1, 0))
	a, b := s.CivIndex[1], s.CivIndex[2]
	a.Stock, b.Stock = economy.Resources{}, economy.Resources{Energy: 80}
	a.Demand = economy.Resources{Energy: 50}
	a.RefreshFlux()
	b.RefreshFlux()
	techA, techB := a.Tech, b.Tech

	in := s.trade(a, b)
	if in.Type != InteractionTrade || in.Traded == nil || in.Traded.Energy != 50 {
		t.Fatalf("interaction = %+v, want trade of 50 energy", in)
	}
	if a.Stock.Energy != 50 || b.Stock.Energy != 30 {
		t.Fatalf("stocks = %v/%v, want 50/30", a.Stock.Energy, b.Stock.Energy)
	}
	if a.Tech != techA+s.Config.Diplomacy.TradeTechBoost || b.Tech != techB {
		t.Fatalf("tech = %v/%v, want boost on A only", a.Tech, b.Tech)
	}
	if a.Relation(b.ID) != civ.Peace {
		t.Fatalf("relation = %s, want peace", a.Relation(b.ID))
	}
	if a.TradePartners() != 1 || b.TradePartners() != 1 {
		t.Fatalf("trade partners = %d/%d, want 1/1", a.TradePartners(), b.TradePartners())
	}

	if !civ.BreakTrade(a, b) {
		t.Fatalf("BreakTrade found nothing outstanding")
	}
	if a.Stock.Energy != 0 || b.Stock.Energy != 80 {
		t.Fatalf("stocks after reversal = %v/%v, want 0/80", a.Stock.Energy, b.Stock.Energy)
	}
}

func TestTrade_RepeatedTradesReverseInFull(t *testing.T) {
	s := newTestSim(t, entropy.NewScripted(), at(0, 0), at(1, 0))
	a, b := s.CivIndex[1], s.CivIndex[2]
	a.Stock, b.Stock = economy.Resources{}, economy.Resources{Energy: 200}

	for _, amount := range []float64{50, 30} {
		flow := economy.Resources{Energy: amount}
		ApplyTrade(a, b, economy.Clearing{FlowToA: flow, NetToA: flow}, 0)
	}
	if a.Stock.Energy != 80 || b.Stock.Energy != 120 {
		t.Fatalf("stocks = %v/%v, want 80/120", a.Stock.Energy, b.Stock.Energy)
	}
	if a.Trades[b.ID].Energy != 80 || b.Trades[a.ID].Energy != -80 {
		t.Fatalf("ledgers = %v/%v, want +80/-80", a.Trades[b.ID], b.Trades[a.ID])
	}

	if !civ.BreakTrade(a, b) {
		t.Fatalf("BreakTrade found nothing outstanding")
	}
	if a.Stock.Energy != 0 || b.Stock.Energy != 200 {
		t.Fatalf("stocks after reversal = %v/%v, want 0/200", a.Stock.Energy, b.Stock.Energy)
	}
}

func TestInteract_MaxFriendlinessCooperates(t *testing.T) {
	// War-score draws miss, so the cooperation rule decides.
	rng := entropy.NewScripted(0.99, 0.99)
	s := newTestSim(t, rng, at(0, 0), at(1, 0))
	a, b := s.CivIndex[1], s.CivIndex[2]
	a.Friendliness, b.Friendliness = 1, 1
	techA, techB := a.Tech, b.Tech
	cultureA, cultureB := a.Culture, b.Culture
	stockA, stockB := a.Stock, b.Stock

	in := s.interact(a, b)
	if in.Type != InteractionCooperation {
		t.Fatalf("type = %s, want cooperation", in.Type)
	}
	d := s.Config.Diplomacy
	if a.Tech != techA+d.CooperationTechBoost || b.Tech != techB+d.CooperationTechBoost {
		t.Fatalf("tech = %v/%v, want both boosted by %v", a.Tech, b.Tech, d.CooperationTechBoost)
	}
	if a.Culture != cultureA+d.CooperationCultureBoost || b.Culture != cultureB+d.CooperationCultureBoost {
		t.Fatalf("culture = %v/%v, want both boosted by %v", a.Culture, b.Culture, d.CooperationCultureBoost)
	}
	if a.Relation(b.ID) != civ.Peace || b.Relation(a.ID) != civ.Peace {
		t.Fatalf("relations = %s/%s, want peace", a.Relation(b.ID), b.Relation(a.ID))
	}
	if a.Stock != stockA || b.Stock != stockB || a.WarInitiations != 0 || b.WarInitiations != 0 {
		t.Fatalf("cooperation moved resources or counted a war")
	}

	// One side short of the maximum falls through to trade.
	s2 := newTestSim(t, entropy.NewScripted(0.99, 0.99), at(0, 0), at(1, 0))
	c, e := s2.CivIndex[1], s2.CivIndex[2]
	c.Friendliness, e.Friendliness = 1, 0.99
	if in := s2.interact(c, e); in.Type == InteractionCooperation {
		t.Fatalf("cooperation with friendliness below 1")
	}
}

func TestTrade_NothingToExchange(t *testing.T) {
	s := newTestSim(t, entropy.NewScripted(), at(0, 0), at(1, 0))
	a, b := s.CivIndex[1], s.CivIndex[2]

	in := s.trade(a, b)
	if in.Type != InteractionNone {
		t.Fatalf("type = %s, want none", in.Type)
	}
	if a.Relation(b.ID) != civ.Neutral {
		t.Fatalf("relation = %s, want neutral", a.Relation(b.ID))
	}
}

func TestResolveBattle_ConquestAndElimination(t *testing.T) {
	s := newTestSim(t, entropy.NewScripted(0, 0), at(0, 0), at(1, 0))
	att, def := s.CivIndex[1], s.CivIndex[2]
	att.Military, def.Military = 10, 1
	target := s.selectTarget(att, def)

	b := s.resolveBattle(att, def, target)
	if b.Outcome != BattleAttackerWon {
		t.Fatalf("outcome = %s, want attacker_won", b.Outcome)
	}
	if b.Conquest == nil || b.Conquest.PlanetID != target.ID || b.Conquest.NewOwnerID != att.ID {
		t.Fatalf("conquest = %+v, want planet %d to civ %d", b.Conquest, target.ID, att.ID)
	}
	if !b.Eliminated || def.Alive {
		t.Fatalf("defender should be eliminated")
	}
	if !target.OwnedBy(att.ID) || att.PlanetCount() != 2 {
		t.Fatalf("attacker holds %d planets, target owner %v", att.PlanetCount(), target.OwnerID)
	}
	if att.Victories != 1 || att.Military != 10+s.Config.Combat.WarWinBoost {
		t.Fatalf("attacker victories %d military %v", att.Victories, att.Military)
	}
	checkInvariants(t, s)
}

func TestResolveBattle_DefenderWins(t *testing.T) {
	s := newTestSim(t, entropy.NewScripted(0.99), at(0, 0), at(1, 0))
	att, def := s.CivIndex[1], s.CivIndex[2]
	att.Military, def.Military = 1, 10
	att.Culture = 0.05
	tech := att.Tech

	b := s.resolveBattle(att, def, s.selectTarget(att, def))
	if b.Outcome != BattleDefenderWon {
		t.Fatalf("outcome = %s, want defender_won", b.Outcome)
	}
	if def.Victories != 1 || def.PlanetCount() != 1 {
		t.Fatalf("defender victories %d planets %d", def.Victories, def.PlanetCount())
	}
	if att.Tech != tech-s.Config.Combat.WarPenalty || att.Culture != 0 {
		t.Fatalf("attacker tech %v culture %v, want penalty floored at 0", att.Tech, att.Culture)
	}
}

func TestResolveBattle_WinWithoutConquest(t *testing.T) {
	s := newTestSim(t, entropy.NewScripted(0, 0.99), at(0, 0), at(1, 0))
	att, def := s.CivIndex[1], s.CivIndex[2]
	att.Military, def.Military = 10, 1

	b := s.resolveBattle(att, def, s.selectTarget(att, def))
	if b.Outcome != BattleAttackerWon || b.Conquest != nil {
		t.Fatalf("battle = %+v, want win without conquest", b)
	}
	if def.PlanetCount() != 1 || !def.Alive {
		t.Fatalf("defender lost its planet")
	}
}

func TestDesperationAttacker(t *testing.T) {
	a, b := civ.New(1), civ.New(2)
	if _, _, ok := desperationAttacker(a, b); ok {
		t.Fatalf("no one is desperate")
	}

	b.IsDesperate = true
	if att, _, _ := desperationAttacker(a, b); att != b {
		t.Fatalf("single desperate side should attack")
	}

	a.IsDesperate = true
	a.Military, b.Military = 3, 5
	if att, _, _ := desperationAttacker(a, b); att != b {
		t.Fatalf("higher military should attack")
	}

	a.Military = 5
	a.Friendliness, b.Friendliness = 0.8, 0.2
	if att, _, _ := desperationAttacker(a, b); att != b {
		t.Fatalf("less friendly should attack on equal military")
	}

	a.Friendliness = 0.2
	if att, _, _ := desperationAttacker(a, b); att != a {
		t.Fatalf("lower id should attack on full tie")
	}
}

func TestWarScoreAttacker_TieGoesToLowerID(t *testing.T) {
	s := newTestSim(t, entropy.NewScripted(0, 0), at(0, 0), at(1, 0))
	a, b := s.CivIndex[1], s.CivIndex[2]
	a.Friendliness, b.Friendliness = 0.3, 0.3

	att, def, ok := s.warScoreAttacker(a, b)
	if !ok || att != a || def != b {
		t.Fatalf("attacker = %v, want civ 1", att)
	}

	s.rng = entropy.NewScripted(0, 0)
	b.Friendliness = 0.1
	if att, _, _ := s.warScoreAttacker(a, b); att != b {
		t.Fatalf("higher score should attack")
	}
}

func TestSelectTarget(t *testing.T) {
	s := newTestSim(t, entropy.NewScripted(),
		at(0, 0),
		[]world.Coord{{X: 5, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 2}},
	)
	att, def := s.CivIndex[1], s.CivIndex[2]

	target := s.selectTarget(att, def)
	if target == nil || target.Position != (world.Coord{X: 2, Y: 0}) {
		t.Fatalf("target = %+v, want first nearest planet (2,0)", target)
	}
}

func TestCanInteract_RequiresBothRanges(t *testing.T) {
	s := newTestSim(t, entropy.NewScripted(), at(0, 0), at(3, 0))
	a, b := s.CivIndex[1], s.CivIndex[2]

	a.Tech, b.Tech = 1, 1 // range 5
	if !s.canInteract(a, b) {
		t.Fatalf("both in range")
	}
	b.Tech = 0.4 // range 2
	if s.canInteract(a, b) {
		t.Fatalf("b cannot reach a")
	}
}

func TestStep_MilitaryVictory(t *testing.T) {
	// War-score draws miss, the aggression rule fires, then win and conquest.
	rng := entropy.NewScripted(0.99, 0.99, 0, 0)
	s := newTestSim(t, rng, at(0, 0), at(1, 0))
	s.CivIndex[1].Friendliness = 0
	s.CivIndex[2].Friendliness = 1

	sum, out := s.Step()
	if out == nil {
		t.Fatalf("expected the run to end")
	}
	if out.End != EndMilitary || out.WinnerID == nil || *out.WinnerID != 1 || out.Turn != 1 {
		t.Fatalf("outcome = %+v, want Military won by 1 on turn 1", out)
	}
	if len(sum.Conquests) != 1 || sum.Wars() != 1 {
		t.Fatalf("summary conquests=%d wars=%d, want 1/1", len(sum.Conquests), sum.Wars())
	}
	if sum.Civs[1].Status != StatusEliminated {
		t.Fatalf("civ 2 status = %s", sum.Civs[1].Status)
	}
	checkInvariants(t, s)
}

func TestStep_CultureVictory(t *testing.T) {
	s := newTestSim(t, entropy.NewScripted(), at(0, 0), at(1, 0))
	s.Config.Economy.MaxCulture = 1
	for _, c := range s.Civs {
		c.Population, c.Tech, c.Stock = 1, 1, economy.Resources{}
	}
	s.CivIndex[2].Culture = 5

	_, out := s.Step()
	if out == nil || out.End != EndCulture || out.WinnerID == nil || *out.WinnerID != 2 {
		t.Fatalf("outcome = %+v, want Culture won by 2", out)
	}
	if !s.CivIndex[2].HasWonCultureVictory {
		t.Fatalf("culture victory flag not set")
	}
}

func TestStep_TurnCeilingIsStalemate(t *testing.T) {
	s := newTestSim(t, entropy.NewScripted(), at(0, 0), at(9, 9))
	s.Config.MaxTurns = 3
	for _, c := range s.Civs {
		c.Population, c.Tech, c.Stock = 1, 0, economy.Resources{}
	}

	var out *Outcome
	for i := 0; i < 3; i++ {
		var sum TurnSummary
		sum, out = s.Step()
		if len(sum.Interactions) != 0 {
			t.Fatalf("turn %d: out-of-range civs interacted", sum.Turn)
		}
	}
	if out == nil || out.End != EndStalemate || out.WinnerID != nil || out.Turn != 3 {
		t.Fatalf("outcome = %+v, want Stalemate on turn 3", out)
	}
	if _, again := s.Step(); again != out || s.Turn != 3 {
		t.Fatalf("Step after the end advanced the run")
	}
}

func runToEnd(t *testing.T, cfg tuning.Config) ([]TurnSummary, *Simulation) {
	t.Helper()
	s := New(cfg)
	var turns []TurnSummary
	for !s.Done() {
		sum, _ := s.Step()
		turns = append(turns, sum)
		checkInvariants(t, s)
	}
	return turns, s
}

func TestNew_DeterministicPerSeed(t *testing.T) {
	cfg := tuning.Default()
	cfg.Seed = 42
	cfg.MaxTurns = 40

	first, s1 := runToEnd(t, cfg)
	second, s2 := runToEnd(t, cfg)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same seed produced different turn histories")
	}
	if !reflect.DeepEqual(s1.Outcome(), s2.Outcome()) {
		t.Fatalf("outcomes differ: %+v vs %+v", s1.Outcome(), s2.Outcome())
	}
}

func TestNew_InvariantsAcrossScenarios(t *testing.T) {
	for _, sc := range tuning.Scenarios {
		t.Run(string(sc), func(t *testing.T) {
			cfg := tuning.Default()
			cfg.Seed = 7
			cfg.Scenario = sc
			cfg.MaxTurns = 60
			cfg.World.NumPlanets = 8
			cfg.World.GridWidth, cfg.World.GridHeight = 8, 8

			_, s := runToEnd(t, cfg)
			if len(s.Civs) != 8 {
				t.Fatalf("civs = %d, want one per planet", len(s.Civs))
			}
			out := s.Outcome()
			if out.End == EndStalemate && out.WinnerID != nil {
				t.Fatalf("stalemate with a winner")
			}
			if out.End != EndStalemate && out.WinnerID == nil {
				t.Fatalf("%s without a winner", out.End)
			}
		})
	}
}

func TestStep_OwnershipChangesOnlyByConquest(t *testing.T) {
	for _, sc := range tuning.Scenarios {
		t.Run(string(sc), func(t *testing.T) {
			cfg := tuning.Default()
			cfg.Seed = 11
			cfg.Scenario = sc
			cfg.MaxTurns = 60
			cfg.World.NumPlanets = 8
			cfg.World.GridWidth, cfg.World.GridHeight = 8, 8
			s := New(cfg)

			for !s.Done() {
				owners := ownersOf(s)
				sum, _ := s.Step()

				// Replay the turn's conquests over the old ownership.
				for _, ev := range sum.Conquests {
					if owners[ev.PlanetID] != ev.OldOwnerID {
						t.Fatalf("turn %d: conquest %+v but planet was held by %d",
							sum.Turn, ev, owners[ev.PlanetID])
					}
					owners[ev.PlanetID] = ev.NewOwnerID
				}
				if after := ownersOf(s); !reflect.DeepEqual(owners, after) {
					t.Fatalf("turn %d: ownership changed without a matching conquest", sum.Turn)
				}

				for _, in := range sum.Interactions {
					if in.Type != InteractionWar || in.Outcome == BattleAttackerWon.String() {
						continue
					}
					for _, ev := range sum.Conquests {
						if in.TargetPlanetID != nil && ev.PlanetID == *in.TargetPlanetID &&
							ev.NewOwnerID == *in.AttackerID && ev.OldOwnerID == *in.DefenderID {
							t.Fatalf("turn %d: %s war produced conquest %+v", sum.Turn, in.Outcome, ev)
						}
					}
				}
			}
		})
	}
}

func ownersOf(s *Simulation) map[world.PlanetID]civ.ID {
	owners := make(map[world.PlanetID]civ.ID, len(s.Map.Order))
	for _, id := range s.Map.Order {
		if p := s.Map.Get(id); p.OwnerID != nil {
			owners[id] = *p.OwnerID
		}
	}
	return owners
}

func TestEngine_RunAndStop(t *testing.T) {
	cfg := tuning.Default()
	cfg.Seed = 3
	cfg.MaxTurns = 5

	e := NewEngine(New(cfg))
	turns, ends := 0, 0
	e.OnTurn = func(TurnSummary) { turns++ }
	e.OnEnd = func(Outcome) { ends++ }
	out := e.Run()
	if out == nil || turns != out.Turn || ends != 1 {
		t.Fatalf("run: outcome %+v turns %d ends %d", out, turns, ends)
	}
	if e.Running() {
		t.Fatalf("engine still running after the end")
	}

	e = NewEngine(New(cfg))
	e.OnTurn = func(TurnSummary) { e.Stop() }
	if out := e.Run(); out != nil {
		t.Fatalf("stopped run returned %+v", out)
	}
	if e.Sim.Turn != 1 {
		t.Fatalf("stopped at turn %d, want 1", e.Sim.Turn)
	}
}
