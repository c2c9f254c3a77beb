package civ

import (
	"errors"
	"math"
	"testing"

	"github.com/talgya/civ-diplomacy/internal/economy"
	"github.com/talgya/civ-diplomacy/internal/entropy"
	"github.com/talgya/civ-diplomacy/internal/tuning"
	"github.com/talgya/civ-diplomacy/internal/world"
)

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %.12f, want %.12f", name, got, want)
	}
}

// testMap builds a map with one planet per yield, in row 0.
func testMap(t *testing.T, yields ...economy.Resources) *world.Map {
	t.Helper()
	m := world.NewMap(10, 10)
	for i, y := range yields {
		if err := m.Add(&world.Planet{Position: world.Coord{X: i}, Yield: y, Capacity: 100}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	return m
}

func TestAdvance_OneTurnNumerics(t *testing.T) {
	m := testMap(t, economy.Uniform(10))
	c := New(1)
	c.Claim(m, 1)
	c.Population = 10
	c.Tech = 2
	c.Friendliness = 0.5
	c.Stock = economy.Uniform(20)

	p := tuning.Default().Economy
	if won := c.Advance(p, m); won {
		t.Fatalf("unexpected culture victory")
	}

	approx(t, "population", c.Population, 20)
	approx(t, "culture", c.Culture, 0.39)
	approx(t, "military", c.Military, 3.5)
	approx(t, "tech", c.Tech, 2+0.05*math.Log(20)+0.1*(30.0/20.0))
	approx(t, "friendliness", c.Friendliness, 0.5+0.05*(0.39/800))
	approx(t, "demand.energy", c.Demand.Energy, 2+0.05*c.Tech+0.05*3.5)
	approx(t, "demand.food", c.Demand.Food, 4)
	approx(t, "demand.minerals", c.Demand.Minerals, 0.35)
	approx(t, "surplus.food", c.Surplus.Food, 26)
	approx(t, "population_cap", c.PopulationCap, 100)
	if !c.Deficit.IsZero() || c.PopulationPressure != 0 || c.Desperation != 0 || c.IsDesperate {
		t.Fatalf("expected no pressure, got deficit=%v pop_pressure=%v desperation=%v",
			c.Deficit, c.PopulationPressure, c.Desperation)
	}
}

func TestAdvance_PaysLastTurnDemand(t *testing.T) {
	m := testMap(t, economy.Resources{})
	c := New(1)
	c.Claim(m, 1)
	c.Stock = economy.Resources{Energy: 5, Food: 1, Minerals: 0}
	c.Demand = economy.Resources{Energy: 2, Food: 10, Minerals: 3}

	c.Advance(tuning.Default().Economy, m)
	approx(t, "stock.energy", c.Stock.Energy, 3)
	approx(t, "stock.food", c.Stock.Food, 0)
	approx(t, "stock.minerals", c.Stock.Minerals, 0)
}

func TestAdvance_DesperationFromOvercrowding(t *testing.T) {
	m := testMap(t, economy.Uniform(1))
	c := New(1)
	c.Claim(m, 1)
	c.Population = 400 // capacity 100, food cannot keep up
	c.Tech = 1

	p := tuning.Default().Economy
	c.Advance(p, m)

	if c.PopulationPressure <= 0 {
		t.Fatalf("population pressure = %v, want > 0", c.PopulationPressure)
	}
	if c.ResourcePressureComponent <= 0 || c.ResourcePressureComponent > 1 {
		t.Fatalf("resource pressure component = %v", c.ResourcePressureComponent)
	}
	want := p.DesperationPopulation*c.PopulationPressure + p.DesperationResources*c.ResourcePressureComponent
	approx(t, "desperation", c.Desperation, want)
	if !c.IsDesperate {
		t.Fatalf("expected desperate civ, desperation=%v", c.Desperation)
	}
	if c.ResourcePressure.Food <= 0 || c.ResourcePressure.Food > 1 {
		t.Fatalf("food pressure = %v", c.ResourcePressure.Food)
	}
}

func TestAdvance_ZeroPopulationStaysFinite(t *testing.T) {
	m := testMap(t, economy.Resources{})
	c := New(1)
	c.Claim(m, 1)
	c.Advance(tuning.Default().Economy, m)

	for name, v := range map[string]float64{
		"population": c.Population, "tech": c.Tech, "culture": c.Culture,
		"military": c.Military, "desperation": c.Desperation,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			t.Fatalf("%s = %v", name, v)
		}
	}
}

func TestAdvance_BoundsOverManyTurns(t *testing.T) {
	m := testMap(t, economy.Uniform(8), economy.Uniform(3))
	c := New(1)
	c.Claim(m, 1)
	c.Claim(m, 2)
	c.Population = 30
	c.Tech = 3
	c.Friendliness = 0.95
	c.Victories = 4

	p := tuning.Default().Economy
	p.MaxCulture = 50
	flips := 0
	for turn := 0; turn < 40; turn++ {
		if c.Advance(p, m) {
			flips++
		}
		if c.Friendliness < 0 || c.Friendliness > 1 {
			t.Fatalf("turn %d: friendliness %v out of bounds", turn, c.Friendliness)
		}
		if c.Stock.Energy < 0 || c.Stock.Food < 0 || c.Stock.Minerals < 0 {
			t.Fatalf("turn %d: negative stock %v", turn, c.Stock)
		}
		if turn > 0 && flips > 0 && !c.HasWonCultureVictory {
			t.Fatalf("turn %d: culture victory flag cleared", turn)
		}
	}
	if flips != 1 {
		t.Fatalf("culture victory fired %d times, want exactly 1", flips)
	}
}

func TestSetRelation_RejectsUnknownTag(t *testing.T) {
	c := New(1)
	if err := c.SetRelation(2, War); err != nil {
		t.Fatalf("SetRelation(War): %v", err)
	}
	err := c.SetRelation(2, Relation(9))
	if !errors.Is(err, ErrInvalidRelation) {
		t.Fatalf("expected ErrInvalidRelation, got %v", err)
	}
	if c.Relation(2) != War {
		t.Fatalf("failed SetRelation must not overwrite the tag, got %v", c.Relation(2))
	}
}

func TestBreakTrade_ReversesBothLedgers(t *testing.T) {
	a, b := New(1), New(2)
	a.Stock = economy.Resources{Energy: 60, Food: 10}
	b.Stock = economy.Resources{Energy: 30, Food: 15}
	a.RecordTrade(b.ID, economy.Resources{Energy: 50, Food: -5})
	b.RecordTrade(a.ID, economy.Resources{Energy: -50, Food: 5})

	if !BreakTrade(a, b) {
		t.Fatalf("BreakTrade reported nothing outstanding")
	}
	if a.Stock != (economy.Resources{Energy: 10, Food: 15}) {
		t.Fatalf("a stock = %v", a.Stock)
	}
	if b.Stock != (economy.Resources{Energy: 80, Food: 10}) {
		t.Fatalf("b stock = %v", b.Stock)
	}
	if a.TradePartners() != 0 || b.TradePartners() != 0 {
		t.Fatalf("ledgers not cleared")
	}
	if BreakTrade(a, b) {
		t.Fatalf("second BreakTrade should be a no-op")
	}
}

func TestRecordTrade_Accumulates(t *testing.T) {
	a := New(1)
	a.RecordTrade(2, economy.Resources{Energy: 50})
	a.RecordTrade(2, economy.Resources{Energy: 30, Food: -4})
	if got := a.Trades[2]; got != (economy.Resources{Energy: 80, Food: -4}) {
		t.Fatalf("ledger = %v, want energy 80 food -4", got)
	}

	a.RecordTrade(2, economy.Resources{Energy: -80, Food: 4})
	if _, ok := a.Trades[2]; ok || a.TradePartners() != 0 {
		t.Fatalf("netted ledger should be dropped, got %v", a.Trades)
	}
}

func TestAdvance_CultureVictoryFiresOnce(t *testing.T) {
	m := testMap(t, economy.Uniform(10))
	c := New(1)
	c.Claim(m, 1)
	c.Population = 10
	c.Culture = 5

	p := tuning.Default().Economy
	p.MaxCulture = 1
	if !c.Advance(p, m) {
		t.Fatalf("first Advance past the bar should report the victory")
	}
	for i := 0; i < 3; i++ {
		if c.Advance(p, m) {
			t.Fatalf("Advance %d reported the victory again", i+2)
		}
		if !c.HasWonCultureVictory {
			t.Fatalf("culture victory flag cleared on Advance %d", i+2)
		}
	}
}

func TestTransferAndEliminate(t *testing.T) {
	m := testMap(t, economy.Uniform(1), economy.Uniform(1))
	a, b := New(1), New(2)
	a.Claim(m, 1)
	b.Claim(m, 2)
	a.RecordTrade(b.ID, economy.Resources{Food: 4})
	b.RecordTrade(a.ID, economy.Resources{Food: -4})
	a.Stock = economy.Resources{Food: 4}

	Transfer(m, 2, b, a)
	if !m.Get(2).OwnedBy(a.ID) || b.Owns(2) || !a.Owns(2) {
		t.Fatalf("transfer did not move ownership")
	}
	approx(t, "a.population_cap", a.PopulationCap, 200)
	approx(t, "b.population_cap", b.PopulationCap, 0)

	b.Eliminate(map[ID]*Civilization{a.ID: a, b.ID: b})
	if b.Alive {
		t.Fatalf("eliminated civ still alive")
	}
	if a.Stock.Food != 0 || a.TradePartners() != 0 {
		t.Fatalf("trade not reversed on elimination: stock=%v partners=%d", a.Stock, a.TradePartners())
	}
}

func TestSpawner_PresetsAndIDs(t *testing.T) {
	w := tuning.Default().World
	s := NewSpawner(entropy.NewSeeded(5))

	low := s.Spawn(tuning.ScenarioAllLow.PresetFor(0), w)
	rnd := s.Spawn(tuning.ScenarioRandom.PresetFor(1), w)

	if low.ID != 1 || rnd.ID != 2 {
		t.Fatalf("ids = %d, %d", low.ID, rnd.ID)
	}
	if low.Friendliness != 0.1 || low.Stock != economy.Uniform(20) {
		t.Fatalf("all-low preset not applied: %v %v", low.Friendliness, low.Stock)
	}
	if rnd.Friendliness < 0 || rnd.Friendliness >= 1 {
		t.Fatalf("random friendliness %v", rnd.Friendliness)
	}
	if rnd.Tech < w.TechMin || rnd.Tech >= w.TechMax {
		t.Fatalf("tech %v outside [%v,%v)", rnd.Tech, w.TechMin, w.TechMax)
	}
}
