// Package civ provides the civilization entity: growth attributes, resource
// ledger, diplomatic relations and planet holdings.
package civ

import (
	"errors"
	"fmt"

	"github.com/talgya/civ-diplomacy/internal/economy"
	"github.com/talgya/civ-diplomacy/internal/world"
)

// ID is a unique, run-scoped civilization identifier.
type ID = uint64

// Relation is the diplomatic tag one civilization holds toward another.
type Relation uint8

const (
	Neutral Relation = iota
	Peace
	War
)

// ErrInvalidRelation is returned when a relation tag outside
// {Neutral, Peace, War} is stored.
var ErrInvalidRelation = errors.New("invalid diplomatic relation")

// Valid reports whether r is one of the known tags.
func (r Relation) Valid() bool {
	return r <= War
}

func (r Relation) String() string {
	switch r {
	case Neutral:
		return "neutral"
	case Peace:
		return "peace"
	case War:
		return "war"
	}
	return fmt.Sprintf("relation(%d)", uint8(r))
}

// Civilization is one competing polity.
type Civilization struct {
	ID ID `json:"id"`

	Tech          float64 `json:"tech"`
	Culture       float64 `json:"culture"`
	Military      float64 `json:"military"`
	Friendliness  float64 `json:"friendliness"` // 0 aggressive, 1 cooperative
	Population    float64 `json:"population"`   // Thousands of people
	PopulationCap float64 `json:"population_cap"`

	Stock   economy.Resources `json:"stock"`
	Demand  economy.Resources `json:"demand"`
	Surplus economy.Resources `json:"surplus"`
	Deficit economy.Resources `json:"deficit"`

	PopulationPressure        float64           `json:"population_pressure"`
	ResourcePressure          economy.Resources `json:"resource_pressure"`
	ResourcePressureComponent float64           `json:"resource_pressure_component"`
	Desperation               float64           `json:"desperation"`
	IsDesperate               bool              `json:"is_desperate"`

	Victories      int `json:"victories"`
	WarInitiations int `json:"war_initiations"` // Reset every turn

	Alive                bool `json:"alive"`
	HasWonCultureVictory bool `json:"has_won_culture_victory"`

	Planets   map[world.PlanetID]struct{} `json:"-"`
	Relations map[ID]Relation             `json:"-"`
	Trades    map[ID]economy.Resources    `json:"-"` // Outstanding net amounts received per counterpart
}

// New creates a civilization with no planets.
func New(id ID) *Civilization {
	return &Civilization{
		ID:        id,
		Planets:   make(map[world.PlanetID]struct{}),
		Relations: make(map[ID]Relation),
		Trades:    make(map[ID]economy.Resources),
	}
}

// PlanetCount returns the number of planets held.
func (c *Civilization) PlanetCount() int {
	return len(c.Planets)
}

// Owns reports whether the civilization holds a planet.
func (c *Civilization) Owns(id world.PlanetID) bool {
	_, ok := c.Planets[id]
	return ok
}

// Relation returns the tag held toward another civilization.
func (c *Civilization) Relation(other ID) Relation {
	return c.Relations[other]
}

// SetRelation stores the tag held toward another civilization.
func (c *Civilization) SetRelation(other ID, r Relation) error {
	if !r.Valid() {
		return fmt.Errorf("civ %d toward %d: %w: %d", c.ID, other, ErrInvalidRelation, uint8(r))
	}
	c.Relations[other] = r
	return nil
}

// SetMutualRelation sets the same tag on both sides.
func SetMutualRelation(a, b *Civilization, r Relation) error {
	if err := a.SetRelation(b.ID, r); err != nil {
		return err
	}
	return b.SetRelation(a.ID, r)
}

// AtWar reports whether any relation is War.
func (c *Civilization) AtWar() bool {
	for _, r := range c.Relations {
		if r == War {
			return true
		}
	}
	return false
}

// TradePartners counts counterparts with an outstanding trade.
func (c *Civilization) TradePartners() int {
	return len(c.Trades)
}

// RefreshFlux recomputes surplus and deficit from stock and demand.
func (c *Civilization) RefreshFlux() {
	flux := c.Stock.Sub(c.Demand)
	c.Surplus = flux.Positive()
	c.Deficit = flux.Negative()
}

// Position returns the tradeable state used by trade clearing.
func (c *Civilization) Position() economy.Position {
	return economy.Position{Surplus: c.Surplus, Deficit: c.Deficit}
}

// RecordTrade adds a net amount received from a counterpart to the
// outstanding ledger. An entry that nets out to zero is dropped.
func (c *Civilization) RecordTrade(other ID, net economy.Resources) {
	sum := c.Trades[other].Add(net)
	if sum.IsZero() {
		delete(c.Trades, other)
		return
	}
	c.Trades[other] = sum
}

// BreakTrade reverses the outstanding trade between two civilizations.
// Stocks are clamped at zero. Reports whether anything was outstanding.
func BreakTrade(a, b *Civilization) bool {
	netA, okA := a.Trades[b.ID]
	netB, okB := b.Trades[a.ID]
	if !okA && !okB {
		return false
	}
	a.Stock = a.Stock.Sub(netA).Positive()
	b.Stock = b.Stock.Sub(netB).Positive()
	delete(a.Trades, b.ID)
	delete(b.Trades, a.ID)
	a.RefreshFlux()
	b.RefreshFlux()
	return true
}

// Claim gives a planet to the civilization and updates the arena.
func (c *Civilization) Claim(m *world.Map, id world.PlanetID) {
	p := m.Get(id)
	if p == nil {
		return
	}
	m.Assign(id, c.ID)
	c.Planets[id] = struct{}{}
	c.PopulationCap += p.Capacity
	c.Alive = true
}

// Cede removes a planet from the civilization and leaves it unowned.
func (c *Civilization) Cede(m *world.Map, id world.PlanetID) {
	if !c.Owns(id) {
		return
	}
	delete(c.Planets, id)
	if p := m.Get(id); p != nil {
		c.PopulationCap = max(c.PopulationCap-p.Capacity, 0)
		if p.OwnedBy(c.ID) {
			m.Release(id)
		}
	}
}

// Transfer moves a planet between civilizations.
func Transfer(m *world.Map, id world.PlanetID, from, to *Civilization) {
	from.Cede(m, id)
	to.Claim(m, id)
}

// Eliminate marks the civilization dead and reverses every outstanding
// trade with the given roster.
func (c *Civilization) Eliminate(roster map[ID]*Civilization) {
	for other := range c.Trades {
		if o, ok := roster[other]; ok {
			BreakTrade(c, o)
		}
	}
	c.Alive = false
}

// PlanetsOn returns held planets in map creation order.
func (c *Civilization) PlanetsOn(m *world.Map) []*world.Planet {
	out := make([]*world.Planet, 0, len(c.Planets))
	for _, id := range m.Order {
		if c.Owns(id) {
			out = append(out, m.Get(id))
		}
	}
	return out
}
