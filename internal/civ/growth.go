// Per-turn economy update: upkeep, harvest, growth, demand and pressure.
package civ

import (
	"math"

	"github.com/talgya/civ-diplomacy/internal/economy"
	"github.com/talgya/civ-diplomacy/internal/tuning"
	"github.com/talgya/civ-diplomacy/internal/world"
)

// Advance runs one turn of the economy update. Order matters: each step reads
// the values written by the previous ones. Returns true iff the civilization
// reached the culture victory threshold during this call.
func (c *Civilization) Advance(p tuning.Economy, m *world.Map) bool {
	eps := p.Epsilon

	// Last turn's demand is paid now, after trade had a chance to cover it.
	c.Stock = c.Stock.Sub(c.Demand).Positive()
	yield, capacity := c.harvest(m)
	c.Stock = c.Stock.Add(yield)
	c.PopulationCap = capacity

	// Population grows with the food it can feed; capacity only feeds pressure.
	growth := math.Min(1, c.Stock.Food/math.Max(c.Population, eps))
	c.Population = math.Max(0, c.Population+c.Population*growth)

	c.Culture = math.Max(0, c.Culture+
		p.CulturePopulation*c.Population+
		p.CultureTech*c.Tech+
		p.CultureResources*c.Stock.Total())

	// Military is recomputed from fundamentals, not accumulated.
	c.Military = math.Max(0,
		p.MilitaryPopulation*c.Population+
			p.MilitaryTech*c.Tech+
			p.MilitaryMinerals*c.Stock.Minerals)

	techGain := p.TechPopulation * math.Log(math.Max(c.Population, 1))
	if c.Population > eps {
		techGain += p.TechEnergy * (math.Max(c.Stock.Energy, eps) / c.Population)
	}
	c.Tech = math.Max(0, c.Tech+techGain)

	c.Friendliness = math.Max(0, c.Friendliness-p.FriendlinessDecay*float64(c.Victories))
	if p.MaxCulture > 0 {
		c.Friendliness += p.FriendlinessGain * (c.Culture / p.MaxCulture)
	}
	c.Friendliness = clamp01(c.Friendliness)

	c.Demand = economy.Resources{
		Energy:   p.EnergyPerPop*c.Population + p.EnergyPerTech*c.Tech + p.EnergyPerMilitary*c.Military,
		Food:     p.FoodPerPop * c.Population,
		Minerals: p.MineralsPerMilitary * c.Military,
	}
	c.RefreshFlux()

	c.PopulationPressure = populationPressure(c.Population, c.PopulationCap)
	c.ResourcePressure = c.Deficit.Ratio(c.Demand)
	if total := c.Demand.Total(); total > 0 {
		c.ResourcePressureComponent = c.Deficit.Total() / total
	} else {
		c.ResourcePressureComponent = 0
	}

	c.Desperation = p.DesperationPopulation*c.PopulationPressure + p.DesperationResources*c.ResourcePressureComponent
	c.IsDesperate = c.Desperation > p.DesperationPoint

	if !c.HasWonCultureVictory && c.Culture >= p.MaxCulture {
		c.HasWonCultureVictory = true
		return true
	}
	return false
}

// harvest sums yield and capacity over held planets in map order, so the
// float sums are identical for a given seed.
func (c *Civilization) harvest(m *world.Map) (economy.Resources, float64) {
	var yield economy.Resources
	capacity := 0.0
	for _, p := range c.PlanetsOn(m) {
		yield = yield.Add(p.Yield)
		capacity += p.Capacity
	}
	return yield, capacity
}

func populationPressure(pop, capacity float64) float64 {
	if capacity > 0 {
		return math.Max(0, (pop-capacity)/capacity)
	}
	if pop > 0 {
		return pop
	}
	return 0
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
