// Civilization spawning from scenario presets.
package civ

import (
	"github.com/talgya/civ-diplomacy/internal/economy"
	"github.com/talgya/civ-diplomacy/internal/entropy"
	"github.com/talgya/civ-diplomacy/internal/tuning"
)

// Random starting stock range, used when a preset does not fix it.
const (
	randomStockMin = 50
	randomStockMax = 150
)

// Spawner creates civilizations with run-scoped ids.
type Spawner struct {
	rng    entropy.Source
	nextID ID
}

// NewSpawner creates a spawner whose ids start at 1.
func NewSpawner(rng entropy.Source) *Spawner {
	return &Spawner{rng: rng, nextID: 1}
}

// Spawn creates one civilization. Attributes the preset leaves unset are
// sampled from the world ranges.
func (s *Spawner) Spawn(preset tuning.Preset, w tuning.World) *Civilization {
	c := New(s.nextID)
	s.nextID++

	c.Tech = entropy.Uniform(s.rng, w.TechMin, w.TechMax)
	c.Population = entropy.Uniform(s.rng, w.PopulationMin, w.PopulationMax)

	if preset.Friendliness >= 0 {
		c.Friendliness = clamp01(preset.Friendliness)
	} else {
		c.Friendliness = s.rng.Float64()
	}

	if preset.Stock >= 0 {
		c.Stock = economy.Uniform(preset.Stock)
	} else {
		c.Stock = economy.Resources{
			Energy:   entropy.Uniform(s.rng, randomStockMin, randomStockMax),
			Food:     entropy.Uniform(s.rng, randomStockMin, randomStockMax),
			Minerals: entropy.Uniform(s.rng, randomStockMin, randomStockMax),
		}
	}
	c.RefreshFlux()
	return c
}
