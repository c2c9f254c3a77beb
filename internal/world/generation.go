// Planet generation. A simplex "nebula density" field biases where planets
// form; yields and capacities are sampled uniformly in configured ranges.
package world

import (
	"log/slog"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/civ-diplomacy/internal/economy"
	"github.com/talgya/civ-diplomacy/internal/entropy"
)

// GenConfig holds planet generation parameters.
type GenConfig struct {
	Width, Height int
	NumPlanets    int
	Seed          int64 // Noise seed

	YieldMin, YieldMax       float64
	CapacityMin, CapacityMax float64

	// Clustering blends uniform placement (0) with density-weighted
	// acceptance (1).
	Clustering float64
}

// Generate creates a map with NumPlanets planets on unique cells.
func Generate(cfg GenConfig, rng entropy.Source) *Map {
	m := NewMap(cfg.Width, cfg.Height)
	cells := cfg.Width * cfg.Height
	want := cfg.NumPlanets
	if want > cells {
		want = cells
	}

	density := opensimplex.NewNormalized(cfg.Seed)

	// Rejection sampling against the density field. Past the attempt budget
	// the remaining planets take the first free cells in row order.
	budget := 50 * cells
	for attempts := 0; m.PlanetCount() < want && attempts < budget; attempts++ {
		c := Coord{X: rng.Intn(cfg.Width), Y: rng.Intn(cfg.Height)}
		if m.At(c) != nil {
			continue
		}
		d := octaveNoise(density, float64(c.X), float64(c.Y), 3, 0.12, 0.5)
		accept := (1 - cfg.Clustering) + cfg.Clustering*d
		if rng.Float64() >= accept {
			continue
		}
		// c is in bounds and free, so Add cannot fail.
		_ = m.Add(newPlanet(c, cfg, rng))
	}
	for y := 0; y < cfg.Height && m.PlanetCount() < want; y++ {
		for x := 0; x < cfg.Width && m.PlanetCount() < want; x++ {
			c := Coord{X: x, Y: y}
			if m.At(c) == nil {
				_ = m.Add(newPlanet(c, cfg, rng))
			}
		}
	}

	slog.Debug("planets generated", "count", m.PlanetCount(), "grid", m.String())
	return m
}

func newPlanet(c Coord, cfg GenConfig, rng entropy.Source) *Planet {
	return &Planet{
		Position: c,
		Yield: economy.Resources{
			Energy:   entropy.Uniform(rng, cfg.YieldMin, cfg.YieldMax),
			Food:     entropy.Uniform(rng, cfg.YieldMin, cfg.YieldMax),
			Minerals: entropy.Uniform(rng, cfg.YieldMin, cfg.YieldMax),
		},
		Capacity: entropy.Uniform(rng, cfg.CapacityMin, cfg.CapacityMax),
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
