// Package world provides the planet grid: positions, yields, capacities and
// ownership. Planets live in an arena keyed by id; civilizations refer to
// them by id only.
package world

import (
	"math"

	"github.com/talgya/civ-diplomacy/internal/economy"
)

// PlanetID is a unique identifier for a planet.
type PlanetID uint64

// Coord is a cell position on the grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Distance returns the straight-line distance between two cells.
func Distance(a, b Coord) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

// Planet is a fixed grid cell with constant yield and population capacity.
type Planet struct {
	ID       PlanetID          `json:"id"`
	Position Coord             `json:"position"`
	Yield    economy.Resources `json:"yield"`    // Harvested by the owner every turn
	Capacity float64           `json:"capacity"` // Population capacity, thousands

	// Owning civilization, if any. Mutated only through Map.Assign/Release.
	OwnerID *uint64 `json:"owner_id,omitempty"`
}

// Owned reports whether any civilization holds the planet.
func (p *Planet) Owned() bool {
	return p.OwnerID != nil
}

// OwnedBy reports whether the given civilization holds the planet.
func (p *Planet) OwnedBy(civID uint64) bool {
	return p.OwnerID != nil && *p.OwnerID == civID
}
