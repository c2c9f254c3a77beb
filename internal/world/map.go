package world

import "fmt"

// Map is the planet arena: every planet of a run, keyed by id.
type Map struct {
	Planets map[PlanetID]*Planet `json:"-"`
	Order   []PlanetID           `json:"-"` // Creation order, for deterministic iteration
	Width   int                  `json:"width"`
	Height  int                  `json:"height"`

	cells  map[Coord]PlanetID
	nextID PlanetID
}

// NewMap creates an empty grid of the given size.
func NewMap(width, height int) *Map {
	return &Map{
		Planets: make(map[PlanetID]*Planet),
		Width:   width,
		Height:  height,
		cells:   make(map[Coord]PlanetID),
		nextID:  1,
	}
}

// Get returns the planet with the given id, or nil.
func (m *Map) Get(id PlanetID) *Planet {
	return m.Planets[id]
}

// At returns the planet occupying a cell, or nil.
func (m *Map) At(c Coord) *Planet {
	id, ok := m.cells[c]
	if !ok {
		return nil
	}
	return m.Planets[id]
}

// InBounds returns true if the cell lies on the grid.
func (m *Map) InBounds(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < m.Width && c.Y < m.Height
}

// Add places a new planet on a free cell and assigns it the next id.
func (m *Map) Add(p *Planet) error {
	if !m.InBounds(p.Position) {
		return fmt.Errorf("planet at %v outside %dx%d grid", p.Position, m.Width, m.Height)
	}
	if _, taken := m.cells[p.Position]; taken {
		return fmt.Errorf("cell %v already occupied", p.Position)
	}
	p.ID = m.nextID
	m.nextID++
	m.Planets[p.ID] = p
	m.cells[p.Position] = p.ID
	m.Order = append(m.Order, p.ID)
	return nil
}

// Assign hands a planet to a civilization, replacing any previous owner.
func (m *Map) Assign(id PlanetID, civID uint64) {
	p := m.Planets[id]
	if p == nil {
		return
	}
	owner := civID
	p.OwnerID = &owner
}

// Release clears a planet's owner.
func (m *Map) Release(id PlanetID) {
	if p := m.Planets[id]; p != nil {
		p.OwnerID = nil
	}
}

// PlanetCount returns the number of planets on the map.
func (m *Map) PlanetCount() int {
	return len(m.Planets)
}

// OwnedBy returns the planets held by a civilization in creation order.
func (m *Map) OwnedBy(civID uint64) []*Planet {
	var out []*Planet
	for _, id := range m.Order {
		if p := m.Planets[id]; p.OwnedBy(civID) {
			out = append(out, p)
		}
	}
	return out
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(%dx%d, planets=%d)", m.Width, m.Height, m.PlanetCount())
}
