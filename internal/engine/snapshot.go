// Turn snapshots: read-only values handed to loggers, the API and analysis.
package engine

import (
	"math"

	"github.com/talgya/civ-diplomacy/internal/civ"
	"github.com/talgya/civ-diplomacy/internal/economy"
	"github.com/talgya/civ-diplomacy/internal/world"
)

// InteractionType is the decision taken for a pair of civilizations.
type InteractionType string

const (
	InteractionNone        InteractionType = "none"
	InteractionCooperation InteractionType = "cooperation"
	InteractionTrade       InteractionType = "trade"
	InteractionWar         InteractionType = "war"
)

// Interaction records one pair decision of a turn.
type Interaction struct {
	CivA civ.ID          `json:"civ_a"`
	CivB civ.ID          `json:"civ_b"`
	Type InteractionType `json:"type"`

	// War only. The target position is captured before the battle.
	AttackerID     *civ.ID         `json:"attacker_id,omitempty"`
	DefenderID     *civ.ID         `json:"defender_id,omitempty"`
	TargetPlanetID *world.PlanetID `json:"target_planet_id,omitempty"`
	TargetPosition *world.Coord    `json:"target_position,omitempty"`
	Outcome        string          `json:"outcome,omitempty"`

	// Trade only: net resources received by CivA (CivB received the negation).
	Traded *economy.Resources `json:"traded,omitempty"`
}

// ConquestEvent records a planet changing hands.
type ConquestEvent struct {
	PlanetID   world.PlanetID `json:"planet_id"`
	NewOwnerID civ.ID         `json:"new_owner_id"`
	OldOwnerID civ.ID         `json:"old_owner_id"`
}

// CivState is a copy of one civilization's attributes at the end of a turn.
type CivState struct {
	ID                 civ.ID            `json:"id"`
	Status             string            `json:"status"` // "active" or "eliminated"
	Tech               float64           `json:"tech"`
	Culture            float64           `json:"culture"`
	Military           float64           `json:"military"`
	Friendliness       float64           `json:"friendliness"`
	Population         float64           `json:"population"`
	PopulationCap      float64           `json:"population_cap"`
	PopulationPressure float64           `json:"population_pressure"`
	Desperation        float64           `json:"desperation_value"`
	IsDesperate        bool              `json:"is_desperate"`
	WarInitiations     int               `json:"war_initiations"`
	Victories          int               `json:"victories"`
	AtWar              bool              `json:"is_at_war"`
	TradePartners      int               `json:"num_trade_partners"`
	Planets            int               `json:"num_planets"`
	Stock              economy.Resources `json:"stock"`
	Deficit            economy.Resources `json:"deficit"`
	ResourcePressure   economy.Resources `json:"resource_pressure"`
}

// Status values of CivState.
const (
	StatusActive     = "active"
	StatusEliminated = "eliminated"
)

// RelationState describes a pair that interacted this turn.
type RelationState struct {
	CivA               civ.ID          `json:"civ_a"`
	CivB               civ.ID          `json:"civ_b"`
	Type               InteractionType `json:"type"`
	Relation           string          `json:"relation"`
	CulturalSimilarity float64         `json:"cultural_similarity"`
}

// TurnSummary is everything a turn produced.
type TurnSummary struct {
	Turn         int             `json:"turn"`
	Interactions []Interaction   `json:"interactions"`
	Conquests    []ConquestEvent `json:"conquests"`
	Civs         []CivState      `json:"civs"`
	Relations    []RelationState `json:"relations"`
}

// EndType names how a run ended.
type EndType string

const (
	EndCulture   EndType = "Culture"
	EndMilitary  EndType = "Military"
	EndStalemate EndType = "Stalemate"
)

// Outcome is the terminal state of a run.
type Outcome struct {
	End      EndType `json:"end_type"`
	WinnerID *civ.ID `json:"winner_id,omitempty"`
	Turn     int     `json:"turn"`
}

// Wars counts war interactions in the summary.
func (t TurnSummary) Wars() int {
	n := 0
	for _, in := range t.Interactions {
		if in.Type == InteractionWar {
			n++
		}
	}
	return n
}

// CulturalDivergence is |Δculture| / max(culture), 0 when both are 0.
func CulturalDivergence(a, b *civ.Civilization) float64 {
	hi := math.Max(a.Culture, b.Culture)
	if hi <= 0 {
		return 0
	}
	return math.Abs(a.Culture-b.Culture) / hi
}

func stateOf(c *civ.Civilization) CivState {
	status := StatusActive
	if !c.Alive {
		status = StatusEliminated
	}
	return CivState{
		ID:                 c.ID,
		Status:             status,
		Tech:               c.Tech,
		Culture:            c.Culture,
		Military:           c.Military,
		Friendliness:       c.Friendliness,
		Population:         c.Population,
		PopulationCap:      c.PopulationCap,
		PopulationPressure: c.PopulationPressure,
		Desperation:        c.Desperation,
		IsDesperate:        c.IsDesperate,
		WarInitiations:     c.WarInitiations,
		Victories:          c.Victories,
		AtWar:              c.AtWar(),
		TradePartners:      c.TradePartners(),
		Planets:            c.PlanetCount(),
		Stock:              c.Stock,
		Deficit:            c.Deficit,
		ResourcePressure:   c.ResourcePressure,
	}
}

// snapshot copies the current turn's records and civ states.
func (s *Simulation) snapshot() TurnSummary {
	sum := TurnSummary{
		Turn:         s.Turn,
		Interactions: append([]Interaction(nil), s.interactions...),
		Conquests:    append([]ConquestEvent(nil), s.conquests...),
		Civs:         make([]CivState, 0, len(s.Civs)),
	}
	for _, c := range s.Civs {
		sum.Civs = append(sum.Civs, stateOf(c))
	}
	for _, in := range s.interactions {
		a, b := s.CivIndex[in.CivA], s.CivIndex[in.CivB]
		sum.Relations = append(sum.Relations, RelationState{
			CivA:               in.CivA,
			CivB:               in.CivB,
			Type:               in.Type,
			Relation:           a.Relation(b.ID).String(),
			CulturalSimilarity: 1 - CulturalDivergence(a, b),
		})
	}
	return sum
}
