// Combat resolution. One probabilistic battle per war declaration.
package engine

import (
	"fmt"
	"math"

	"github.com/talgya/civ-diplomacy/internal/civ"
	"github.com/talgya/civ-diplomacy/internal/tuning"
	"github.com/talgya/civ-diplomacy/internal/world"
)

// BattleOutcome is the result of one battle.
type BattleOutcome uint8

const (
	BattleStalemate BattleOutcome = iota
	BattleAttackerWon
	BattleDefenderWon
)

func (o BattleOutcome) String() string {
	switch o {
	case BattleAttackerWon:
		return "attacker_won"
	case BattleDefenderWon:
		return "defender_won"
	}
	return "stalemate"
}

// Battle describes what a battle changed.
type Battle struct {
	Outcome    BattleOutcome
	WinChance  float64        // Attacker's win probability
	Conquest   *ConquestEvent // Set when the target changed hands
	Eliminated bool           // Defender lost its last planet
}

// Power is a civilization's combat strength.
func Power(c *civ.Civilization, p tuning.Combat) float64 {
	return c.Military * (1 + p.TechPowerFactor*c.Tech)
}

// resolveBattle fights over target, which may be nil when the defender has
// no planet to take. Zero total power is a stalemate with no state change.
func (s *Simulation) resolveBattle(att, def *civ.Civilization, target *world.Planet) Battle {
	p := s.Config.Combat
	pa, pd := Power(att, p), Power(def, p)
	if pa+pd <= 0 {
		return Battle{Outcome: BattleStalemate}
	}

	chance := pa / (pa + pd)
	if s.rng.Float64() >= chance {
		def.Military += p.WarWinBoost
		def.Tech += p.WarWinBoost
		def.Victories++
		att.Tech = math.Max(0, att.Tech-p.WarPenalty)
		att.Culture = math.Max(0, att.Culture-p.WarPenalty)
		return Battle{Outcome: BattleDefenderWon, WinChance: chance}
	}

	att.Military += p.WarWinBoost
	att.Tech += p.WarWinBoost
	att.Victories++
	b := Battle{Outcome: BattleAttackerWon, WinChance: chance}

	// Winning does not guarantee the planet.
	if target == nil || !target.OwnedBy(def.ID) {
		return b
	}
	if s.rng.Float64() >= p.ConquestChance {
		return b
	}

	civ.Transfer(s.Map, target.ID, def, att)
	b.Conquest = &ConquestEvent{PlanetID: target.ID, NewOwnerID: att.ID, OldOwnerID: def.ID}
	s.emit("conquest", fmt.Sprintf("civilization %d took planet %d from civilization %d", att.ID, target.ID, def.ID))

	if def.PlanetCount() == 0 {
		s.eliminate(def)
		b.Eliminated = true
	}
	return b
}
