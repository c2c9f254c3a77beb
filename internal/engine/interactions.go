// Interaction decisions. For every reachable pair, choose war, cooperation
// or trade and apply it immediately.
package engine

import (
	"log/slog"
	"math"

	"github.com/talgya/civ-diplomacy/internal/civ"
	"github.com/talgya/civ-diplomacy/internal/world"
)

// runInteractions evaluates every pair of living civilizations once, lower
// id first. Later pairs see the effects of earlier ones.
func (s *Simulation) runInteractions() {
	roster := s.Alive()
	for i := 0; i < len(roster); i++ {
		for j := i + 1; j < len(roster); j++ {
			a, b := roster[i], roster[j]
			if !a.Alive || !b.Alive {
				continue
			}
			if !s.canInteract(a, b) {
				continue
			}
			s.interactions = append(s.interactions, s.interact(a, b))
		}
	}
}

// sensorRange is how far a civilization can see and travel.
func (s *Simulation) sensorRange(c *civ.Civilization) float64 {
	return c.Tech / s.Config.Diplomacy.SensorScale
}

// canInteract holds when the pair's closest planets are within both
// civilizations' ranges.
func (s *Simulation) canInteract(a, b *civ.Civilization) bool {
	d, ok := s.minDistance(a, b)
	if !ok {
		return false
	}
	return d < s.sensorRange(a) && d < s.sensorRange(b)
}

// minDistance returns the smallest planet-to-planet distance between two
// civilizations. ok is false when either holds no planets.
func (s *Simulation) minDistance(a, b *civ.Civilization) (float64, bool) {
	best := math.Inf(1)
	pa, pb := a.PlanetsOn(s.Map), b.PlanetsOn(s.Map)
	for _, p := range pa {
		for _, q := range pb {
			if d := world.Distance(p.Position, q.Position); d < best {
				best = d
			}
		}
	}
	return best, len(pa) > 0 && len(pb) > 0
}

// interact applies the first matching rule: desperation war, war-score war,
// cooperation, aggression war, trade.
func (s *Simulation) interact(a, b *civ.Civilization) Interaction {
	if att, def, ok := desperationAttacker(a, b); ok {
		return s.declareWar(a, b, att, def)
	}
	if att, def, ok := s.warScoreAttacker(a, b); ok {
		return s.declareWar(a, b, att, def)
	}
	if a.Friendliness >= 1 && b.Friendliness >= 1 {
		return s.cooperate(a, b)
	}
	threshold := s.Config.Diplomacy.AggressionThreshold
	if a.Friendliness < threshold || b.Friendliness < threshold {
		att, def := lessFriendlyFirst(a, b)
		return s.declareWar(a, b, att, def)
	}
	return s.trade(a, b)
}

// desperationAttacker picks the attacker when at least one side is desperate.
func desperationAttacker(a, b *civ.Civilization) (att, def *civ.Civilization, ok bool) {
	switch {
	case a.IsDesperate && !b.IsDesperate:
		return a, b, true
	case b.IsDesperate && !a.IsDesperate:
		return b, a, true
	case a.IsDesperate && b.IsDesperate:
		if a.Military != b.Military {
			if a.Military > b.Military {
				return a, b, true
			}
			return b, a, true
		}
		att, def = lessFriendlyFirst(a, b)
		return att, def, true
	}
	return nil, nil, false
}

// lessFriendlyFirst orders a pair by friendliness, then by id.
func lessFriendlyFirst(a, b *civ.Civilization) (*civ.Civilization, *civ.Civilization) {
	if a.Friendliness != b.Friendliness {
		if a.Friendliness < b.Friendliness {
			return a, b
		}
		return b, a
	}
	if a.ID < b.ID {
		return a, b
	}
	return b, a
}

// WarScore is one side's propensity to start a war against the other.
func (s *Simulation) WarScore(self, other *civ.Civilization) float64 {
	d := s.Config.Diplomacy
	return d.WarWeightFriendliness*(1-self.Friendliness) +
		d.WarWeightPopulation*self.PopulationPressure +
		d.WarWeightResources*self.ResourcePressureComponent +
		d.WarWeightCulture*CulturalDivergence(self, other)
}

// warScoreAttacker lets each side independently roll for war. Both draws
// are always taken so the random stream does not depend on the first result.
func (s *Simulation) warScoreAttacker(a, b *civ.Civilization) (att, def *civ.Civilization, ok bool) {
	eff := s.Config.Diplomacy.WarEffectiveness
	scoreA, scoreB := s.WarScore(a, b), s.WarScore(b, a)
	drawA, drawB := s.rng.Float64(), s.rng.Float64()
	trigA := scoreA*eff > drawA
	trigB := scoreB*eff > drawB

	switch {
	case trigA && trigB:
		if scoreB > scoreA {
			return b, a, true
		}
		if scoreA > scoreB || a.ID < b.ID {
			return a, b, true
		}
		return b, a, true
	case trigA:
		return a, b, true
	case trigB:
		return b, a, true
	}
	return nil, nil, false
}

// declareWar breaks any outstanding trade, marks the pair at war and
// resolves one battle over the nearest defender planet.
func (s *Simulation) declareWar(a, b, att, def *civ.Civilization) Interaction {
	att.WarInitiations++
	civ.BreakTrade(att, def)
	setRelation(att, def, civ.War)

	attID, defID := att.ID, def.ID
	rec := Interaction{
		CivA:       a.ID,
		CivB:       b.ID,
		Type:       InteractionWar,
		AttackerID: &attID,
		DefenderID: &defID,
	}

	target := s.selectTarget(att, def)
	if target != nil {
		pid, pos := target.ID, target.Position
		rec.TargetPlanetID = &pid
		rec.TargetPosition = &pos
	}

	battle := s.resolveBattle(att, def, target)
	rec.Outcome = battle.Outcome.String()
	if battle.Conquest != nil {
		s.conquests = append(s.conquests, *battle.Conquest)
	}

	slog.Debug("war declared",
		"turn", s.Turn,
		"attacker", att.ID,
		"defender", def.ID,
		"outcome", rec.Outcome,
		"conquest", battle.Conquest != nil,
	)
	return rec
}

// selectTarget returns the defender planet closest to any attacker planet.
// Ties keep the first planet found in map order.
func (s *Simulation) selectTarget(att, def *civ.Civilization) *world.Planet {
	var target *world.Planet
	best := math.Inf(1)
	attPlanets := att.PlanetsOn(s.Map)
	for _, p := range def.PlanetsOn(s.Map) {
		for _, q := range attPlanets {
			if d := world.Distance(p.Position, q.Position); d < best {
				best = d
				target = p
			}
		}
	}
	return target
}

// cooperate grants both sides the cooperation boost and makes peace.
func (s *Simulation) cooperate(a, b *civ.Civilization) Interaction {
	d := s.Config.Diplomacy
	for _, c := range []*civ.Civilization{a, b} {
		c.Tech += d.CooperationTechBoost
		c.Culture += d.CooperationCultureBoost
	}
	setRelation(a, b, civ.Peace)
	return Interaction{CivA: a.ID, CivB: b.ID, Type: InteractionCooperation}
}
