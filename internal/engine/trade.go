// Trade: bilateral clearing of surpluses against deficits.
package engine

import (
	"github.com/talgya/civ-diplomacy/internal/civ"
	"github.com/talgya/civ-diplomacy/internal/economy"
)

// trade clears the pair's positions. Nothing to exchange records "none".
func (s *Simulation) trade(a, b *civ.Civilization) Interaction {
	cl := economy.Clear(a.Position(), b.Position())
	if cl.Empty() {
		return Interaction{CivA: a.ID, CivB: b.ID, Type: InteractionNone}
	}

	ApplyTrade(a, b, cl, s.Config.Diplomacy.TradeTechBoost)
	setRelation(a, b, civ.Peace)

	net := cl.NetToA
	return Interaction{CivA: a.ID, CivB: b.ID, Type: InteractionTrade, Traded: &net}
}

// ApplyTrade moves the net clearing between the two stocks, records it in
// both running ledgers for later reversal and rewards the net receiver.
func ApplyTrade(a, b *civ.Civilization, cl economy.Clearing, techBoost float64) {
	a.Stock = a.Stock.Add(cl.NetToA).Positive()
	b.Stock = b.Stock.Add(cl.NetToB()).Positive()
	a.RecordTrade(b.ID, cl.NetToA)
	b.RecordTrade(a.ID, cl.NetToB())
	a.RefreshFlux()
	b.RefreshFlux()

	switch cl.Beneficiary() {
	case economy.SideA:
		a.Tech += techBoost
	case economy.SideB:
		b.Tech += techBoost
	}
}
