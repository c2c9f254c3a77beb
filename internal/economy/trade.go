package economy

// Position is one side's tradeable state: what it can spare and what it lacks.
type Position struct {
	Surplus Resources
	Deficit Resources
}

// Side identifies a party of a clearing.
type Side int8

const (
	SideNone Side = iota
	SideA
	SideB
)

// Clearing is the result of netting two positions against each other.
type Clearing struct {
	FlowToA Resources // min(B.surplus, A.deficit)
	FlowToB Resources // min(A.surplus, B.deficit)
	NetToA  Resources // FlowToA - FlowToB; B receives the negation
}

// Clear computes the bilateral flow that cancels each side's deficit against
// the other's surplus, per resource.
func Clear(a, b Position) Clearing {
	toA := b.Surplus.Min(a.Deficit).Positive()
	toB := a.Surplus.Min(b.Deficit).Positive()
	return Clearing{
		FlowToA: toA,
		FlowToB: toB,
		NetToA:  toA.Sub(toB),
	}
}

// NetToB returns the net change applied to B.
func (c Clearing) NetToB() Resources {
	return c.NetToA.Neg()
}

// OutflowA is A's total positive net outflow.
func (c Clearing) OutflowA() float64 {
	return c.NetToA.Negative().Total()
}

// OutflowB is B's total positive net outflow.
func (c Clearing) OutflowB() float64 {
	return c.NetToA.Positive().Total()
}

// Empty reports whether nothing moves in either direction.
func (c Clearing) Empty() bool {
	return c.FlowToA.IsZero() && c.FlowToB.IsZero()
}

// Beneficiary returns the side that received strictly more than it gave.
// That side earns the skill-transfer tech boost.
func (c Clearing) Beneficiary() Side {
	outA, outB := c.OutflowA(), c.OutflowB()
	switch {
	case outB > outA:
		return SideA
	case outA > outB:
		return SideB
	}
	return SideNone
}
