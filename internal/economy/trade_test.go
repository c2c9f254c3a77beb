package economy

import "testing"

func TestClear_DeficitMetFromSurplus(t *testing.T) {
	a := Position{Deficit: Resources{Energy: 50}}
	b := Position{Surplus: Resources{Energy: 80}}

	c := Clear(a, b)
	if c.NetToA.Energy != 50 {
		t.Fatalf("net energy to A = %v, want 50", c.NetToA.Energy)
	}
	if got := b.Surplus.Add(c.NetToB()); got.Energy != 30 {
		t.Fatalf("B surplus after = %v, want 30", got.Energy)
	}
	if c.Beneficiary() != SideA {
		t.Fatalf("beneficiary = %v, want A", c.Beneficiary())
	}
}

func TestClear_Conservation(t *testing.T) {
	a := Position{
		Surplus: Resources{Food: 12, Minerals: 3},
		Deficit: Resources{Energy: 7},
	}
	b := Position{
		Surplus: Resources{Energy: 4},
		Deficit: Resources{Food: 20, Minerals: 1},
	}
	c := Clear(a, b)
	sum := c.NetToA.Add(c.NetToB())
	if !sum.IsZero() {
		t.Fatalf("net flows do not cancel: %v", sum)
	}
	want := Resources{Energy: 4, Food: -12, Minerals: -1}
	if c.NetToA != want {
		t.Fatalf("NetToA = %v, want %v", c.NetToA, want)
	}
	// A gave 13, received 4: B is the net receiver.
	if c.Beneficiary() != SideB {
		t.Fatalf("beneficiary = %v, want B", c.Beneficiary())
	}
}

func TestClear_BalancedOrEmptyHasNoBeneficiary(t *testing.T) {
	if c := Clear(Position{}, Position{}); !c.Empty() || c.Beneficiary() != SideNone {
		t.Fatalf("empty clearing mismatch: %+v", c)
	}
	a := Position{Surplus: Resources{Food: 5}, Deficit: Resources{Energy: 5}}
	b := Position{Surplus: Resources{Energy: 5}, Deficit: Resources{Food: 5}}
	if c := Clear(a, b); c.Beneficiary() != SideNone {
		t.Fatalf("balanced clearing awarded %v", c.Beneficiary())
	}
}

func TestResources_Ratio(t *testing.T) {
	r := Resources{Energy: 5, Food: 0, Minerals: 2}.Ratio(Resources{Energy: 10, Food: 0, Minerals: 0})
	if r.Energy != 0.5 || r.Food != 0 || r.Minerals != 1 {
		t.Fatalf("Ratio = %v", r)
	}
}
