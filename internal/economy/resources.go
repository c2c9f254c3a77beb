// Package economy provides the resource triple and bilateral trade clearing.
package economy

import "fmt"

// Resource names used in logs and snapshots.
const (
	Energy   = "energy"
	Food     = "food"
	Minerals = "minerals"
)

// Resources is a fixed-shape quantity of each resource.
type Resources struct {
	Energy   float64 `json:"energy"`
	Food     float64 `json:"food"`
	Minerals float64 `json:"minerals"`
}

// Uniform returns a triple with every component set to v.
func Uniform(v float64) Resources {
	return Resources{Energy: v, Food: v, Minerals: v}
}

// Add returns r + o.
func (r Resources) Add(o Resources) Resources {
	return Resources{r.Energy + o.Energy, r.Food + o.Food, r.Minerals + o.Minerals}
}

// Sub returns r - o.
func (r Resources) Sub(o Resources) Resources {
	return Resources{r.Energy - o.Energy, r.Food - o.Food, r.Minerals - o.Minerals}
}

// Neg returns -r.
func (r Resources) Neg() Resources {
	return Resources{-r.Energy, -r.Food, -r.Minerals}
}

// Min returns the componentwise minimum.
func (r Resources) Min(o Resources) Resources {
	return Resources{min(r.Energy, o.Energy), min(r.Food, o.Food), min(r.Minerals, o.Minerals)}
}

// Positive returns the positive part of each component.
func (r Resources) Positive() Resources {
	return Resources{max(r.Energy, 0), max(r.Food, 0), max(r.Minerals, 0)}
}

// Negative returns the magnitude of the negative part of each component.
func (r Resources) Negative() Resources {
	return r.Neg().Positive()
}

// Total returns the sum of all components.
func (r Resources) Total() float64 {
	return r.Energy + r.Food + r.Minerals
}

// IsZero reports whether every component is exactly zero.
func (r Resources) IsZero() bool {
	return r.Energy == 0 && r.Food == 0 && r.Minerals == 0
}

// Ratio divides r by d per component. A zero denominator yields 0 when the
// numerator is also zero and 1 otherwise.
func (r Resources) Ratio(d Resources) Resources {
	return Resources{ratio(r.Energy, d.Energy), ratio(r.Food, d.Food), ratio(r.Minerals, d.Minerals)}
}

func ratio(n, d float64) float64 {
	if d == 0 {
		if n == 0 {
			return 0
		}
		return 1
	}
	return n / d
}

func (r Resources) String() string {
	return fmt.Sprintf("{energy:%.2f food:%.2f minerals:%.2f}", r.Energy, r.Food, r.Minerals)
}
