package entropy

// Scripted replays a fixed sequence of draws, then falls back to a seeded
// stream once exhausted. Used to force specific probabilistic branches.
type Scripted struct {
	draws    []float64
	next     int
	fallback *Seeded
}

// NewScripted returns a Source yielding draws in order.
func NewScripted(draws ...float64) *Scripted {
	return &Scripted{
		draws:    draws,
		fallback: NewSeeded(1),
	}
}

// Float64 returns the next scripted draw.
func (s *Scripted) Float64() float64 {
	if s.next < len(s.draws) {
		v := s.draws[s.next]
		s.next++
		return v
	}
	return s.fallback.Float64()
}

// Intn maps the next scripted draw onto [0, n).
func (s *Scripted) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v := int(s.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// Consumed reports how many scripted draws have been used.
func (s *Scripted) Consumed() int { return s.next }
