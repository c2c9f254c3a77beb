// Package engine provides the turn-based simulation loop: economy updates,
// interaction decisions, combat and trade, and the driver that runs turns.
package engine

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Engine drives a Simulation forward one turn at a time.
type Engine struct {
	Sim      *Simulation
	Interval time.Duration // Pause between turns; 0 runs flat out

	// Callbacks, populated during setup. Both run on the driving goroutine.
	OnTurn func(TurnSummary) // Every turn, including the final one
	OnEnd  func(Outcome)     // Once, when the run ends

	running atomic.Bool
}

// NewEngine creates an engine for the given simulation.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{Sim: sim}
}

// Run steps the simulation until it ends or Stop is called. Returns the
// outcome, or nil if stopped first.
func (e *Engine) Run() *Outcome {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "turn", e.Sim.Turn, "interval", e.Interval)

	for e.running.Load() {
		start := time.Now()

		summary, outcome := e.Sim.Step()
		if e.OnTurn != nil {
			e.OnTurn(summary)
		}
		if outcome != nil {
			if e.OnEnd != nil {
				e.OnEnd(*outcome)
			}
			return outcome
		}

		if elapsed := time.Since(start); elapsed < e.Interval {
			time.Sleep(e.Interval - elapsed)
		}
	}

	slog.Info("simulation engine stopped", "turn", e.Sim.Turn)
	return nil
}

// Stop halts the loop after the current turn.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}
