package api

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/talgya/civ-diplomacy/internal/engine"
	"github.com/talgya/civ-diplomacy/internal/world"
)

// streamBuffer is the per-subscriber backlog before turns are dropped.
const streamBuffer = 16

// Meta is the fixed description of the run being observed.
type Meta struct {
	RunID    string `json:"run_id"`
	Seed     int64  `json:"seed"`
	Scenario string `json:"scenario"`
	MaxTurns int    `json:"max_turns"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// PlanetView is a planet as of the latest published turn.
type PlanetView struct {
	ID       world.PlanetID `json:"id"`
	X        int            `json:"x"`
	Y        int            `json:"y"`
	Energy   float64        `json:"energy_yield"`
	Food     float64        `json:"food_yield"`
	Minerals float64        `json:"minerals_yield"`
	Capacity float64        `json:"capacity"`
	OwnerID  *uint64        `json:"owner_id,omitempty"`
}

// StreamMessage is one frame of the websocket stream.
type StreamMessage struct {
	Type    string              `json:"type"` // "turn" or "end"
	Turn    *engine.TurnSummary `json:"turn,omitempty"`
	Outcome *engine.Outcome     `json:"outcome,omitempty"`
}

// Feed holds the published view of a run. The simulation goroutine
// publishes; HTTP handlers only read copies.
type Feed struct {
	meta Meta

	mu      sync.RWMutex
	latest  *engine.TurnSummary
	outcome *engine.Outcome
	planets []PlanetView

	subMu   sync.Mutex
	subs    map[int]chan []byte
	nextSub int
}

// NewFeed creates an empty feed for a run.
func NewFeed(meta Meta) *Feed {
	return &Feed{meta: meta, subs: make(map[int]chan []byte)}
}

// PlanetsOf copies the planet table of a map.
func PlanetsOf(m *world.Map) []PlanetView {
	out := make([]PlanetView, 0, len(m.Order))
	for _, id := range m.Order {
		p := m.Get(id)
		v := PlanetView{
			ID:       p.ID,
			X:        p.Position.X,
			Y:        p.Position.Y,
			Energy:   p.Yield.Energy,
			Food:     p.Yield.Food,
			Minerals: p.Yield.Minerals,
			Capacity: p.Capacity,
		}
		if p.OwnerID != nil {
			owner := *p.OwnerID
			v.OwnerID = &owner
		}
		out = append(out, v)
	}
	return out
}

// Publish stores a turn and forwards it to stream subscribers. It must be
// called from the goroutine that owns the map.
func (f *Feed) Publish(sum engine.TurnSummary, m *world.Map) {
	planets := PlanetsOf(m)
	f.mu.Lock()
	f.latest = &sum
	f.planets = planets
	f.mu.Unlock()

	f.broadcast(StreamMessage{Type: "turn", Turn: &sum}, false)
}

// Finish records the outcome and tells subscribers the run is over.
func (f *Feed) Finish(out engine.Outcome) {
	f.mu.Lock()
	f.outcome = &out
	f.mu.Unlock()

	f.broadcast(StreamMessage{Type: "end", Outcome: &out}, true)
}

// Latest returns the most recent turn, if any.
func (f *Feed) Latest() (engine.TurnSummary, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.latest == nil {
		return engine.TurnSummary{}, false
	}
	return *f.latest, true
}

// Outcome returns the run's outcome, or nil while running.
func (f *Feed) Outcome() *engine.Outcome {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.outcome
}

// Planets returns the planet table of the latest turn.
func (f *Feed) Planets() []PlanetView {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.planets
}

// Meta returns the run description.
func (f *Feed) Meta() Meta { return f.meta }

// Subscribe registers a stream consumer. Turn frames are dropped when the
// consumer falls behind; the end frame is always delivered.
func (f *Feed) Subscribe() (int, <-chan []byte) {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	f.nextSub++
	ch := make(chan []byte, streamBuffer)
	f.subs[f.nextSub] = ch
	return f.nextSub, ch
}

// Unsubscribe removes a consumer and closes its channel.
func (f *Feed) Unsubscribe(id int) {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	if ch, ok := f.subs[id]; ok {
		delete(f.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of connected stream consumers.
func (f *Feed) Subscribers() int {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	return len(f.subs)
}

// broadcast fans a frame out without blocking the simulation.
func (f *Feed) broadcast(msg StreamMessage, final bool) {
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("stream marshal failed", "type", msg.Type, "error", err)
		return
	}

	f.subMu.Lock()
	defer f.subMu.Unlock()
	for id, ch := range f.subs {
		if !offer(ch, b, final) {
			slog.Debug("stream consumer behind, frame dropped", "subscriber", id)
		}
	}
}

// offer queues b on ch. A final frame evicts the oldest queued frames until
// it fits; other frames are dropped when ch is full. Only broadcast sends on
// subscriber channels, and it holds subMu, so eviction always makes room.
func offer(ch chan []byte, b []byte, final bool) bool {
	for {
		select {
		case ch <- b:
			return true
		default:
		}
		if !final {
			return false
		}
		select {
		case <-ch:
		default:
		}
	}
}
