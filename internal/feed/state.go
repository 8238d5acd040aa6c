// Package feed holds the in-memory state built up by the poller: recent
// events, recent predictions and the novelty tracker.
package feed

import (
	"sync/atomic"

	"github.com/hejijunhao/aftershock/internal/engine/dedup"
	"github.com/hejijunhao/aftershock/internal/history"
	"github.com/hejijunhao/aftershock/internal/model"
)

// State is owned by a single poller. Histories may be read concurrently.
type State struct {
	Events      *history.Buffer[model.Event]
	Predictions *history.Buffer[model.Prediction]

	tracker *dedup.Tracker
	seeded  atomic.Bool
}

// NewState creates empty histories of the given capacity.
func NewState(capacity int) *State {
	return &State{
		Events:      history.New[model.Event](capacity),
		Predictions: history.New[model.Prediction](capacity),
		tracker:     dedup.New(),
	}
}

// SeedOnce fills the events history the first time it is called and
// reports whether it did. Later calls are no-ops.
func (s *State) SeedOnce(events []model.Event) bool {
	if !s.seeded.CompareAndSwap(false, true) {
		return false
	}
	s.Events.Seed(events)
	return true
}

// Seeded reports whether the events history has been seeded.
func (s *State) Seeded() bool {
	return s.seeded.Load()
}

// Observe reports whether id differs from the last identity seen and
// remembers it.
func (s *State) Observe(id string) bool {
	return s.tracker.Observe(id)
}

// LastID returns the last identity seen, if any.
func (s *State) LastID() (string, bool) {
	return s.tracker.Last()
}

// Snapshot is a consistent copy of both histories, most recent first.
type Snapshot struct {
	Events      []model.Event
	Predictions []model.Prediction
}

// Snapshot copies both histories.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Events:      s.Events.Snapshot(),
		Predictions: s.Predictions.Snapshot(),
	}
}
