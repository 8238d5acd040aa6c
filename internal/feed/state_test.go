package feed

import (
	"testing"

	"github.com/hejijunhao/aftershock/internal/model"
)

func events(ids ...string) []model.Event {
	out := make([]model.Event, len(ids))
	for i, id := range ids {
		out[i] = model.Event{ID: id}
	}
	return out
}

func TestSeedOnce(t *testing.T) {
	s := NewState(50)
	if s.Seeded() {
		t.Fatal("expected unseeded state")
	}
	if !s.SeedOnce(events("c", "b", "a")) {
		t.Fatal("expected first seed to apply")
	}
	if s.SeedOnce(events("z")) {
		t.Fatal("expected second seed to be ignored")
	}

	snap := s.Snapshot()
	if len(snap.Events) != 3 || snap.Events[0].ID != "c" || snap.Events[2].ID != "a" {
		t.Fatalf("unexpected events %+v", snap.Events)
	}
	if len(snap.Predictions) != 0 {
		t.Fatalf("expected no predictions, got %d", len(snap.Predictions))
	}
}

func TestSeedTruncatesToCapacity(t *testing.T) {
	s := NewState(2)
	s.SeedOnce(events("c", "b", "a"))
	snap := s.Snapshot()
	if len(snap.Events) != 2 || snap.Events[0].ID != "c" || snap.Events[1].ID != "b" {
		t.Fatalf("expected [c b], got %+v", snap.Events)
	}
}

func TestObserve(t *testing.T) {
	s := NewState(50)
	if !s.Observe("a") {
		t.Fatal("expected first identity to be new")
	}
	if s.Observe("a") {
		t.Fatal("expected repeat identity to be unchanged")
	}
	if !s.Observe("b") {
		t.Fatal("expected changed identity to be new")
	}
	if id, ok := s.LastID(); !ok || id != "b" {
		t.Fatalf("expected last id b, got %q", id)
	}
}
