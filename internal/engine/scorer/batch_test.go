package scorer

import (
	"encoding/json"
	"testing"

	"github.com/hejijunhao/aftershock/internal/model"
)

func decodeBatch(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return v
}

func TestScoreBatch(t *testing.T) {
	s, _, _ := newTestScorer(4, 2)
	data := decodeBatch(t, `[
		{"id": "a1", "magnitude": 6, "depth": 10, "latitude": 38, "longitude": 27},
		"not an object",
		{"magnitude": 6, "depth": 10},
		{"magnitude": 12, "depth": 10, "latitude": 38, "longitude": 27}
	]`)

	res := s.ScoreBatch(data)
	if !res.Success {
		t.Fatalf("expected batch success, got %+v", res)
	}
	if res.TotalPredictions != 4 || len(res.Predictions) != 4 {
		t.Fatalf("expected 4 predictions, got %d/%d", res.TotalPredictions, len(res.Predictions))
	}
	for i, item := range res.Predictions {
		if item.Index != i {
			t.Errorf("item %d: expected index %d, got %d", i, i, item.Index)
		}
	}

	if !res.Predictions[0].Success || res.Predictions[0].EarthquakeID != "a1" {
		t.Errorf("item 0: unexpected %+v", res.Predictions[0])
	}
	if res.Predictions[1].Error != "Each earthquake must be a dictionary" {
		t.Errorf("item 1: unexpected error %q", res.Predictions[1].Error)
	}
	if res.Predictions[2].Error != "Missing required fields. Required: [magnitude depth latitude longitude]" {
		t.Errorf("item 2: unexpected error %q", res.Predictions[2].Error)
	}
	if res.Predictions[3].ErrorCode != model.ErrInvalidMagnitude {
		t.Errorf("item 3: expected INVALID_MAGNITUDE, got %s", res.Predictions[3].ErrorCode)
	}

	out, err := json.Marshal(res.Predictions[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	json.Unmarshal(out, &fields)
	if fields["earthquake_id"] != "a1" || fields["index"] != float64(0) {
		t.Errorf("unexpected item json %s", out)
	}
	if _, ok := fields["predictions"]; !ok {
		t.Errorf("expected flattened prediction fields, got %s", out)
	}
}

func TestScoreBatchNotAList(t *testing.T) {
	s, _, _ := newTestScorer(4, 2)
	res := s.ScoreBatch(map[string]any{"magnitude": 6})
	if res.Success || res.ErrorCode != model.ErrInvalidInputFormat {
		t.Fatalf("expected INVALID_INPUT_FORMAT, got %+v", res)
	}
}

func TestScoreBatchEmpty(t *testing.T) {
	s, _, _ := newTestScorer(4, 2)
	res := s.ScoreBatch([]any{})
	if !res.Success || res.TotalPredictions != 0 {
		t.Fatalf("expected empty success, got %+v", res)
	}
}

func TestScoreBatchEmptyWireShape(t *testing.T) {
	s, _, _ := newTestScorer(4, 2)
	out, err := json.Marshal(s.ScoreBatch([]any{}))
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if string(fields["total_predictions"]) != "0" {
		t.Fatalf("expected total_predictions 0, got %s", out)
	}
	if string(fields["predictions"]) != "[]" {
		t.Fatalf("expected empty predictions array, got %s", out)
	}
}

func TestScoreBatchFailureWireShape(t *testing.T) {
	s, _, _ := newTestScorer(4, 2)
	out, err := json.Marshal(s.ScoreBatch("not a list"))
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var fields map[string]any
	json.Unmarshal(out, &fields)
	if _, ok := fields["predictions"]; ok {
		t.Fatalf("expected no predictions on failure, got %s", out)
	}
	if fields["error_code"] != string(model.ErrInvalidInputFormat) {
		t.Fatalf("expected INVALID_INPUT_FORMAT, got %s", out)
	}
}
