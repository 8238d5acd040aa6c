package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hejijunhao/aftershock/internal/engine/scorer"
	"github.com/hejijunhao/aftershock/internal/metrics"
	"github.com/hejijunhao/aftershock/internal/notify"
)

type constRegressor float64

func (c constRegressor) Predict([4]float32) (float64, error) { return float64(c), nil }
func (constRegressor) Close() error                          { return nil }

func newTestServer(t *testing.T, ready bool) (*httptest.Server, *notify.Registry) {
	t.Helper()
	var sc *scorer.Scorer
	if ready {
		// log1p(1 hour) for the timing model.
		sc = scorer.New(constRegressor(4.2), constRegressor(0.6931471805599453))
	} else {
		sc = scorer.New(nil, nil)
	}
	reg := notify.NewRegistry()
	ws := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "ws")
	})
	srv := httptest.NewServer(New(sc, reg, ws, metrics.New()))
	t.Cleanup(srv.Close)
	return srv, reg
}

func post(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.StatusCode, out
}

func TestRegisterToken(t *testing.T) {
	srv, reg := newTestServer(t, true)

	for _, body := range []string{`{"token":"abc"}`, `{"token":"abc"}`, `{"token":"def"}`, `{"token":""}`, `{}`} {
		status, out := post(t, srv.URL+"/register-token", body)
		if status != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", body, status)
		}
		if out["status"] != "ok" {
			t.Fatalf("%s: expected status ok, got %v", body, out["status"])
		}
	}

	tokens := reg.Tokens()
	if len(tokens) != 2 || tokens[0] != "abc" || tokens[1] != "def" {
		t.Fatalf("expected [abc def], got %v", tokens)
	}
}

func TestPredict(t *testing.T) {
	srv, _ := newTestServer(t, true)

	status, out := post(t, srv.URL+"/predict", `{"magnitude":6.1,"depth":10,"latitude":38.2,"longitude":27.1}`)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if out["success"] != true {
		t.Fatalf("expected success, got %v", out)
	}
	preds := out["predictions"].(map[string]any)
	mag := preds["aftershock_magnitude"].(map[string]any)["value"]
	if mag != 4.2 {
		t.Fatalf("expected magnitude 4.2, got %v", mag)
	}
	minutes := preds["time_to_aftershock"].(map[string]any)["minutes"]
	if minutes != 60.0 {
		t.Fatalf("expected 60 minutes, got %v", minutes)
	}
	if _, ok := out["warnings"].([]any); !ok {
		t.Fatalf("expected warnings array, got %v", out["warnings"])
	}
}

func TestPredictValidation(t *testing.T) {
	srv, _ := newTestServer(t, true)

	tests := []struct {
		body string
		code string
	}{
		{`{"magnitude":"6","depth":10,"latitude":38,"longitude":27}`, "INVALID_INPUT_TYPE"},
		{`{"depth":10,"latitude":38,"longitude":27}`, "INVALID_INPUT_TYPE"},
		{`{"magnitude":11,"depth":10,"latitude":38,"longitude":27}`, "INVALID_MAGNITUDE"},
		{`{"magnitude":6,"depth":-1,"latitude":38,"longitude":27}`, "INVALID_DEPTH"},
		{`{"magnitude":6,"depth":10,"latitude":91,"longitude":27}`, "INVALID_LATITUDE"},
		{`{"magnitude":6,"depth":10,"latitude":38,"longitude":181}`, "INVALID_LONGITUDE"},
	}
	for _, tt := range tests {
		status, out := post(t, srv.URL+"/predict", tt.body)
		if status != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tt.body, status)
		}
		if out["success"] != false || out["error_code"] != tt.code {
			t.Fatalf("%s: expected %s, got %v", tt.body, tt.code, out)
		}
	}
}

func TestPredictModelNotTrained(t *testing.T) {
	srv, _ := newTestServer(t, false)

	_, out := post(t, srv.URL+"/predict", `{"magnitude":6,"depth":10,"latitude":38,"longitude":27}`)
	if out["error_code"] != "MODEL_NOT_TRAINED" {
		t.Fatalf("expected MODEL_NOT_TRAINED, got %v", out)
	}
}

func TestMalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t, true)

	for _, path := range []string{"/predict", "/batch-predict", "/register-token"} {
		status, out := post(t, srv.URL+path, `{"magnitude":`)
		if status != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, status)
		}
		if out["success"] != false || out["error_code"] != "INVALID_INPUT_FORMAT" {
			t.Fatalf("%s: unexpected body %v", path, out)
		}
	}
}

func TestBatchPredict(t *testing.T) {
	srv, _ := newTestServer(t, true)

	body := `{"earthquakes":[
		{"id":"eq-1","magnitude":6,"depth":10,"latitude":38,"longitude":27},
		{"magnitude":6,"depth":10},
		"nope"
	]}`
	status, out := post(t, srv.URL+"/batch-predict", body)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if out["success"] != true || out["total_predictions"] != 3.0 {
		t.Fatalf("unexpected envelope %v", out)
	}
	items := out["predictions"].([]any)
	first := items[0].(map[string]any)
	if first["success"] != true || first["earthquake_id"] != "eq-1" || first["index"] != 0.0 {
		t.Fatalf("unexpected first item %v", first)
	}
	second := items[1].(map[string]any)
	if !strings.HasPrefix(second["error"].(string), "Missing required fields") {
		t.Fatalf("unexpected second item %v", second)
	}
	third := items[2].(map[string]any)
	if third["error"] != "Each earthquake must be a dictionary" || third["index"] != 2.0 {
		t.Fatalf("unexpected third item %v", third)
	}
}

func TestBatchPredictNotAList(t *testing.T) {
	srv, _ := newTestServer(t, true)

	_, out := post(t, srv.URL+"/batch-predict", `{"earthquakes":{"magnitude":6}}`)
	if out["success"] != false || out["error_code"] != "INVALID_INPUT_FORMAT" {
		t.Fatalf("expected INVALID_INPUT_FORMAT, got %v", out)
	}
}

func TestStatus(t *testing.T) {
	srv, _ := newTestServer(t, true)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if out["both_models_ready"] != true || out["model_type"] != "LightGBM" {
		t.Fatalf("unexpected status %v", out)
	}
}

func TestAuxiliaryRoutes(t *testing.T) {
	srv, _ := newTestServer(t, true)

	tests := []struct {
		path     string
		contains string
	}{
		{"/healthz", "ok"},
		{"/ws", "ws"},
		{"/metrics", "aftershock_"},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + tt.path)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tt.path, resp.StatusCode)
		}
		if !strings.Contains(string(body), tt.contains) {
			t.Fatalf("%s: expected body to contain %q, got %q", tt.path, tt.contains, body)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, true)

	resp, err := http.Get(srv.URL + "/predict")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
