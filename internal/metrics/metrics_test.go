package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestCollectorsExposed(t *testing.T) {
	m := New()
	m.PollCycle(CycleNew, 20*time.Millisecond)
	m.PollCycle(CycleUnchanged, time.Millisecond)
	m.PollCycle(CycleUnchanged, time.Millisecond)
	m.Prediction("poller", "success", time.Millisecond)
	m.Broadcast("earthquake_update")
	m.BroadcastDropped("earthquake_update")
	m.Subscribers(3)
	m.Notification(false)
	m.Targets(2)
	m.History("events", 50)
	origin := time.Date(2025, 1, 22, 12, 0, 0, 0, time.UTC)
	m.EventObserved(origin, origin.Add(90*time.Second))

	body := scrape(t, m)
	for _, want := range []string{
		`aftershock_poll_cycles_total{result="new"} 1`,
		`aftershock_poll_cycles_total{result="unchanged"} 2`,
		`aftershock_predictions_total{outcome="success",source="poller"} 1`,
		`aftershock_broadcasts_total{event="earthquake_update"} 1`,
		`aftershock_broadcast_drops_total{event="earthquake_update"} 1`,
		`aftershock_subscribers 3`,
		`aftershock_notifications_total{result="ok"} 1`,
		`aftershock_notification_targets 2`,
		`aftershock_history_entries{buffer="events"} 50`,
		`aftershock_last_event_origin_timestamp_seconds 1.7375472e+09`,
		`aftershock_event_report_delay_seconds_bucket{le="120"} 1`,
		`aftershock_event_report_delay_seconds_bucket{le="60"} 0`,
		`go_goroutines`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in scrape output", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.PollCycle(CyclePanic, 0)
	m.Prediction("http", "INVALID_DEPTH", 0)
	m.Broadcast("x")
	m.BroadcastDropped("x")
	m.Subscribers(1)
	m.Notification(true)
	m.Targets(1)
	m.History("events", 1)
	m.EventObserved(time.Now(), time.Now())
	if m.Registry() != nil {
		t.Fatal("expected nil registry")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Targets(7)
	if strings.Contains(scrape(t, b), "aftershock_notification_targets 7") {
		t.Fatal("expected private registries")
	}
}

func TestEventObservedClampsSkew(t *testing.T) {
	m := New()
	now := time.Now()
	m.EventObserved(now.Add(time.Minute), now)

	body := scrape(t, m)
	if !strings.Contains(body, `aftershock_event_report_delay_seconds_bucket{le="15"} 1`) {
		t.Fatalf("expected a future origin to count as zero delay, got:\n%s", body)
	}
}
