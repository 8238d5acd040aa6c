// Package metrics exposes the service's Prometheus collectors. All methods
// are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aftershock"

// Poll cycle results.
const (
	CycleSkippedFetch  = "skipped_fetch"
	CycleSkippedStatus = "skipped_status"
	CycleUnchanged     = "unchanged"
	CycleNew           = "new"
	CyclePanic         = "panic"
)

// Metrics holds the collectors, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	pollCycles        *prometheus.CounterVec
	pollDuration      prometheus.Histogram
	predictions       *prometheus.CounterVec
	predictDuration   prometheus.Histogram
	broadcasts        *prometheus.CounterVec
	broadcastDrops    *prometheus.CounterVec
	subscribers       prometheus.Gauge
	notifications     *prometheus.CounterVec
	registeredTargets prometheus.Gauge
	historySize       *prometheus.GaugeVec
	lastEventTS       prometheus.Gauge
	eventOrigin       prometheus.Gauge
	reportDelay       prometheus.Histogram
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.pollCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_cycles_total",
		Help:      "Feed poll cycles by result",
	}, []string{"result"})
	m.pollDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "poll_cycle_duration_seconds",
		Help:      "Time spent in one poll cycle",
		Buckets:   prometheus.DefBuckets,
	})
	m.predictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_total",
		Help:      "Scoring calls by source and outcome (success or error code)",
	}, []string{"source", "outcome"})
	m.predictDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "prediction_duration_seconds",
		Help:      "Time spent scoring one mainshock",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	})
	m.broadcasts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcasts_total",
		Help:      "Broadcasts by event name",
	}, []string{"event"})
	m.broadcastDrops = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_drops_total",
		Help:      "Messages dropped for slow subscribers or full mirrors",
	}, []string{"event"})
	m.subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "subscribers",
		Help:      "Connected websocket subscribers",
	})
	m.notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Push notification fan-outs by result",
	}, []string{"result"})
	m.registeredTargets = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_targets",
		Help:      "Registered push notification targets",
	})
	m.historySize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "history_entries",
		Help:      "Entries held in each history buffer",
	}, []string{"buffer"})
	m.lastEventTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_new_event_timestamp_seconds",
		Help:      "Unix time the last new event was ingested",
	})

	m.eventOrigin = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_event_origin_timestamp_seconds",
		Help:      "Origin time of the last new event, as reported by the feed",
	})
	m.reportDelay = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_report_delay_seconds",
		Help:      "Time between an event's origin and its ingestion",
		Buckets:   []float64{15, 30, 60, 120, 300, 600, 1800, 3600},
	})

	m.registry.MustRegister(
		m.pollCycles, m.pollDuration,
		m.predictions, m.predictDuration,
		m.broadcasts, m.broadcastDrops, m.subscribers,
		m.notifications, m.registeredTargets,
		m.historySize, m.lastEventTS,
		m.eventOrigin, m.reportDelay,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// PollCycle records one poll cycle with its result label and duration.
func (m *Metrics) PollCycle(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.pollCycles.WithLabelValues(result).Inc()
	m.pollDuration.Observe(d.Seconds())
	if result == CycleNew {
		m.lastEventTS.SetToCurrentTime()
	}
}

// Prediction records a scoring call. outcome is "success" or an error code.
func (m *Metrics) Prediction(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(source, outcome).Inc()
	m.predictDuration.Observe(d.Seconds())
}

// Broadcast counts one broadcast of the named event.
func (m *Metrics) Broadcast(event string) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(event).Inc()
}

// BroadcastDropped counts a message dropped for a slow subscriber or mirror.
func (m *Metrics) BroadcastDropped(event string) {
	if m == nil {
		return
	}
	m.broadcastDrops.WithLabelValues(event).Inc()
}

// Subscribers sets the number of connected websocket subscribers.
func (m *Metrics) Subscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

// Notification records one fan-out and whether any target failed.
func (m *Metrics) Notification(failed bool) {
	if m == nil {
		return
	}
	result := "ok"
	if failed {
		result = "error"
	}
	m.notifications.WithLabelValues(result).Inc()
}

// Targets sets the number of registered push targets.
func (m *Metrics) Targets(n int) {
	if m == nil {
		return
	}
	m.registeredTargets.Set(float64(n))
}

// History sets the number of entries held in a history buffer.
func (m *Metrics) History(buffer string, n int) {
	if m == nil {
		return
	}
	m.historySize.WithLabelValues(buffer).Set(float64(n))
}

// EventObserved records the origin time of a newly ingested event and how
// long after it the event was ingested. Clock skew never yields a negative delay.
func (m *Metrics) EventObserved(origin, ingested time.Time) {
	if m == nil {
		return
	}
	m.eventOrigin.Set(float64(origin.UnixNano()) / 1e9)
	m.reportDelay.Observe(max(0, ingested.Sub(origin).Seconds()))
}
