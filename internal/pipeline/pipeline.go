// Package pipeline runs the feed poller: fetch, detect the newest event,
// score it when it qualifies, record it and fan it out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hejijunhao/aftershock/internal/connector"
	"github.com/hejijunhao/aftershock/internal/engine/normalizer"
	"github.com/hejijunhao/aftershock/internal/engine/scorer"
	"github.com/hejijunhao/aftershock/internal/feed"
	"github.com/hejijunhao/aftershock/internal/metrics"
	"github.com/hejijunhao/aftershock/internal/model"
	"github.com/hejijunhao/aftershock/internal/notify"
	"github.com/hejijunhao/aftershock/internal/output"
	"github.com/hejijunhao/aftershock/internal/telemetry"
)

const (
	// DefaultInterval is the time between two poll cycles.
	DefaultInterval = 15 * time.Second
	// DefaultThreshold is the minimum magnitude that gets scored.
	DefaultThreshold = 5.5
)

// CycleInvalidRecord is the result of a cycle whose newest record could not
// be normalized.
const CycleInvalidRecord = "invalid_record"

// Scorer predicts aftershocks for a mainshock.
type Scorer interface {
	Score(in scorer.Input) model.Prediction
}

// Notifier pushes alerts to every registered target.
type Notifier interface {
	NotifyAll(ctx context.Context, n notify.Notification) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithInterval sets the poll interval. Default: 15s.
func WithInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithThreshold sets the minimum magnitude that is scored. Default: 5.5.
func WithThreshold(m float64) Option {
	return func(p *Pipeline) { p.threshold = m }
}

// WithNotifier enables push alerts for scored events.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithMetrics records cycle outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTracer overrides the tracer used for cycle spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// Pipeline connects a connector, scorer, feed state and output into the
// poll loop. It is the only writer of the state it holds.
type Pipeline struct {
	connector connector.Connector
	cfg       connector.ConnectorConfig
	scorer    Scorer
	state     *feed.State
	output    output.Output
	notifier  Notifier
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	interval  time.Duration
	threshold float64
}

// New creates a Pipeline from the given components.
func New(conn connector.Connector, cfg connector.ConnectorConfig, sc Scorer, state *feed.State, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		connector: conn,
		cfg:       cfg,
		scorer:    sc,
		state:     state,
		output:    out,
		interval:  DefaultInterval,
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.tracer == nil {
		p.tracer = telemetry.Tracer()
	}
	return p
}

// Run polls immediately and then on every interval until ctx is cancelled.
// A failing cycle never stops the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	slog.Info("poller started", "component", "pipeline", "provider", p.cfg.Provider, "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("poller stopped", "component", "pipeline")
			return nil
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single cycle and returns its result label. Panics are
// recovered and reported as metrics.CyclePanic.
func (p *Pipeline) RunOnce(ctx context.Context) (result string) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "pipeline.cycle")
	defer func() {
		if r := recover(); r != nil {
			slog.Error("poll cycle panicked", "component", "pipeline", "panic", r, "stack", string(debug.Stack()))
			span.SetStatus(codes.Error, fmt.Sprint(r))
			result = metrics.CyclePanic
		}
		span.SetAttributes(attribute.String("cycle.result", result))
		span.End()
		p.metrics.PollCycle(result, time.Since(start))
	}()
	return p.cycle(ctx, span)
}

func (p *Pipeline) cycle(ctx context.Context, span trace.Span) string {
	snap, err := p.connector.Fetch(ctx, p.cfg)
	if err != nil {
		slog.Warn("feed fetch failed", "component", "pipeline", "error", err)
		span.RecordError(err)
		return metrics.CycleSkippedFetch
	}
	if err := connector.Check(snap); err != nil {
		slog.Warn("feed snapshot skipped", "component", "pipeline", "error", err)
		return metrics.CycleSkippedStatus
	}

	seededNow := p.seed(snap.Result)

	newest := snap.Result[0]
	span.SetAttributes(attribute.String("event.id", newest.ID))
	if !p.state.Observe(newest.ID) {
		return metrics.CycleUnchanged
	}

	event, err := normalizer.Normalize(newest)
	if err != nil {
		slog.Warn("newest record rejected", "component", "pipeline", "event_id", newest.ID, "error", err)
		span.RecordError(err)
		return CycleInvalidRecord
	}

	// The seed already starts with the newest record.
	if head, ok := p.state.Events.Latest(); !seededNow || !ok || head.ID != event.ID {
		p.state.Events.Prepend(event)
	}
	p.metrics.History("events", p.state.Events.Len())
	if origin, err := normalizer.ParseDateTime(event.DateTime); err == nil {
		p.metrics.EventObserved(origin, time.Now())
	} else {
		slog.Debug("event time not parseable", "component", "pipeline", "event_id", event.ID, "error", err)
	}

	slog.Info("new earthquake", "component", "pipeline", "event_id", event.ID,
		"magnitude", event.Magnitude, "city", event.ClosestCity)

	var prediction *model.Prediction
	if event.Magnitude >= p.threshold {
		prediction = p.score(ctx, event)
	}

	p.broadcast(ctx, output.EventEarthquakeUpdate, model.EventUpdate{Event: event, Prediction: prediction})
	return metrics.CycleNew
}

// seed fills the events history on the first successful cycle.
func (p *Pipeline) seed(records []model.Record) bool {
	if p.state.Seeded() {
		return false
	}
	limit := p.state.Events.Cap()
	events, err := normalizer.NormalizeBatch(records, limit)
	if err != nil {
		slog.Warn("skipped malformed records while seeding", "component", "pipeline", "error", err)
	}
	if !p.state.SeedOnce(events) {
		return false
	}
	slog.Info("events history seeded", "component", "pipeline", "count", len(events))
	p.metrics.History("events", p.state.Events.Len())
	return true
}

// score runs the scorer and, on success, records, broadcasts and pushes the
// prediction. A failed prediction is logged and yields nil.
func (p *Pipeline) score(ctx context.Context, event model.Event) *model.Prediction {
	start := time.Now()
	result := p.scorer.Score(scorer.InputFromEvent(event))
	outcome := "success"
	if !result.Success {
		outcome = string(result.ErrorCode)
	}
	p.metrics.Prediction("poller", outcome, time.Since(start))

	if !result.Success {
		slog.Warn("scoring failed", "component", "pipeline", "event_id", event.ID,
			"error_code", result.ErrorCode, "error", result.Error)
		return nil
	}

	attached := result.AttachTo(event)
	p.state.Predictions.Prepend(attached)
	p.metrics.History("predictions", p.state.Predictions.Len())
	p.broadcast(ctx, output.EventPredictionResult, attached)

	if p.notifier != nil {
		predicted, _ := attached.PredictedMagnitude()
		err := p.notifier.NotifyAll(ctx, notify.EarthquakeAlert(event, predicted))
		p.metrics.Notification(err != nil)
		if err != nil {
			slog.Warn("some push notifications failed", "component", "pipeline", "event_id", event.ID, "error", err)
		}
	}
	return &attached
}

func (p *Pipeline) broadcast(ctx context.Context, event string, data any) {
	p.metrics.Broadcast(event)
	if err := p.output.Write(ctx, output.NewMessage(event, data)); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Warn("broadcast failed", "component", "pipeline", "event", event, "error", err)
	}
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}
