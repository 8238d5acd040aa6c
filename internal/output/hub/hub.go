// Package hub delivers broadcasts to live websocket subscribers.
//
// A new subscriber first receives the current history (initial_earthquakes
// then initial_predictions, each only when non-empty) and only then joins
// the broadcast set. Both steps happen under the hub lock, so no broadcast
// can reach a subscriber ahead of its snapshot. Every subscriber owns a
// bounded queue drained by its own writer goroutine; when a queue is full
// the message is dropped for that subscriber alone.
package hub

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/hejijunhao/aftershock/internal/feed"
	"github.com/hejijunhao/aftershock/internal/output"
)

const defaultQueueSize = 64

// ErrClosed is returned when subscribing to a closed hub.
var ErrClosed = errors.New("hub closed")

// Source provides the history sent to new subscribers.
type Source interface {
	Snapshot() feed.Snapshot
}

// Option configures a Hub.
type Option func(*Hub)

// WithQueueSize sets the per-subscriber queue capacity. Default: 64.
func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

// WithOnDrop sets a callback invoked when a message is dropped for a slow subscriber.
func WithOnDrop(f func(event string)) Option {
	return func(h *Hub) { h.onDrop = f }
}

// WithOnCount sets a callback invoked with the subscriber count after every change.
func WithOnCount(f func(n int)) Option {
	return func(h *Hub) { h.onCount = f }
}

// Hub implements output.Output over websocket subscribers.
type Hub struct {
	source    Source
	queueSize int
	onDrop    func(event string)
	onCount   func(n int)

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	id    string
	queue chan output.Frame
}

// New creates a Hub that seeds subscribers from source.
func New(source Source, opts ...Option) *Hub {
	h := &Hub{
		source:    source,
		queueSize: defaultQueueSize,
		subs:      make(map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Write enqueues the message for every current subscriber. It never blocks
// on a slow subscriber and never fails.
func (h *Hub) Write(_ context.Context, msg output.Message) error {
	frame := output.FormatMessage(msg, false)

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.queue <- frame:
		default:
			slog.Warn("subscriber queue full, dropping message",
				"component", "hub", "subscriber", s.id, "event", msg.Event)
			if h.onDrop != nil {
				h.onDrop(msg.Event)
			}
		}
	}
	return nil
}

// Close disconnects every subscriber. Later subscriptions are refused.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for s := range h.subs {
		close(s.queue)
		delete(h.subs, s)
	}
	h.countLocked()
	return nil
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// subscribe registers a subscriber whose queue already holds the snapshot.
func (h *Hub) subscribe() (*subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	s := &subscriber{
		id:    uuid.NewString(),
		queue: make(chan output.Frame, max(h.queueSize, 2)),
	}
	if h.source != nil {
		snap := h.source.Snapshot()
		if len(snap.Events) > 0 {
			s.queue <- output.FormatMessage(output.Message{Event: output.EventInitialEarthquakes, Data: snap.Events}, false)
		}
		if len(snap.Predictions) > 0 {
			s.queue <- output.FormatMessage(output.Message{Event: output.EventInitialPredictions, Data: snap.Predictions}, false)
		}
	}
	h.subs[s] = struct{}{}
	h.countLocked()
	return s, nil
}

func (h *Hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.queue)
	h.countLocked()
}

func (h *Hub) countLocked() {
	if h.onCount != nil {
		h.onCount(len(h.subs))
	}
}

// Handler returns the websocket endpoint for subscribers. Any origin is
// accepted, including none: mobile clients send no Origin header.
func (h *Hub) Handler() http.Handler {
	return websocket.Server{
		Handler:   h.serve,
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
	}
}

func (h *Hub) serve(conn *websocket.Conn) {
	s, err := h.subscribe()
	if err != nil {
		_ = conn.Close()
		return
	}
	slog.Info("subscriber connected", "component", "hub", "subscriber", s.id)

	written := make(chan struct{})
	go func() {
		defer close(written)
		// Closing the connection unblocks the read loop below.
		defer conn.Close()
		for frame := range s.queue {
			if err := websocket.JSON.Send(conn, frame); err != nil {
				slog.Debug("subscriber write failed", "component", "hub", "subscriber", s.id, "error", err)
				return
			}
		}
	}()

	// Subscribers never send anything meaningful; reading detects disconnects.
	var discard []byte
	for {
		if err := websocket.Message.Receive(conn, &discard); err != nil {
			break
		}
	}

	h.unsubscribe(s)
	<-written
	slog.Info("subscriber disconnected", "component", "hub", "subscriber", s.id)
}
