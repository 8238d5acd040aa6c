package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hejijunhao/aftershock/internal/output"
)

const (
	defaultBufferSize   = 1024
	defaultDrainTimeout = 5 * time.Second
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async output closed")

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 1024.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write return immediately (dropping the message) when
// the buffer is full, instead of blocking.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// WithOnDrop sets a callback invoked for every dropped message.
func WithOnDrop(f func(output.Message)) Option {
	return func(a *Async) { a.dropFunc = f }
}

// Async decouples the poller from slow outputs via a buffered channel.
// A background goroutine drains it to the wrapped output. Errors from the
// inner output are passed to errFunc rather than propagated to the caller.
type Async struct {
	inner      output.Output
	ch         chan output.Message
	done       chan struct{}
	errFunc    func(error)
	dropFunc   func(output.Message)
	bufSize    int
	dropOnFull bool

	mu        sync.RWMutex // guards closed against sends on a closed channel
	closed    bool
	closeOnce sync.Once
}

// New wraps an output.Output in an async channel-based writer.
// The background drain goroutine starts immediately.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:   inner,
		bufSize: defaultBufferSize,
		errFunc: func(err error) { slog.Warn("async output write error", "error", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.bufSize < 0 {
		a.bufSize = 0
	}
	a.ch = make(chan output.Message, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write sends the message into the channel. By default, blocks if the
// channel is full. With WithDropOnFull, returns nil immediately and the
// message is lost.
func (a *Async) Write(ctx context.Context, msg output.Message) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	if a.dropOnFull {
		select {
		case a.ch <- msg:
		default:
			slog.Warn("async output buffer full, dropping message", "event", msg.Event)
			if a.dropFunc != nil {
				a.dropFunc(msg)
			}
		}
		return nil
	}

	select {
	case a.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the channel, waits for the drain goroutine to finish
// (with a timeout), then closes the inner output.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.ch)
		a.mu.Unlock()

		select {
		case <-a.done:
		case <-time.After(defaultDrainTimeout):
			slog.Warn("async output drain timed out")
		}
		err = a.inner.Close()
	})
	return err
}

// drain reads messages from the channel and writes them to the inner output.
func (a *Async) drain() {
	defer close(a.done)
	for msg := range a.ch {
		if err := a.inner.Write(context.Background(), msg); err != nil {
			a.errFunc(err)
		}
	}
}
