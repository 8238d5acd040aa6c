package multi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hejijunhao/aftershock/internal/output"
)

// Multi fans out broadcasts to multiple output.Output implementations.
// Each Write call delivers the message to every wrapped output sequentially.
// A failing or panicking output never keeps the message from the rest.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi that fans out to the given outputs. Nil outputs are skipped.
func New(outputs ...output.Output) *Multi {
	m := &Multi{}
	for _, o := range outputs {
		if o != nil {
			m.outputs = append(m.outputs, o)
		}
	}
	return m
}

// Write delivers the message to every wrapped output. Each error is labelled
// with the output's type.
func (m *Multi) Write(ctx context.Context, msg output.Message) error {
	var errs []error
	for _, o := range m.outputs {
		if err := safeCall(o, msg.Event, func() error { return o.Write(ctx, msg) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on every wrapped output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := safeCall(o, "close", o.Close); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func safeCall(o output.Output, op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("output panicked", "component", "multi", "output", fmt.Sprintf("%T", o), "op", op, "panic", r)
			err = fmt.Errorf("output %T: panic: %v", o, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("output %T: %w", o, err)
	}
	return nil
}
