package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/hejijunhao/aftershock/internal/output"
)

// Output mirrors broadcasts to stdout as NDJSON, one timestamped frame per line.
type Output struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// New creates a stdout Output with optional pretty-printed JSON.
func New(pretty bool) *Output {
	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc}
}

func (o *Output) Write(_ context.Context, msg output.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(output.FormatMessage(msg, true)); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
