// Package fixture serves the feed from a JSON file on disk. The file is
// re-read on every fetch, so editing it simulates new upstream events.
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hejijunhao/aftershock/internal/connector"
	"github.com/hejijunhao/aftershock/internal/model"
)

func init() {
	connector.Register("fixture", func() connector.Connector {
		return &Connector{}
	})
}

// Connector implements connector.Connector over a local snapshot file.
// The file path is taken from Endpoint.
type Connector struct{}

func (c *Connector) Fetch(ctx context.Context, cfg connector.ConnectorConfig) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	if cfg.Endpoint == "" {
		return model.Snapshot{}, fmt.Errorf("fixture connector: missing file path in endpoint")
	}

	data, err := os.ReadFile(cfg.Endpoint)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("fixture connector: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("fixture connector: parsing %s: %w", cfg.Endpoint, err)
	}
	return snap, nil
}
