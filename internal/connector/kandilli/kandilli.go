// Package kandilli fetches the Kandilli Observatory live earthquake feed as
// republished by api.orhanaydogdu.com.tr (or a compatible simulator).
package kandilli

import (
	"context"
	"fmt"

	"github.com/hejijunhao/aftershock/internal/connector"
	"github.com/hejijunhao/aftershock/internal/connector/httpclient"
	"github.com/hejijunhao/aftershock/internal/model"
)

const (
	defaultEndpoint = "https://api.orhanaydogdu.com.tr"
	defaultPath     = "/deprem/kandilli/live"
)

func init() {
	connector.Register("kandilli", func() connector.Connector {
		return &Connector{}
	})
}

// Connector implements connector.Connector for the Kandilli live feed.
// Extra keys: "path" overrides the feed path.
type Connector struct{}

// Fetch performs one GET of the live feed. The upstream envelope is
// returned untouched; status and emptiness are judged by the caller.
func (c *Connector) Fetch(ctx context.Context, cfg connector.ConnectorConfig) (model.Snapshot, error) {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = defaultEndpoint
	}
	path := cfg.Extra["path"]
	if path == "" {
		path = defaultPath
	}

	client := httpclient.New(baseURL,
		httpclient.WithToken(cfg.APIKey),
		httpclient.WithTimeout(cfg.Timeout),
	)

	var snap model.Snapshot
	if err := client.GetJSON(ctx, path, nil, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("kandilli connector: %w", err)
	}
	return snap, nil
}
