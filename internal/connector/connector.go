package connector

import (
	"context"
	"errors"
	"time"

	"github.com/hejijunhao/aftershock/internal/model"
)

// Connector defines the interface all seismic feed connectors must implement.
type Connector interface {
	// Fetch returns the current feed snapshot, newest record first.
	Fetch(ctx context.Context, cfg ConnectorConfig) (model.Snapshot, error)
}

// ConnectorConfig holds provider-specific connection settings.
type ConnectorConfig struct {
	Provider string
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Extra    map[string]string
}

var (
	// ErrUpstreamStatus means the feed answered but reported status=false.
	ErrUpstreamStatus = errors.New("upstream reported an unsuccessful status")
	// ErrEmptyFeed means the feed answered with no records.
	ErrEmptyFeed = errors.New("upstream returned no records")
)

// Check classifies a snapshot that was fetched without transport errors.
func Check(s model.Snapshot) error {
	if !s.Status {
		return ErrUpstreamStatus
	}
	if len(s.Result) == 0 {
		return ErrEmptyFeed
	}
	return nil
}
