package fixture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hejijunhao/aftershock/internal/connector"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestFetch_RereadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.json")
	writeFile(t, path, `{"status":true,"result":[{"_id":"a","mag":4.1}]}`)

	c := &Connector{}
	cfg := connector.ConnectorConfig{Endpoint: path}

	snap, err := c.Fetch(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Result) != 1 || snap.Result[0].ID != "a" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	writeFile(t, path, `{"status":true,"result":[{"_id":"b","mag":6.0},{"_id":"a","mag":4.1}]}`)
	snap, err = c.Fetch(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Result) != 2 || snap.Result[0].ID != "b" {
		t.Fatalf("expected updated snapshot, got %+v", snap)
	}
}

func TestFetch_Errors(t *testing.T) {
	c := &Connector{}
	if _, err := c.Fetch(context.Background(), connector.ConnectorConfig{}); err == nil {
		t.Fatal("expected error for missing path")
	}
	if _, err := c.Fetch(context.Background(), connector.ConnectorConfig{Endpoint: filepath.Join(t.TempDir(), "nope.json")}); err == nil {
		t.Fatal("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	writeFile(t, bad, `not json`)
	if _, err := c.Fetch(context.Background(), connector.ConnectorConfig{Endpoint: bad}); err == nil {
		t.Fatal("expected error for malformed file")
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&Connector{}).Fetch(ctx, connector.ConnectorConfig{Endpoint: "x"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
