package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Feed.Provider != "kandilli" {
		t.Fatalf("expected default provider 'kandilli', got %q", cfg.Feed.Provider)
	}
	if cfg.Feed.Interval != 15*time.Second {
		t.Fatalf("expected default interval 15s, got %v", cfg.Feed.Interval)
	}
	if cfg.Engine.Threshold != 5.5 {
		t.Fatalf("expected default threshold 5.5, got %v", cfg.Engine.Threshold)
	}
	if cfg.Engine.Capacity != 50 {
		t.Fatalf("expected default capacity 50, got %d", cfg.Engine.Capacity)
	}
	if cfg.Server.HubQueueSize != 64 {
		t.Fatalf("expected default hub queue 64, got %d", cfg.Server.HubQueueSize)
	}
	if cfg.Output.Stdout {
		t.Fatal("expected stdout mirror off by default")
	}
	if cfg.Feed.Extra() != nil {
		t.Fatalf("expected nil Extra without a path override, got %v", cfg.Feed.Extra())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got: %v", err)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("AFTERSHOCK_FEED_PROVIDER", "fixture")
	t.Setenv("AFTERSHOCK_FEED_ENDPOINT", "testdata/feed.json")
	t.Setenv("AFTERSHOCK_FEED_PATH", "/deprem/kandilli/archive")
	t.Setenv("AFTERSHOCK_FEED_INTERVAL", "2s")
	t.Setenv("AFTERSHOCK_THRESHOLD", "4.5")
	t.Setenv("AFTERSHOCK_HISTORY_CAPACITY", "10")
	t.Setenv("AFTERSHOCK_LISTEN_ADDR", "127.0.0.1:8080")
	t.Setenv("AFTERSHOCK_FCM_CREDENTIALS", "/etc/aftershock/sa.json")
	t.Setenv("AFTERSHOCK_OUTPUT_STDOUT", "true")
	t.Setenv("AFTERSHOCK_OUTPUT_WEBHOOK_EVENTS", "prediction_result,earthquake_update")
	t.Setenv("AFTERSHOCK_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("AFTERSHOCK_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Feed.Provider != "fixture" || cfg.Feed.Endpoint != "testdata/feed.json" {
		t.Fatalf("unexpected feed config %+v", cfg.Feed)
	}
	if cfg.Feed.Extra()["path"] != "/deprem/kandilli/archive" {
		t.Fatalf("expected path override in Extra, got %v", cfg.Feed.Extra())
	}
	if cfg.Feed.Interval != 2*time.Second {
		t.Fatalf("expected interval 2s, got %v", cfg.Feed.Interval)
	}
	if cfg.Engine.Threshold != 4.5 || cfg.Engine.Capacity != 10 {
		t.Fatalf("unexpected engine config %+v", cfg.Engine)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Fatalf("expected listen addr override, got %q", cfg.Server.Addr)
	}
	if cfg.Notify.FCMCredentials != "/etc/aftershock/sa.json" {
		t.Fatalf("expected fcm credentials, got %q", cfg.Notify.FCMCredentials)
	}
	if !cfg.Output.Stdout {
		t.Fatal("expected stdout mirror enabled")
	}
	if len(cfg.Output.WebhookEvents) != 2 || cfg.Output.WebhookEvents[0] != "prediction_result" {
		t.Fatalf("expected two webhook events, got %v", cfg.Output.WebhookEvents)
	}
	if cfg.Telemetry.Endpoint != "http://localhost:4318" {
		t.Fatalf("expected otel endpoint, got %q", cfg.Telemetry.Endpoint)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level debug, got %q", cfg.LogLevel)
	}
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("AFTERSHOCK_FEED_INTERVAL", "soon")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for unparsable interval")
	}
	if !strings.Contains(err.Error(), "parse env") {
		t.Fatalf("expected parse env error, got: %v", err)
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aftershock.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
feed:
  provider: fixture
  endpoint: /var/lib/aftershock/feed.json
  interval: 30s
engine:
  threshold: 6
output:
  webhook_url: https://hooks.example.com/quakes
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Feed.Provider != "fixture" || cfg.Feed.Interval != 30*time.Second {
		t.Fatalf("unexpected feed config %+v", cfg.Feed)
	}
	if cfg.Engine.Threshold != 6 {
		t.Fatalf("expected threshold 6, got %v", cfg.Engine.Threshold)
	}
	// Fields the file leaves out keep their defaults.
	if cfg.Engine.Capacity != 50 {
		t.Fatalf("expected default capacity, got %d", cfg.Engine.Capacity)
	}
	if cfg.Output.WebhookURL != "https://hooks.example.com/quakes" {
		t.Fatalf("unexpected webhook url %q", cfg.Output.WebhookURL)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "engine:\n  threshold: 6\n")
	t.Setenv("AFTERSHOCK_THRESHOLD", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.Threshold != 5 {
		t.Fatalf("expected env to win with 5, got %v", cfg.Engine.Threshold)
	}
}

func TestLoad_FileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Load(writeFile(t, "feed: [")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

// --- Validation tests ---

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero interval", func(c *Config) { c.Feed.Interval = 0 }, "interval"},
		{"negative timeout", func(c *Config) { c.Feed.Timeout = -time.Second }, "timeout"},
		{"empty endpoint", func(c *Config) { c.Feed.Endpoint = "" }, "endpoint"},
		{"empty provider", func(c *Config) { c.Feed.Provider = "" }, "provider"},
		{"zero capacity", func(c *Config) { c.Engine.Capacity = 0 }, "capacity"},
		{"threshold out of range", func(c *Config) { c.Engine.Threshold = 11 }, "threshold"},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "listen address"},
		{"zero hub queue", func(c *Config) { c.Server.HubQueueSize = 0 }, "hub queue"},
		{"zero fcm rate", func(c *Config) { c.Notify.FCMRate = 0 }, "fcm rate"},
		{"bad webhook", func(c *Config) { c.Output.WebhookURL = "ftp://x" }, "webhook"},
		{"telemetry without endpoint", func(c *Config) { c.Telemetry.Enabled = true }, "telemetry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error mentioning %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error to mention %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Feed.Interval = 0
	cfg.Engine.Capacity = 0
	cfg.Server.Addr = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for multiple bad fields")
	}
	msg := err.Error()
	for _, want := range []string{"interval", "capacity", "listen address"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error to mention %q, got: %v", want, msg)
		}
	}
}
