package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "AFTERSHOCK_"

// Config holds all aftershock configuration.
type Config struct {
	Feed      FeedConfig      `yaml:"feed" envPrefix:"FEED_"`
	Engine    EngineConfig    `yaml:"engine"`
	Server    ServerConfig    `yaml:"server"`
	Notify    NotifyConfig    `yaml:"notify"`
	Output    OutputConfig    `yaml:"output" envPrefix:"OUTPUT_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"OTEL_"`
	LogLevel  string          `yaml:"log_level" env:"LOG_LEVEL"`
}

// FeedConfig selects and tunes the upstream connector.
type FeedConfig struct {
	Provider string        `yaml:"provider" env:"PROVIDER"`
	Endpoint string        `yaml:"endpoint" env:"ENDPOINT"` // base URL, or file path for the fixture provider
	Path     string        `yaml:"path" env:"PATH"`         // overrides the provider's default feed path
	APIKey   string        `yaml:"api_key" env:"API_KEY"`
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// EngineConfig holds scoring and history settings.
type EngineConfig struct {
	ModelDir  string  `yaml:"model_dir" env:"MODEL_DIR"`
	Threshold float64 `yaml:"threshold" env:"THRESHOLD"`
	Capacity  int     `yaml:"history_capacity" env:"HISTORY_CAPACITY"`
}

// ServerConfig holds HTTP and websocket settings.
type ServerConfig struct {
	Addr         string `yaml:"addr" env:"LISTEN_ADDR"`
	HubQueueSize int    `yaml:"hub_queue_size" env:"HUB_QUEUE_SIZE"`
}

// NotifyConfig holds push notification settings. Without credentials
// alerts are only logged.
type NotifyConfig struct {
	FCMCredentials string `yaml:"fcm_credentials" env:"FCM_CREDENTIALS"`
	FCMRate        int    `yaml:"fcm_rate" env:"FCM_RATE"` // sends per second
}

// OutputConfig holds the optional broadcast mirrors.
type OutputConfig struct {
	Stdout      bool   `yaml:"stdout" env:"STDOUT"`
	Pretty      bool   `yaml:"pretty" env:"PRETTY"`
	FilePath    string `yaml:"file_path" env:"FILE_PATH"`
	FileMaxSize int64  `yaml:"file_max_size" env:"FILE_MAX_SIZE"`
	FileKeep    int    `yaml:"file_keep" env:"FILE_KEEP"`
	WebhookURL  string `yaml:"webhook_url" env:"WEBHOOK_URL"`
	// WebhookEvents limits what the webhook forwards; empty forwards all.
	WebhookEvents []string `yaml:"webhook_events" env:"WEBHOOK_EVENTS" envSeparator:","`
	BufferSize    int      `yaml:"buffer_size" env:"BUFFER_SIZE"` // per mirror, drop-on-full
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	Enabled     bool   `yaml:"enabled" env:"ENABLED"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Feed: FeedConfig{
			Provider: "kandilli",
			Endpoint: "https://api.orhanaydogdu.com.tr",
			Interval: 15 * time.Second,
			Timeout:  15 * time.Second,
		},
		Engine: EngineConfig{
			ModelDir:  "models",
			Threshold: 5.5,
			Capacity:  50,
		},
		Server: ServerConfig{
			Addr:         ":5000",
			HubQueueSize: 64,
		},
		Notify: NotifyConfig{
			FCMRate: 20,
		},
		Output: OutputConfig{
			FileMaxSize: 100 << 20,
			FileKeep:    10,
			BufferSize:  1024,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "aftershock",
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then AFTERSHOCK_* environment variables.
// Later sources win.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration can start the service.
func (c Config) Validate() error {
	var errs []error

	if c.Feed.Provider == "" {
		errs = append(errs, errors.New("feed provider must be set"))
	}
	if c.Feed.Endpoint == "" {
		errs = append(errs, fmt.Errorf("feed endpoint must be set for provider %q", c.Feed.Provider))
	}
	if c.Feed.Interval <= 0 {
		errs = append(errs, fmt.Errorf("feed interval must be positive, got %v", c.Feed.Interval))
	}
	if c.Feed.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("feed timeout must be positive, got %v", c.Feed.Timeout))
	}
	if c.Engine.Capacity < 1 {
		errs = append(errs, fmt.Errorf("history capacity must be at least 1, got %d", c.Engine.Capacity))
	}
	if c.Engine.Threshold < 0 || c.Engine.Threshold > 10 {
		errs = append(errs, fmt.Errorf("threshold must be within [0, 10], got %v", c.Engine.Threshold))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("listen address must be set"))
	}
	if c.Server.HubQueueSize < 1 {
		errs = append(errs, fmt.Errorf("hub queue size must be at least 1, got %d", c.Server.HubQueueSize))
	}
	if c.Notify.FCMRate < 1 {
		errs = append(errs, fmt.Errorf("fcm rate must be at least 1, got %d", c.Notify.FCMRate))
	}
	if c.Output.BufferSize < 1 {
		errs = append(errs, fmt.Errorf("output buffer size must be at least 1, got %d", c.Output.BufferSize))
	}
	if c.Output.WebhookURL != "" && !strings.HasPrefix(c.Output.WebhookURL, "http://") && !strings.HasPrefix(c.Output.WebhookURL, "https://") {
		errs = append(errs, fmt.Errorf("webhook url must be http(s), got %q", c.Output.WebhookURL))
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry endpoint must be set when telemetry is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Extra returns provider-specific connector settings.
func (f FeedConfig) Extra() map[string]string {
	if f.Path == "" {
		return nil
	}
	return map[string]string{"path": f.Path}
}
