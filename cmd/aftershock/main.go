package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hejijunhao/aftershock/internal/config"
	"github.com/hejijunhao/aftershock/internal/connector"
	"github.com/hejijunhao/aftershock/internal/engine/scorer"
	"github.com/hejijunhao/aftershock/internal/feed"
	"github.com/hejijunhao/aftershock/internal/logging"
	"github.com/hejijunhao/aftershock/internal/metrics"
	"github.com/hejijunhao/aftershock/internal/notify"
	"github.com/hejijunhao/aftershock/internal/notify/fcm"
	"github.com/hejijunhao/aftershock/internal/output"
	"github.com/hejijunhao/aftershock/internal/output/async"
	"github.com/hejijunhao/aftershock/internal/output/file"
	"github.com/hejijunhao/aftershock/internal/output/hub"
	"github.com/hejijunhao/aftershock/internal/output/multi"
	"github.com/hejijunhao/aftershock/internal/output/stdout"
	"github.com/hejijunhao/aftershock/internal/output/webhook"
	"github.com/hejijunhao/aftershock/internal/pipeline"
	"github.com/hejijunhao/aftershock/internal/server"
	"github.com/hejijunhao/aftershock/internal/telemetry"

	// Register connector implementations.
	_ "github.com/hejijunhao/aftershock/internal/connector/fixture"
	_ "github.com/hejijunhao/aftershock/internal/connector/kandilli"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("AFTERSHOCK_CONFIG"), "path to a YAML config file")
	once := flag.Bool("once", false, "run a single poll cycle and exit")
	flag.Parse()

	if err := run(*configPath, *once); err != nil {
		slog.Error("aftershock exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, once bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Init(cfg.Output.Stdout, logging.ParseLevel(cfg.LogLevel), cfg.Telemetry.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	m := metrics.New()

	sc, err := scorer.Load(cfg.Engine.ModelDir)
	if err != nil {
		return err
	}
	defer sc.Close()
	st := sc.Status()
	slog.Info("models loaded", "component", "scorer", "dir", cfg.Engine.ModelDir,
		"magnitude", st.MagnitudeModelTrained, "time", st.TimeModelTrained)

	state := feed.NewState(cfg.Engine.Capacity)

	h := hub.New(state,
		hub.WithQueueSize(cfg.Server.HubQueueSize),
		hub.WithOnDrop(m.BroadcastDropped),
		hub.WithOnCount(m.Subscribers),
	)
	mirrors, err := buildMirrors(cfg.Output, m)
	if err != nil {
		return err
	}
	out := multi.New(append([]output.Output{h}, mirrors...)...)

	registry := notify.NewRegistry()
	sender, err := buildSender(ctx, cfg.Notify)
	if err != nil {
		return err
	}
	notifier := notify.New(registry, sender)

	ctor, err := connector.Get(cfg.Feed.Provider)
	if err != nil {
		return fmt.Errorf("failed to get connector: %w", err)
	}
	connCfg := connector.ConnectorConfig{
		Provider: cfg.Feed.Provider,
		Endpoint: cfg.Feed.Endpoint,
		APIKey:   cfg.Feed.APIKey,
		Timeout:  cfg.Feed.Timeout,
		Extra:    cfg.Feed.Extra(),
	}

	p := pipeline.New(ctor(), connCfg, sc, state, out,
		pipeline.WithInterval(cfg.Feed.Interval),
		pipeline.WithThreshold(cfg.Engine.Threshold),
		pipeline.WithNotifier(notifier),
		pipeline.WithMetrics(m),
	)
	defer p.Close()

	if once {
		result := p.RunOnce(ctx)
		slog.Info("single cycle finished", "result", result, "events", state.Events.Len())
		return nil
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(sc, registry, h.Handler(), m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "component", "server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return p.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down", "component", "server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// buildMirrors wraps every configured secondary output in a drop-on-full
// async writer so a slow mirror never stalls the poller.
func buildMirrors(cfg config.OutputConfig, m *metrics.Metrics) ([]output.Output, error) {
	var inner []output.Output
	if cfg.Stdout {
		inner = append(inner, stdout.New(cfg.Pretty))
	}
	if cfg.FilePath != "" {
		f, err := file.New(cfg.FilePath, file.WithMaxSize(cfg.FileMaxSize), file.WithKeep(cfg.FileKeep))
		if err != nil {
			return nil, fmt.Errorf("file output: %w", err)
		}
		inner = append(inner, f)
	}
	if cfg.WebhookURL != "" {
		inner = append(inner, webhook.New(cfg.WebhookURL, webhook.WithEvents(cfg.WebhookEvents...)))
	}

	mirrors := make([]output.Output, 0, len(inner))
	for _, o := range inner {
		mirrors = append(mirrors, async.New(o,
			async.WithBufferSize(cfg.BufferSize),
			async.WithDropOnFull(),
			async.WithOnDrop(func(msg output.Message) { m.BroadcastDropped(msg.Event) }),
		))
	}
	return mirrors, nil
}

func buildSender(ctx context.Context, cfg config.NotifyConfig) (notify.Sender, error) {
	if cfg.FCMCredentials == "" {
		slog.Info("no push credentials configured, alerts are only logged", "component", "notify")
		return notify.LogSender{}, nil
	}
	s, err := fcm.NewFromFile(ctx, cfg.FCMCredentials, fcm.WithRate(cfg.FCMRate))
	if err != nil {
		return nil, err
	}
	return s, nil
}
