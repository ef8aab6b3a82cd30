package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nadzzz/echowise/internal/broker"
	"github.com/nadzzz/echowise/internal/capability"
	"github.com/nadzzz/echowise/internal/capability/remote"
	"github.com/nadzzz/echowise/internal/capability/sim"
	"github.com/nadzzz/echowise/internal/config"
	"github.com/nadzzz/echowise/internal/dispatch"
	"github.com/nadzzz/echowise/internal/format"
	"github.com/nadzzz/echowise/internal/intent"
	"github.com/nadzzz/echowise/internal/metrics"
	"github.com/nadzzz/echowise/internal/speech"
	"github.com/nadzzz/echowise/internal/speech/whisper"
)

// app is the wired dispatch pipeline shared by every subcommand.
type app struct {
	cfg      *config.Config
	service  *dispatch.Service
	registry *prometheus.Registry

	// device is the simulated device, nil for the mqtt backend.
	device *sim.Device

	closers []func()
}

// loadApp reads configuration, sets up logging and wires the pipeline.
func loadApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	config.SetupLogging(cfg.Logging)
	return newApp(ctx, cfg)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	matcher, err := buildMatcher(cfg.Matching)
	if err != nil {
		return nil, err
	}

	formatter, err := format.New(cfg.Locale.Default, cfg.Locale.StringsFile)
	if err != nil {
		return nil, fmt.Errorf("loading response strings: %w", err)
	}

	port, err := a.buildPort(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var src speech.Source
	if cfg.Speech.Enabled {
		src = whisper.New(cfg.Speech)
		slog.Info("speech input enabled", "endpoint", cfg.Speech.Endpoint, "model", cfg.Speech.Model)
	}

	engine := dispatch.New(matcher, port, dispatch.WithMetrics(metrics.New(a.registry)))
	a.service = dispatch.NewService(engine, formatter, src)

	slog.Info("dispatch pipeline ready",
		"matching", matcher.Mode(),
		"locale", cfg.Locale.Default,
		"device", cfg.Device.Backend)
	return a, nil
}

func buildMatcher(cfg config.MatchingConfig) (*intent.Matcher, error) {
	mode, err := intent.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	extra := make(map[intent.Kind][]string, len(cfg.Keywords))
	for name, words := range cfg.Keywords {
		kind, ok := intent.ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("matching.keywords: unknown intent %q", name)
		}
		extra[kind] = words
	}
	return intent.NewMatcher(mode, extra)
}

func (a *app) buildPort(ctx context.Context) (capability.Port, error) {
	switch a.cfg.Device.Backend {
	case "mqtt":
		mc := a.cfg.Device.MQTT
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		b, err := broker.Connect(connectCtx, broker.Options{
			URL:      mc.Broker,
			ClientID: mc.ClientID,
			Username: mc.Username,
			Password: mc.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting device broker: %w", err)
		}
		a.closers = append(a.closers, b.Close)
		port, err := remote.New(b, mc.TopicPrefix, mc.DeviceID, mc.Timeout)
		if err != nil {
			return nil, err
		}
		slog.Info("using remote device", "broker", mc.Broker, "device_id", mc.DeviceID)
		return port, nil
	default:
		a.device = sim.New(a.cfg.Device.Sim)
		slog.Info("using simulated device")
		return a.device, nil
	}
}

// Close releases broker connections held by the pipeline.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
