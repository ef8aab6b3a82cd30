package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nadzzz/echowise/internal/broker"
	"github.com/nadzzz/echowise/internal/health"
	"github.com/nadzzz/echowise/internal/transport"
	grpctransport "github.com/nadzzz/echowise/internal/transport/grpc"
	httptransport "github.com/nadzzz/echowise/internal/transport/http"
	mqtttransport "github.com/nadzzz/echowise/internal/transport/mqtt"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon with the configured transports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), *configPath)
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	a, err := loadApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	slog.Info("echowise starting", "version", version)

	transports, err := buildTransports(ctx, a)
	if err != nil {
		return err
	}
	if len(transports) == 0 {
		return errors.New("no transports enabled, enable at least one in config")
	}

	healthServer := health.New(a.cfg.Server.HealthPort,
		promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	var (
		wg       sync.WaitGroup
		failed   = make(chan struct{})
		failOnce sync.Once
	)
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, a.service.Handle); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
				failOnce.Do(func() { close(failed) })
			}
		}(t)
	}

	if waitStarted(ctx, transports, failed) {
		healthServer.SetReady(true)
		slog.Info("echowise ready",
			"transports", len(transports),
			"health_port", a.cfg.Server.HealthPort)
	} else if ctx.Err() == nil {
		slog.Error("a transport failed to start, staying not ready")
	}

	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("echowise stopped")
	return nil
}

// waitStarted blocks until every transport has started. It returns false
// if ctx ends or failed is closed first.
func waitStarted(ctx context.Context, transports []transport.Transport, failed <-chan struct{}) bool {
	for _, t := range transports {
		select {
		case <-t.Started():
		case <-failed:
			return false
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func buildTransports(ctx context.Context, a *app) ([]transport.Transport, error) {
	tc := a.cfg.Transports
	var transports []transport.Transport

	if tc.GRPC.Enabled {
		transports = append(transports, grpctransport.New(tc.GRPC.Port))
	}
	if tc.HTTP.Enabled {
		transports = append(transports, httptransport.New(tc.HTTP.Port))
	}
	if tc.MQTT.Enabled {
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		b, err := broker.Connect(connectCtx, broker.Options{
			URL:      tc.MQTT.Broker,
			ClientID: tc.MQTT.ClientID,
			Username: tc.MQTT.Username,
			Password: tc.MQTT.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting transport broker: %w", err)
		}
		transports = append(transports, mqtttransport.New(b, tc.MQTT.TopicPrefix))
	}
	return transports, nil
}
