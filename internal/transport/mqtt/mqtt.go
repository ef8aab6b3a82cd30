// Package mqtt implements the MQTT transport for echowise.
//
// Clients publish utterances to <prefix>/<source>/utterance, either as a
// JSON message.Request or as plain UTF-8 text. The rendered response is
// published as JSON to <prefix>/<source>/response.
package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nadzzz/echowise/internal/broker"
	"github.com/nadzzz/echowise/internal/dispatch"
	"github.com/nadzzz/echowise/internal/message"
	"github.com/nadzzz/echowise/internal/transport"
)

// Transport implements transport.Transport over MQTT.
type Transport struct {
	broker  broker.Broker
	prefix  string
	started chan struct{}

	// mu orders wg.Add in the delivery callback against wg.Wait in Listen.
	mu        sync.Mutex
	stopping  bool
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a new MQTT transport on an established broker connection.
// The transport takes ownership of b and closes it on Close.
func New(b broker.Broker, prefix string) *Transport {
	return &Transport{
		broker:  b,
		prefix:  strings.TrimSuffix(prefix, "/"),
		started: make(chan struct{}),
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "mqtt" }

// Listen subscribes to utterance topics and blocks until ctx is cancelled.
// Each message is handled on its own goroutine so slow capabilities do not
// stall the broker's delivery loop.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	filter := t.prefix + "/+/utterance"
	err := t.broker.Subscribe(filter, func(topic string, payload []byte) {
		t.mu.Lock()
		if t.stopping {
			t.mu.Unlock()
			slog.Debug("dropping utterance during shutdown", "topic", topic)
			return
		}
		t.wg.Add(1)
		t.mu.Unlock()
		go func() {
			defer t.wg.Done()
			t.handle(ctx, handler, topic, payload)
		}()
	})
	if err != nil {
		return fmt.Errorf("mqtt subscribe: %w", err)
	}
	slog.Info("mqtt transport listening", "filter", filter)
	close(t.started)

	<-ctx.Done()
	slog.Info("mqtt transport shutting down")
	t.mu.Lock()
	t.stopping = true
	t.mu.Unlock()
	t.wg.Wait()
	return nil
}

// Started is closed once the utterance subscription is in place.
func (t *Transport) Started() <-chan struct{} { return t.started }

func (t *Transport) handle(ctx context.Context, handler transport.Handler, topic string, payload []byte) {
	source := sourceOf(t.prefix, topic)
	logger := slog.With("topic", topic, "source", source)

	req, err := decodeRequest(payload)
	if err != nil {
		logger.Warn("invalid utterance payload", "error", err)
		t.reply(logger, source, &message.Response{Error: "invalid payload"})
		return
	}
	if req.Source == "" {
		req.Source = source
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}

	resp, err := handler(ctx, req)
	switch {
	case errors.Is(err, dispatch.ErrAudioUnsupported):
		resp = &message.Response{RequestID: req.ID, Error: err.Error()}
	case err != nil:
		logger.Error("dispatch failed", "request_id", req.ID, "error", err)
		resp = &message.Response{RequestID: req.ID, Error: "internal error"}
	}
	t.reply(logger, source, resp)
}

func (t *Transport) reply(logger *slog.Logger, source string, resp *message.Response) {
	body, err := json.Marshal(resp)
	if err != nil {
		logger.Error("encoding response", "error", err)
		return
	}
	if err := t.broker.Publish(t.responseTopic(source), body); err != nil {
		logger.Error("publishing response", "error", err)
	}
}

func (t *Transport) responseTopic(source string) string {
	return t.prefix + "/" + source + "/response"
}

// Close disconnects from the MQTT broker.
func (t *Transport) Close() error {
	t.closeOnce.Do(t.broker.Close)
	return nil
}

// sourceOf extracts the <source> level from <prefix>/<source>/utterance.
func sourceOf(prefix, topic string) string {
	rest := strings.TrimPrefix(topic, prefix+"/")
	return strings.TrimSuffix(rest, "/utterance")
}

// decodeRequest accepts a JSON request object or a bare transcript.
func decodeRequest(payload []byte) (*message.Request, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var req message.Request
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}
	return &message.Request{Utterance: string(payload)}, nil
}
