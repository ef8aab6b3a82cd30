// Package remote implements capability.Port by forwarding each call over
// MQTT to an agent running on the device and waiting for its result.
//
// Requests go to <prefix>/<device>/invoke/<request_id>; the agent answers on
// <prefix>/<device>/result/<request_id>. A device that does not answer in
// time, or answers with garbage, yields a Failed outcome.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/echowise/internal/broker"
	"github.com/nadzzz/echowise/internal/capability"
)

// Operation is the verb of an invoke request.
type Operation string

const (
	OpRead   Operation = "read"   // clock, battery
	OpOpen   Operation = "open"   // alarm, camera, settings
	OpToggle Operation = "toggle" // flashlight, bluetooth, wifi
)

// InvokeRequest is published to the device.
type InvokeRequest struct {
	RequestID  string                `json:"request_id"`
	Capability capability.Name       `json:"capability"`
	Op         Operation             `json:"op"`
	Field      capability.ClockField `json:"field,omitempty"`
	Enable     *bool                 `json:"enable,omitempty"`
}

// InvokeResult is the device's answer.
type InvokeResult struct {
	RequestID string             `json:"request_id"`
	Outcome   capability.Outcome `json:"outcome"`
	Text      string             `json:"text,omitempty"`    // rendered clock value
	Percent   int                `json:"percent,omitempty"` // battery level
}

// Port forwards capability calls to one device. It is safe for concurrent use.
type Port struct {
	broker  broker.Broker
	prefix  string
	device  string
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan InvokeResult
}

// New subscribes to the device's result topic and returns a ready Port.
func New(b broker.Broker, prefix, device string, timeout time.Duration) (*Port, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := &Port{
		broker:  b,
		prefix:  strings.TrimSuffix(prefix, "/"),
		device:  device,
		timeout: timeout,
		pending: make(map[string]chan InvokeResult),
	}
	if err := b.Subscribe(p.resultFilter(), p.handleResult); err != nil {
		return nil, fmt.Errorf("subscribing to device results: %w", err)
	}
	return p, nil
}

func (p *Port) invokeTopic(id string) string {
	return fmt.Sprintf("%s/%s/invoke/%s", p.prefix, p.device, id)
}

func (p *Port) resultFilter() string {
	return fmt.Sprintf("%s/%s/result/+", p.prefix, p.device)
}

func (p *Port) handleResult(topic string, payload []byte) {
	var res InvokeResult
	if err := json.Unmarshal(payload, &res); err != nil {
		slog.Warn("invalid device result", "topic", topic, "error", err)
		return
	}
	if res.RequestID == "" {
		res.RequestID = topic[strings.LastIndex(topic, "/")+1:]
	}

	p.mu.Lock()
	ch, ok := p.pending[res.RequestID]
	p.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- res:
	default:
	}
}

// call publishes req and waits for the correlated result. Transport
// problems are expected on a radio link and come back as Failed outcomes.
func (p *Port) call(ctx context.Context, req InvokeRequest) InvokeResult {
	req.RequestID = uuid.NewString()
	logger := slog.With("request_id", req.RequestID, "device", p.device, "capability", req.Capability)

	body, err := json.Marshal(req)
	if err != nil {
		return InvokeResult{Outcome: capability.Failedf("encoding request: %v", err)}
	}

	ch := make(chan InvokeResult, 1)
	p.mu.Lock()
	p.pending[req.RequestID] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, req.RequestID)
		p.mu.Unlock()
	}()

	if err := p.broker.Publish(p.invokeTopic(req.RequestID), body); err != nil {
		logger.Warn("device invoke publish failed", "error", err)
		return InvokeResult{Outcome: capability.Failedf("publish: %v", err)}
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if !res.Outcome.Kind.Valid() {
			return InvokeResult{Outcome: capability.Failedf("device sent invalid outcome %q", res.Outcome.Kind)}
		}
		return res
	case <-timer.C:
		logger.Warn("device did not answer", "timeout", p.timeout)
		return InvokeResult{Outcome: capability.Failed("timeout")}
	case <-ctx.Done():
		return InvokeResult{Outcome: capability.Failedf("cancelled: %v", ctx.Err())}
	}
}

func (p *Port) Clock(ctx context.Context, field capability.ClockField) (string, capability.Outcome, error) {
	res := p.call(ctx, InvokeRequest{Capability: capability.Clock, Op: OpRead, Field: field})
	return res.Text, res.Outcome, nil
}

func (p *Port) BatteryPercent(ctx context.Context) (int, capability.Outcome, error) {
	res := p.call(ctx, InvokeRequest{Capability: capability.Battery, Op: OpRead})
	if res.Outcome.Kind == capability.KindSuccess && (res.Percent < 0 || res.Percent > 100) {
		return 0, capability.Failedf("device reported battery %d%%", res.Percent), nil
	}
	return res.Percent, res.Outcome, nil
}

func (p *Port) SetAlarm(ctx context.Context) (capability.Outcome, error) {
	return p.call(ctx, InvokeRequest{Capability: capability.Alarm, Op: OpOpen}).Outcome, nil
}

func (p *Port) OpenCamera(ctx context.Context) (capability.Outcome, error) {
	return p.call(ctx, InvokeRequest{Capability: capability.Camera, Op: OpOpen}).Outcome, nil
}

func (p *Port) OpenSettings(ctx context.Context) (capability.Outcome, error) {
	return p.call(ctx, InvokeRequest{Capability: capability.Settings, Op: OpOpen}).Outcome, nil
}

func (p *Port) SetFlashlight(ctx context.Context, enable bool) (capability.Outcome, error) {
	return p.toggle(ctx, capability.Flashlight, enable), nil
}

func (p *Port) SetBluetooth(ctx context.Context, enable bool) (capability.Outcome, error) {
	return p.toggle(ctx, capability.Bluetooth, enable), nil
}

func (p *Port) SetWifi(ctx context.Context, enable bool) (capability.Outcome, error) {
	return p.toggle(ctx, capability.Wifi, enable), nil
}

func (p *Port) toggle(ctx context.Context, name capability.Name, enable bool) capability.Outcome {
	return p.call(ctx, InvokeRequest{Capability: name, Op: OpToggle, Enable: &enable}).Outcome
}
