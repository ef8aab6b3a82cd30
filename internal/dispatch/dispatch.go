// Package dispatch implements the command dispatch engine.
//
// The engine normalizes an utterance, classifies it, runs exactly one
// capability call for a recognized intent and maps the outcome to a
// message key. Every domain condition comes back as data in a Result;
// only a capability adapter breaking its contract produces an error.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nadzzz/echowise/internal/capability"
	"github.com/nadzzz/echowise/internal/intent"
	"github.com/nadzzz/echowise/internal/metrics"
)

// ErrContractViolation wraps errors caused by a capability adapter that
// returned an error or an invalid outcome instead of a domain outcome.
var ErrContractViolation = errors.New("capability contract violation")

// Result is the outcome of dispatching one utterance. It is built once
// and must be treated as read-only.
type Result struct {
	Intent intent.Intent `json:"intent"`

	// Outcome is nil when no capability ran (unrecognized utterance).
	Outcome *capability.Outcome `json:"outcome,omitempty"`

	// Key selects the response template.
	Key string `json:"key"`

	// Values are substituted into the template (e.g. "time", "percent").
	Values map[string]string `json:"values,omitempty"`
}

// Engine routes classified utterances to a capability port. It holds no
// mutable state; concurrent use is safe when the port is.
type Engine struct {
	matcher *intent.Matcher
	port    capability.Port
	metrics *metrics.Metrics
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMetrics records every dispatch in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine.
func New(matcher *intent.Matcher, port capability.Port, opts ...Option) *Engine {
	e := &Engine{matcher: matcher, port: port}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Dispatch classifies utterance and runs the matching capability.
func (e *Engine) Dispatch(ctx context.Context, utterance string) (Result, error) {
	start := time.Now()
	in := e.matcher.Match(intent.Normalize(utterance))
	logger := slog.With("intent", in.Kind)

	if !in.Recognized() {
		logger.Debug("utterance not recognized", "utterance_length", len(utterance))
		e.metrics.ObserveDispatch(string(intent.Unrecognized), "", time.Since(start))
		return Result{Intent: in, Key: KeyNotRecognized}, nil
	}

	name := capabilityOf[in.Kind]
	out, values, err := e.invoke(ctx, in)
	if err == nil {
		err = validate(out)
	}
	if err != nil {
		e.metrics.ObserveViolation(string(name))
		logger.Error("capability broke its contract", "capability", name, "error", err)
		return Result{}, fmt.Errorf("%w: %s: %w", ErrContractViolation, name, err)
	}

	switch out.Kind {
	case capability.KindFailed:
		logger.Warn("capability failed", "capability", name, "reason", out.Reason)
	case capability.KindPermissionRequired:
		logger.Info("capability needs permission", "capability", name, "permission", out.Permission)
	default:
		logger.Info("capability ran", "capability", name, "outcome", out.Kind, "enable", in.Enable)
	}

	res := Result{Intent: in, Outcome: &out, Key: keyFor(in, out)}
	if out.Kind == capability.KindSuccess || out.Kind == capability.KindAlreadyInState {
		res.Values = values
	}
	e.metrics.ObserveDispatch(string(in.Kind), string(out.Kind), time.Since(start))
	return res, nil
}

// invoke makes the single port call for in.
func (e *Engine) invoke(ctx context.Context, in intent.Intent) (capability.Outcome, map[string]string, error) {
	switch in.Kind {
	case intent.QueryTime:
		s, out, err := e.port.Clock(ctx, capability.ClockTime)
		return out, map[string]string{ValueTime: s}, err
	case intent.QueryDate:
		s, out, err := e.port.Clock(ctx, capability.ClockDate)
		return out, map[string]string{ValueDate: s}, err
	case intent.QueryBattery:
		pct, out, err := e.port.BatteryPercent(ctx)
		if err == nil && out.Kind == capability.KindSuccess && (pct < 0 || pct > 100) {
			err = fmt.Errorf("battery percent %d out of range", pct)
		}
		return out, map[string]string{ValuePercent: strconv.Itoa(pct)}, err
	case intent.SetAlarm:
		out, err := e.port.SetAlarm(ctx)
		return out, nil, err
	case intent.OpenSettings:
		out, err := e.port.OpenSettings(ctx)
		return out, nil, err
	case intent.OpenCamera:
		out, err := e.port.OpenCamera(ctx)
		return out, nil, err
	case intent.ToggleFlashlight:
		out, err := e.port.SetFlashlight(ctx, in.Enable)
		return out, nil, err
	case intent.ToggleBluetooth:
		out, err := e.port.SetBluetooth(ctx, in.Enable)
		return out, nil, err
	case intent.ToggleWifi:
		out, err := e.port.SetWifi(ctx, in.Enable)
		return out, nil, err
	}
	return capability.Outcome{}, nil, fmt.Errorf("no capability for intent %q", in.Kind)
}

func validate(out capability.Outcome) error {
	if !out.Kind.Valid() {
		return fmt.Errorf("invalid outcome kind %q", out.Kind)
	}
	return nil
}
