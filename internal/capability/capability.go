// Package capability defines the port through which the dispatch engine
// queries and drives device features without knowing the platform binding.
//
// Adapters report every expected condition (missing permission, missing
// hardware, nothing to change, external handler absent) as an Outcome.
// A non-nil error from a Port method means the adapter broke its contract.
package capability

import (
	"context"
	"fmt"
)

// Name identifies one controllable device feature.
type Name string

const (
	Clock      Name = "clock"
	Battery    Name = "battery"
	Alarm      Name = "alarm"
	Camera     Name = "camera"
	Settings   Name = "settings"
	Flashlight Name = "flashlight"
	Bluetooth  Name = "bluetooth"
	Wifi       Name = "wifi"
)

// Permission is a runtime permission an adapter may need before acting.
type Permission string

const (
	PermissionCamera           Permission = "camera"
	PermissionBluetoothConnect Permission = "bluetooth_connect"
)

// ClockField selects what Port.Clock renders.
type ClockField string

const (
	ClockTime ClockField = "time"
	ClockDate ClockField = "date"
)

// OutcomeKind classifies the result of one capability call.
type OutcomeKind string

const (
	KindSuccess            OutcomeKind = "success"
	KindAlreadyInState     OutcomeKind = "already_in_state"
	KindUnsupported        OutcomeKind = "unsupported"
	KindPermissionRequired OutcomeKind = "permission_required"
	KindFailed             OutcomeKind = "failed"
)

// Valid reports whether k is one of the defined kinds.
func (k OutcomeKind) Valid() bool {
	switch k {
	case KindSuccess, KindAlreadyInState, KindUnsupported, KindPermissionRequired, KindFailed:
		return true
	}
	return false
}

// Outcome is the result of one capability call.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`

	// Reason explains a Failed outcome. It is meant for logs only.
	Reason string `json:"reason,omitempty"`

	// Permission names what must be granted for a PermissionRequired outcome.
	Permission Permission `json:"permission,omitempty"`
}

func Succeeded() Outcome   { return Outcome{Kind: KindSuccess} }
func Already() Outcome     { return Outcome{Kind: KindAlreadyInState} }
func Unsupported() Outcome { return Outcome{Kind: KindUnsupported} }

// NeedsPermission reports that p must be granted before the action can run.
func NeedsPermission(p Permission) Outcome {
	return Outcome{Kind: KindPermissionRequired, Permission: p}
}

// Failed reports a capability-level failure.
func Failed(reason string) Outcome {
	return Outcome{Kind: KindFailed, Reason: reason}
}

// Failedf is Failed with a formatted reason.
func Failedf(format string, args ...any) Outcome {
	return Failed(fmt.Sprintf(format, args...))
}

func (o Outcome) String() string {
	switch o.Kind {
	case KindFailed:
		return fmt.Sprintf("failed(%s)", o.Reason)
	case KindPermissionRequired:
		return fmt.Sprintf("permission_required(%s)", o.Permission)
	}
	return string(o.Kind)
}

// Port is the device capability interface consumed by the dispatch engine.
//
// Implementations must be safe for concurrent use if the engine is called
// concurrently. Toggle and open methods perform the side effect as part of
// producing their outcome.
type Port interface {
	// Clock renders the current time or date for display.
	Clock(ctx context.Context, field ClockField) (string, Outcome, error)

	// BatteryPercent returns the charge level in the range 0-100.
	BatteryPercent(ctx context.Context) (int, Outcome, error)

	SetAlarm(ctx context.Context) (Outcome, error)
	OpenCamera(ctx context.Context) (Outcome, error)
	OpenSettings(ctx context.Context) (Outcome, error)

	SetFlashlight(ctx context.Context, enable bool) (Outcome, error)
	SetBluetooth(ctx context.Context, enable bool) (Outcome, error)
	SetWifi(ctx context.Context, enable bool) (Outcome, error)
}
