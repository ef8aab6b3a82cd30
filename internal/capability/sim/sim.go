// Package sim implements capability.Port against an in-memory device.
//
// The simulated device keeps the state the real platform would own:
// radio and torch state, granted permissions, installed handler apps and
// the battery gauge. A missing permission yields PermissionRequired and
// the device is left untouched.
package sim

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nadzzz/echowise/internal/capability"
	"github.com/nadzzz/echowise/internal/config"
)

const (
	defaultTimeLayout = "03:04 PM"
	defaultDateLayout = "Monday, January 02, 2006"
)

// State is a snapshot of the simulated device.
type State struct {
	Wifi       bool                    `json:"wifi"`
	Bluetooth  bool                    `json:"bluetooth"`
	Flashlight bool                    `json:"flashlight"`
	Granted    []capability.Permission `json:"granted"` // sorted
	// Opened lists the screens launched so far, in order.
	Opened []capability.Name `json:"opened"`
}

// Device is a simulated phone. It is safe for concurrent use.
type Device struct {
	mu sync.Mutex

	wifi, bluetooth, torch bool

	hasWifi, hasBluetooth, hasFlashlight bool

	granted  map[capability.Permission]bool
	handlers map[capability.Name]bool
	opened   []capability.Name

	batteryLevel, batteryScale int

	timeLayout, dateLayout string
	now                    func() time.Time
}

// Option customizes a Device.
type Option func(*Device)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Device) { d.now = now }
}

// New creates a simulated device from config.
func New(cfg config.SimConfig, opts ...Option) *Device {
	d := &Device{
		wifi:          cfg.WifiEnabled,
		bluetooth:     cfg.BluetoothEnabled,
		hasWifi:       cfg.HasWifi,
		hasBluetooth:  cfg.HasBluetooth,
		hasFlashlight: cfg.HasFlashlight,
		granted:       make(map[capability.Permission]bool),
		handlers:      make(map[capability.Name]bool),
		batteryLevel:  cfg.BatteryLevel,
		batteryScale:  cfg.BatteryScale,
		timeLayout:    cfg.TimeLayout,
		dateLayout:    cfg.DateLayout,
		now:           time.Now,
	}
	for _, p := range cfg.Granted {
		d.granted[capability.Permission(p)] = true
	}
	for _, h := range cfg.Handlers {
		d.handlers[capability.Name(h)] = true
	}
	if d.timeLayout == "" {
		d.timeLayout = defaultTimeLayout
	}
	if d.dateLayout == "" {
		d.dateLayout = defaultDateLayout
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Grant records that the user granted p.
func (d *Device) Grant(p capability.Permission) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.granted[p] = true
}

// Revoke withdraws p.
func (d *Device) Revoke(p capability.Permission) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.granted, p)
}

// State returns a snapshot of the device.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := State{
		Wifi:       d.wifi,
		Bluetooth:  d.bluetooth,
		Flashlight: d.torch,
		Opened:     append([]capability.Name(nil), d.opened...),
	}
	for p := range d.granted {
		s.Granted = append(s.Granted, p)
	}
	slices.Sort(s.Granted)
	return s
}

// Clock renders the current time or date.
func (d *Device) Clock(_ context.Context, field capability.ClockField) (string, capability.Outcome, error) {
	now := d.now()
	switch field {
	case capability.ClockTime:
		return now.Format(d.timeLayout), capability.Succeeded(), nil
	case capability.ClockDate:
		return now.Format(d.dateLayout), capability.Succeeded(), nil
	default:
		return "", capability.Failedf("unknown clock field %q", field), nil
	}
}

// BatteryPercent derives the charge level from the gauge's level and scale.
func (d *Device) BatteryPercent(context.Context) (int, capability.Outcome, error) {
	d.mu.Lock()
	level, scale := d.batteryLevel, d.batteryScale
	d.mu.Unlock()

	if level < 0 || scale <= 0 || level > scale {
		return 0, capability.Failedf("battery gauge unreadable (level=%d scale=%d)", level, scale), nil
	}
	return level * 100 / scale, capability.Succeeded(), nil
}

func (d *Device) SetAlarm(context.Context) (capability.Outcome, error) {
	return d.open(capability.Alarm, ""), nil
}

func (d *Device) OpenCamera(context.Context) (capability.Outcome, error) {
	return d.open(capability.Camera, capability.PermissionCamera), nil
}

func (d *Device) OpenSettings(context.Context) (capability.Outcome, error) {
	return d.open(capability.Settings, ""), nil
}

// open launches the handler screen for name, as the platform would with an intent.
func (d *Device) open(name capability.Name, perm capability.Permission) capability.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	if perm != "" && !d.granted[perm] {
		slog.Debug("permission missing", "capability", name, "permission", perm)
		return capability.NeedsPermission(perm)
	}
	if !d.handlers[name] {
		return capability.Failedf("no %s app", name)
	}
	d.opened = append(d.opened, name)
	return capability.Succeeded()
}

func (d *Device) SetFlashlight(_ context.Context, enable bool) (capability.Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.granted[capability.PermissionCamera] {
		return capability.NeedsPermission(capability.PermissionCamera), nil
	}
	if !d.hasFlashlight {
		return capability.Unsupported(), nil
	}
	return toggle(&d.torch, enable), nil
}

func (d *Device) SetBluetooth(_ context.Context, enable bool) (capability.Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hasBluetooth {
		return capability.Unsupported(), nil
	}
	if !d.granted[capability.PermissionBluetoothConnect] {
		return capability.NeedsPermission(capability.PermissionBluetoothConnect), nil
	}
	return toggle(&d.bluetooth, enable), nil
}

func (d *Device) SetWifi(_ context.Context, enable bool) (capability.Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hasWifi {
		return capability.Unsupported(), nil
	}
	return toggle(&d.wifi, enable), nil
}

func toggle(state *bool, enable bool) capability.Outcome {
	if *state == enable {
		return capability.Already()
	}
	*state = enable
	return capability.Succeeded()
}
