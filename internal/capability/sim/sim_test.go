package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/echowise/internal/capability"
	"github.com/nadzzz/echowise/internal/config"
)

func phone() config.SimConfig {
	return config.SimConfig{
		HasWifi:       true,
		HasBluetooth:  true,
		HasFlashlight: true,
		Granted:       []string{"camera", "bluetooth_connect"},
		Handlers:      []string{"alarm", "camera", "settings"},
		BatteryLevel:  180,
		BatteryScale:  200,
	}
}

func TestClock(t *testing.T) {
	fixed := time.Date(2025, time.October, 14, 21, 5, 0, 0, time.UTC)
	d := New(phone(), WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	s, out, err := d.Clock(ctx, capability.ClockTime)
	require.NoError(t, err)
	assert.Equal(t, capability.Succeeded(), out)
	assert.Equal(t, "09:05 PM", s)

	s, _, err = d.Clock(ctx, capability.ClockDate)
	require.NoError(t, err)
	assert.Equal(t, "Tuesday, October 14, 2025", s)

	_, out, err = d.Clock(ctx, "week")
	require.NoError(t, err)
	assert.Equal(t, capability.KindFailed, out.Kind)
}

func TestBatteryPercent(t *testing.T) {
	pct, out, err := New(phone()).BatteryPercent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, capability.KindSuccess, out.Kind)
	assert.Equal(t, 90, pct)

	cfg := phone()
	cfg.BatteryLevel = -1
	_, out, err = New(cfg).BatteryPercent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, capability.KindFailed, out.Kind)
}

func TestSetWifi(t *testing.T) {
	d := New(phone())
	ctx := context.Background()

	out, err := d.SetWifi(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, capability.Succeeded(), out)
	assert.True(t, d.State().Wifi)

	out, _ = d.SetWifi(ctx, true)
	assert.Equal(t, capability.Already(), out)

	out, _ = d.SetWifi(ctx, false)
	assert.Equal(t, capability.Succeeded(), out)
	assert.False(t, d.State().Wifi)

	cfg := phone()
	cfg.HasWifi = false
	out, _ = New(cfg).SetWifi(ctx, true)
	assert.Equal(t, capability.Unsupported(), out)
}

func TestSetBluetooth(t *testing.T) {
	ctx := context.Background()

	t.Run("already on", func(t *testing.T) {
		cfg := phone()
		cfg.BluetoothEnabled = true
		out, err := New(cfg).SetBluetooth(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, capability.Already(), out)
	})

	t.Run("no adapter", func(t *testing.T) {
		cfg := phone()
		cfg.HasBluetooth = false
		cfg.Granted = nil
		out, _ := New(cfg).SetBluetooth(ctx, true)
		assert.Equal(t, capability.Unsupported(), out)
	})

	t.Run("permission then grant", func(t *testing.T) {
		cfg := phone()
		cfg.Granted = nil
		d := New(cfg)

		out, _ := d.SetBluetooth(ctx, true)
		assert.Equal(t, capability.NeedsPermission(capability.PermissionBluetoothConnect), out)
		assert.False(t, d.State().Bluetooth)

		d.Grant(capability.PermissionBluetoothConnect)
		out, _ = d.SetBluetooth(ctx, true)
		assert.Equal(t, capability.Succeeded(), out)
		assert.True(t, d.State().Bluetooth)
	})
}

func TestSetFlashlight(t *testing.T) {
	ctx := context.Background()

	t.Run("permission checked before hardware", func(t *testing.T) {
		cfg := phone()
		cfg.Granted = nil
		cfg.HasFlashlight = false
		out, _ := New(cfg).SetFlashlight(ctx, true)
		assert.Equal(t, capability.KindPermissionRequired, out.Kind)
	})

	t.Run("no hardware", func(t *testing.T) {
		cfg := phone()
		cfg.HasFlashlight = false
		out, _ := New(cfg).SetFlashlight(ctx, false)
		assert.Equal(t, capability.Unsupported(), out)
	})

	t.Run("toggle", func(t *testing.T) {
		d := New(phone())
		out, _ := d.SetFlashlight(ctx, true)
		assert.Equal(t, capability.Succeeded(), out)
		assert.True(t, d.State().Flashlight)

		out, _ = d.SetFlashlight(ctx, true)
		assert.Equal(t, capability.Already(), out)
	})
}

func TestOpenHandlers(t *testing.T) {
	ctx := context.Background()

	t.Run("opens in order", func(t *testing.T) {
		d := New(phone())
		_, _ = d.SetAlarm(ctx)
		_, _ = d.OpenCamera(ctx)
		_, _ = d.OpenSettings(ctx)
		assert.Equal(t, []capability.Name{capability.Alarm, capability.Camera, capability.Settings}, d.State().Opened)
	})

	t.Run("missing handler", func(t *testing.T) {
		cfg := phone()
		cfg.Handlers = []string{"settings"}
		out, err := New(cfg).SetAlarm(ctx)
		require.NoError(t, err)
		assert.Equal(t, capability.Failed("no alarm app"), out)
	})

	t.Run("camera permission", func(t *testing.T) {
		cfg := phone()
		cfg.Granted = nil
		d := New(cfg)
		out, _ := d.OpenCamera(ctx)
		assert.Equal(t, capability.NeedsPermission(capability.PermissionCamera), out)
		assert.Empty(t, d.State().Opened)

		d.Grant(capability.PermissionCamera)
		d.Revoke(capability.PermissionCamera)
		out, _ = d.OpenCamera(ctx)
		assert.Equal(t, capability.KindPermissionRequired, out.Kind)
	})
}
