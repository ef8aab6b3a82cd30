// Package capabilitytest provides a recording capability.Port for tests.
package capabilitytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/nadzzz/echowise/internal/capability"
)

// Call is one recorded port invocation.
type Call struct {
	Capability capability.Name
	Enable     bool
}

// Spy is a capability.Port that records calls and replies with scripted
// outcomes. Unscripted capabilities succeed.
type Spy struct {
	mu    sync.Mutex
	calls []Call

	Outcomes map[capability.Name]capability.Outcome
	Errors   map[capability.Name]error

	Time    string
	Date    string
	Percent int
}

// NewSpy returns a Spy with fixed clock and battery readings.
func NewSpy() *Spy {
	return &Spy{
		Outcomes: make(map[capability.Name]capability.Outcome),
		Errors:   make(map[capability.Name]error),
		Time:     "09:30 AM",
		Date:     "Tuesday, October 14, 2025",
		Percent:  64,
	}
}

// Calls returns the recorded invocations in order.
func (s *Spy) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Spy) record(name capability.Name, enable bool) (capability.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Capability: name, Enable: enable})
	if err := s.Errors[name]; err != nil {
		return capability.Outcome{}, err
	}
	if out, ok := s.Outcomes[name]; ok {
		return out, nil
	}
	return capability.Succeeded(), nil
}

func (s *Spy) Clock(_ context.Context, field capability.ClockField) (string, capability.Outcome, error) {
	out, err := s.record(capability.Clock, false)
	switch field {
	case capability.ClockTime:
		return s.Time, out, err
	case capability.ClockDate:
		return s.Date, out, err
	}
	return "", out, fmt.Errorf("unexpected clock field %q", field)
}

func (s *Spy) BatteryPercent(context.Context) (int, capability.Outcome, error) {
	out, err := s.record(capability.Battery, false)
	return s.Percent, out, err
}

func (s *Spy) SetAlarm(context.Context) (capability.Outcome, error) {
	return s.record(capability.Alarm, false)
}

func (s *Spy) OpenCamera(context.Context) (capability.Outcome, error) {
	return s.record(capability.Camera, false)
}

func (s *Spy) OpenSettings(context.Context) (capability.Outcome, error) {
	return s.record(capability.Settings, false)
}

func (s *Spy) SetFlashlight(_ context.Context, enable bool) (capability.Outcome, error) {
	return s.record(capability.Flashlight, enable)
}

func (s *Spy) SetBluetooth(_ context.Context, enable bool) (capability.Outcome, error) {
	return s.record(capability.Bluetooth, enable)
}

func (s *Spy) SetWifi(_ context.Context, enable bool) (capability.Outcome, error) {
	return s.record(capability.Wifi, enable)
}
