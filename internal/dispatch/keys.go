package dispatch

import (
	"github.com/nadzzz/echowise/internal/capability"
	"github.com/nadzzz/echowise/internal/intent"
)

// Message keys shared by every intent. Capability-specific keys are built
// from the capability name, e.g. "wifi_already_on" or "camera_unsupported".
const (
	KeyNotRecognized  = "not_recognized"
	KeyActionFailed   = "action_failed"
	KeySpeechNoResult = "speech_no_result"

	KeyTimeCurrent     = "time_current"
	KeyDateCurrent     = "date_current"
	KeyBatteryLevel    = "battery_level"
	KeyAlarmSetting    = "alarm_setting"
	KeySettingsOpening = "settings_opening"
	KeyCameraOpening   = "camera_opening"
)

// Substitution value names.
const (
	ValueTime    = "time"
	ValueDate    = "date"
	ValuePercent = "percent"
)

// capabilityOf maps each recognizable intent to the capability it drives.
var capabilityOf = map[intent.Kind]capability.Name{
	intent.QueryTime:        capability.Clock,
	intent.QueryDate:        capability.Clock,
	intent.QueryBattery:     capability.Battery,
	intent.SetAlarm:         capability.Alarm,
	intent.OpenSettings:     capability.Settings,
	intent.OpenCamera:       capability.Camera,
	intent.ToggleFlashlight: capability.Flashlight,
	intent.ToggleBluetooth:  capability.Bluetooth,
	intent.ToggleWifi:       capability.Wifi,
}

// progressKeys holds the "in progress" key of every non-toggle intent.
var progressKeys = map[intent.Kind]string{
	intent.QueryTime:    KeyTimeCurrent,
	intent.QueryDate:    KeyDateCurrent,
	intent.QueryBattery: KeyBatteryLevel,
	intent.SetAlarm:     KeyAlarmSetting,
	intent.OpenSettings: KeySettingsOpening,
	intent.OpenCamera:   KeyCameraOpening,
}

// keyFor picks the message key for an intent's outcome. Queries and
// open actions have no "already" wording and report it as success.
func keyFor(in intent.Intent, out capability.Outcome) string {
	name := string(capabilityOf[in.Kind])

	switch out.Kind {
	case capability.KindUnsupported:
		return name + "_unsupported"
	case capability.KindPermissionRequired:
		return name + "_permission_required"
	case capability.KindFailed:
		return KeyActionFailed
	}

	if !in.Kind.IsToggle() {
		return progressKeys[in.Kind]
	}
	key := name
	if out.Kind == capability.KindAlreadyInState {
		key += "_already"
	}
	if in.Enable {
		return key + "_on"
	}
	return key + "_off"
}
