// Package intent turns a recognized utterance into exactly one classified
// command.
//
// Classification is keyword based: an ordered rule table is evaluated
// top to bottom and the first rule whose keywords occur in the normalized
// utterance wins. The order of the table is part of the contract.
package intent

// Kind identifies a command category.
type Kind string

const (
	QueryTime        Kind = "query_time"
	QueryDate        Kind = "query_date"
	QueryBattery     Kind = "query_battery"
	SetAlarm         Kind = "set_alarm"
	OpenSettings     Kind = "open_settings"
	OpenCamera       Kind = "open_camera"
	ToggleFlashlight Kind = "toggle_flashlight"
	ToggleBluetooth  Kind = "toggle_bluetooth"
	ToggleWifi       Kind = "toggle_wifi"
	Unrecognized     Kind = "unrecognized"
)

// Intent is a classified command plus its extracted parameters.
type Intent struct {
	Kind Kind `json:"kind"`

	// Enable is the polarity of toggle intents: true for "turn on",
	// false for "turn off" or when no polarity token was present.
	// Always false for non-toggle intents.
	Enable bool `json:"enable,omitempty"`
}

// IsToggle reports whether k carries a polarity.
func (k Kind) IsToggle() bool {
	switch k {
	case ToggleFlashlight, ToggleBluetooth, ToggleWifi:
		return true
	}
	return false
}

// Recognized reports whether the intent names a device action.
func (i Intent) Recognized() bool {
	return i.Kind != Unrecognized && i.Kind != ""
}

// Kinds returns every recognizable kind in canonical rule order.
func Kinds() []Kind {
	return []Kind{
		QueryTime,
		SetAlarm,
		QueryDate,
		QueryBattery,
		ToggleFlashlight,
		ToggleWifi,
		ToggleBluetooth,
		OpenSettings,
		OpenCamera,
	}
}

// ParseKind maps a configuration name such as "toggle_wifi" to its Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}
