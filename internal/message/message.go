// Package message defines the request and response types exchanged with
// echowise over every transport.
package message

import "time"

// Request is one voice command from a client.
type Request struct {
	// ID is a unique identifier for this request (UUID). Assigned on receipt if empty.
	ID string `json:"id,omitempty"`

	// Source identifies the sender (e.g., "phone-alice", "kitchen-tablet").
	Source string `json:"source,omitempty"`

	// Utterance is the best-guess transcript from the client's speech recognizer.
	Utterance string `json:"utterance,omitempty"`

	// Audio is a raw recording to transcribe server-side. Nil for text requests.
	Audio []byte `json:"audio,omitempty"`

	// ContentType is the MIME type of Audio (e.g., "audio/wav").
	ContentType string `json:"content_type,omitempty"`

	// Locale is the BCP 47 tag of the desired response language (e.g., "fr-CA").
	// Empty selects the configured default.
	Locale string `json:"locale,omitempty"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// HasAudio returns true if the request carries a recording.
func (r *Request) HasAudio() bool {
	return len(r.Audio) > 0
}

// Response is the rendered outcome of one request.
type Response struct {
	// RequestID is the original request ID.
	RequestID string `json:"request_id"`

	// Transcript is the text that was classified.
	Transcript string `json:"transcript"`

	// Intent is the classified command kind (e.g., "toggle_wifi", "unrecognized").
	Intent string `json:"intent"`

	// Enable is the extracted polarity for toggle intents.
	Enable bool `json:"enable,omitempty"`

	// Outcome is the capability outcome kind. Empty when no capability ran.
	Outcome string `json:"outcome,omitempty"`

	// Permission names the permission the client should request before
	// the user repeats the command. Set only with a permission_required outcome.
	Permission string `json:"permission,omitempty"`

	// Key is the message key the response text was rendered from.
	Key string `json:"key"`

	// Text is the localized display string.
	Text string `json:"text"`

	// Locale is the locale the text was rendered for.
	Locale string `json:"locale,omitempty"`

	// Error is set if the request could not be processed (e.g., transcription failed).
	Error string `json:"error,omitempty"`
}
