// Package speech defines the source of utterance transcripts.
//
// Clients usually run recognition on the device and send text. When a
// client sends audio instead, a Source transcribes it server-side.
package speech

import (
	"context"
	"errors"
)

// ErrNoResult means the recognizer heard nothing usable. Callers report it
// to the user instead of dispatching an empty utterance.
var ErrNoResult = errors.New("speech: no result")

// Source converts a recording into a single best-guess transcript.
type Source interface {
	// Name returns the backend identifier (e.g., "whisper").
	Name() string

	// Transcribe returns the transcript, or ErrNoResult if nothing was recognized.
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
}
