package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/echowise/internal/capability"
	"github.com/nadzzz/echowise/internal/message"
	"github.com/nadzzz/echowise/internal/speech"
)

// ErrAudioUnsupported is returned when a request carries audio but no
// speech source is configured.
var ErrAudioUnsupported = errors.New("audio input requires a speech source")

// Formatter renders a Result as a display string in a locale.
type Formatter interface {
	Format(result Result, locale string) string
}

// Service composes transcription, dispatch and formatting into the single
// request → response call every transport uses.
type Service struct {
	engine    *Engine
	formatter Formatter
	speech    speech.Source // nil when audio input is disabled
}

// NewService creates a Service. src may be nil.
func NewService(engine *Engine, formatter Formatter, src speech.Source) *Service {
	return &Service{engine: engine, formatter: formatter, speech: src}
}

// Handle processes a single request. It is passed as the transport.Handler
// to each transport. A non-nil error is either ErrAudioUnsupported or a
// wrapped ErrContractViolation.
func (s *Service) Handle(ctx context.Context, req *message.Request) (*message.Response, error) {
	start := time.Now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	logger := slog.With("request_id", req.ID, "source", req.Source)

	resp := &message.Response{RequestID: req.ID, Locale: req.Locale}

	utterance := req.Utterance
	if req.HasAudio() {
		if s.speech == nil {
			return nil, ErrAudioUnsupported
		}
		text, err := s.speech.Transcribe(ctx, req.Audio, req.ContentType)
		if err != nil {
			if !errors.Is(err, speech.ErrNoResult) {
				logger.Error("transcription failed", "backend", s.speech.Name(), "error", err)
				resp.Error = "transcription failed"
			}
			resp.Intent = "none"
			resp.Key = KeySpeechNoResult
			resp.Text = s.formatter.Format(Result{Key: KeySpeechNoResult}, req.Locale)
			return resp, nil
		}
		utterance = text
	}
	resp.Transcript = utterance

	result, err := s.engine.Dispatch(ctx, utterance)
	if err != nil {
		return nil, fmt.Errorf("dispatching request %s: %w", req.ID, err)
	}

	resp.Intent = string(result.Intent.Kind)
	resp.Enable = result.Intent.Enable
	resp.Key = result.Key
	if o := result.Outcome; o != nil {
		resp.Outcome = string(o.Kind)
		if o.Kind == capability.KindPermissionRequired {
			resp.Permission = string(o.Permission)
		}
	}
	resp.Text = s.formatter.Format(result, req.Locale)

	logger.Info("request handled", "intent", resp.Intent, "outcome", resp.Outcome, "duration", time.Since(start))
	return resp, nil
}
