// Package whisper implements speech.Source against any Whisper-compatible
// transcription endpoint (whisper.cpp server, faster-whisper, OpenAI).
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/nadzzz/echowise/internal/config"
	"github.com/nadzzz/echowise/internal/speech"
)

// Transcriber posts recordings to a Whisper-compatible endpoint.
type Transcriber struct {
	endpoint string
	model    string
	language string
	client   *http.Client
}

// New creates a transcriber from config.
func New(cfg config.SpeechConfig) *Transcriber {
	return &Transcriber{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		language: cfg.Language,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return "whisper" }

// Transcribe uploads audio as multipart form data and returns the transcript.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	if len(audio) == 0 {
		return "", speech.ErrNoResult
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio"+extFromContentType(contentType))
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}
	if t.model != "" {
		_ = writer.WriteField("model", t.model)
	}
	if t.language != "" {
		_ = writer.WriteField("language", t.language)
	}
	_ = writer.WriteField("response_format", "json")
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding transcription: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	slog.Debug("transcription complete", "text_length", len(text))
	if text == "" {
		return "", speech.ErrNoResult
	}
	return text, nil
}

func extFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "mp3"), strings.Contains(ct, "mpeg"):
		return ".mp3"
	case strings.Contains(ct, "flac"):
		return ".flac"
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "amr"):
		return ".amr"
	default:
		return ".wav"
	}
}
