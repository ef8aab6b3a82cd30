package whisper

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/echowise/internal/config"
	"github.com/nadzzz/echowise/internal/speech"
)

// newServer fakes a transcription endpoint and records the form fields it received.
func newServer(t *testing.T, status int, body string) (*httptest.Server, map[string]string) {
	t.Helper()
	fields := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, name := range []string{"model", "language", "response_format"} {
			fields[name] = r.FormValue(name)
		}
		f, hdr, err := r.FormFile("file")
		if assert.NoError(t, err) {
			data, _ := io.ReadAll(f)
			assert.Equal(t, "RIFF....", string(data))
			assert.Equal(t, "audio.wav", hdr.Filename)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, fields
}

func TestTranscribe(t *testing.T) {
	srv, seen := newServer(t, http.StatusOK, `{"text":"  turn on wifi "}`)
	tr := New(config.SpeechConfig{Endpoint: srv.URL, Model: "whisper-1", Language: "en"})

	text, err := tr.Transcribe(context.Background(), []byte("RIFF...."), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, "turn on wifi", text)
	assert.Equal(t, "whisper-1", seen["model"])
	assert.Equal(t, "en", seen["language"])
	assert.Equal(t, "json", seen["response_format"])
}

func TestTranscribe_NoResult(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"text":"   "}`)
	tr := New(config.SpeechConfig{Endpoint: srv.URL})

	_, err := tr.Transcribe(context.Background(), []byte("RIFF...."), "audio/wav")
	assert.ErrorIs(t, err, speech.ErrNoResult)

	_, err = tr.Transcribe(context.Background(), nil, "audio/wav")
	assert.ErrorIs(t, err, speech.ErrNoResult)
}

func TestTranscribe_ServerError(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadGateway, "upstream down")
	tr := New(config.SpeechConfig{Endpoint: srv.URL})

	_, err := tr.Transcribe(context.Background(), []byte("RIFF...."), "audio/wav")
	require.Error(t, err)
	assert.NotErrorIs(t, err, speech.ErrNoResult)
	assert.Contains(t, err.Error(), "502")
}

func TestExtFromContentType(t *testing.T) {
	assert.Equal(t, ".ogg", extFromContentType("audio/ogg; codecs=opus"))
	assert.Equal(t, ".mp3", extFromContentType("audio/mpeg"))
	assert.Equal(t, ".wav", extFromContentType("application/octet-stream"))
}
