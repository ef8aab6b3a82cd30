package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/echowise/internal/dispatch"
	"github.com/nadzzz/echowise/internal/message"
)

// echoHandler records the request it was given and answers with its utterance.
type echoHandler struct {
	got *message.Request
	err error
}

func (e *echoHandler) handle(_ context.Context, req *message.Request) (*message.Response, error) {
	e.got = req
	if e.err != nil {
		return nil, e.err
	}
	return &message.Response{RequestID: "r1", Transcript: req.Utterance, Key: "not_recognized", Text: "Command not recognized."}, nil
}

func post(t *testing.T, h http.Handler, contentType string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/dispatch", bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDispatch_JSON(t *testing.T) {
	eh := &echoHandler{}
	rec := post(t, Routes(eh.handle), "application/json; charset=utf-8",
		[]byte(`{"utterance":"asdkjhasd","source":"phone-1"}`),
		map[string]string{"Accept-Language": "fr-CA, fr;q=0.9, en;q=0.5"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp message.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "asdkjhasd", resp.Transcript)
	assert.Equal(t, "Command not recognized.", resp.Text)

	require.NotNil(t, eh.got)
	assert.Equal(t, "phone-1", eh.got.Source)
	assert.Equal(t, "fr-CA", eh.got.Locale)
	assert.False(t, eh.got.Timestamp.IsZero())
}

func TestDispatch_ExplicitLocaleWins(t *testing.T) {
	eh := &echoHandler{}
	post(t, Routes(eh.handle), "application/json", []byte(`{"utterance":"x","locale":"es"}`),
		map[string]string{"Accept-Language": "de"})
	assert.Equal(t, "es", eh.got.Locale)
}

func TestDispatch_RawAudio(t *testing.T) {
	eh := &echoHandler{}
	rec := post(t, Routes(eh.handle), "audio/wav", []byte("RIFFdata"), map[string]string{
		"X-Echowise-Source": "tablet",
		"X-Echowise-Locale": "de",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte("RIFFdata"), eh.got.Audio)
	assert.Equal(t, "audio/wav", eh.got.ContentType)
	assert.Equal(t, "tablet", eh.got.Source)
	assert.Equal(t, "de", eh.got.Locale)
}

func TestDispatch_Errors(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		handlerErr  error
		wantStatus  int
	}{
		{"bad json", "application/json", "{", nil, http.StatusBadRequest},
		{"no content type", "", "hello", nil, http.StatusBadRequest},
		{"audio without speech source", "audio/ogg", "OggS", dispatch.ErrAudioUnsupported, http.StatusBadRequest},
		{"contract violation", "application/json", `{"utterance":"wifi on"}`,
			fmt.Errorf("wrapped: %w", dispatch.ErrContractViolation), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eh := &echoHandler{err: tt.handlerErr}
			rec := post(t, Routes(eh.handle), tt.contentType, []byte(tt.body), nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "wrapped")
		})
	}
}

func TestDispatch_MethodNotAllowed(t *testing.T) {
	eh := &echoHandler{}
	req := httptest.NewRequest(http.MethodGet, "/dispatch", nil)
	rec := httptest.NewRecorder()
	Routes(eh.handle).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSwaggerDoc(t *testing.T) {
	h := Routes((&echoHandler{}).handle)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		Info  map[string]string          `json:"info"`
		Paths map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "echowise", doc.Info["title"])
	assert.Contains(t, doc.Paths, "/dispatch")
}

func TestListen(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	tr := NewWithListener(lis)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Listen(ctx, (&echoHandler{}).handle) }()

	select {
	case <-tr.Started():
	case err := <-done:
		t.Fatalf("http transport exited before starting: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("http transport did not start")
	}

	resp, err := http.Post("http://"+lis.Addr().String()+"/dispatch", "application/json",
		bytes.NewReader([]byte(`{"utterance":"hello"}`)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got message.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "hello", got.Transcript)

	cancel()
	require.NoError(t, <-done)
}
