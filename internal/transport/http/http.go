// Package http implements the HTTP transport for echowise.
//
// This transport exposes a REST endpoint for command dispatch. Clients
// either post a JSON request carrying the recognizer's transcript, or post
// raw audio bytes for server-side transcription.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"
	"golang.org/x/text/language"

	"github.com/nadzzz/echowise/internal/dispatch"
	"github.com/nadzzz/echowise/internal/message"
	"github.com/nadzzz/echowise/internal/transport"
)

const (
	maxAudioBytes = 10 << 20 // 10 MB
	maxJSONBytes  = 1 << 20
)

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port     int
	listener net.Listener
	server   *http.Server
	started  chan struct{}
}

// New creates a new HTTP transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port, started: make(chan struct{})}
}

// NewWithListener serves on an existing listener instead of opening a port.
func NewWithListener(lis net.Listener) *Transport {
	return &Transport{listener: lis, started: make(chan struct{})}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Routes builds the request multiplexer.
func Routes(handler transport.Handler) http.Handler {
	mux := http.NewServeMux()

	// POST /dispatch accepts a transcript or raw audio and returns the rendered response.
	mux.HandleFunc("POST /dispatch", func(w http.ResponseWriter, r *http.Request) {
		handleDispatch(w, r, handler)
	})

	// Swagger UI over SwaggerInfo.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	return mux
}

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           Routes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	lis := t.listener
	if lis == nil {
		var err error
		lis, err = net.Listen("tcp", t.server.Addr)
		if err != nil {
			return fmt.Errorf("http listen: %w", err)
		}
	}
	slog.Info("http transport listening", "addr", lis.Addr().String())
	close(t.started)

	if err := t.server.Serve(lis); err != http.ErrServerClosed {
		return fmt.Errorf("http serve: %w", err)
	}
	return nil
}

// Started is closed once the listener is bound.
func (t *Transport) Started() <-chan struct{} { return t.started }

// handleDispatch processes a POST /dispatch request.
//
// @Summary     Dispatch a voice command
// @Description Accepts a JSON request carrying the recognizer's transcript, or raw audio bytes
// @Description for server-side transcription. The utterance is classified, the matching device
// @Description capability runs, and the localized status message is returned.
// @Tags        dispatch
// @Accept      json
// @Accept      audio/wav
// @Accept      audio/ogg
// @Produce     json
// @Param       request  body      message.Request  true  "Dispatch request (JSON). For raw audio, POST the bytes directly with the appropriate Content-Type."
// @Param       X-Echowise-Source  header  string  false  "Sender identifier (used with raw audio uploads)"
// @Param       X-Echowise-Locale  header  string  false  "Response locale (used with raw audio uploads)"
// @Success     200  {object}  message.Response  "Rendered response"
// @Failure     400  {string}  string  "Invalid request body or headers"
// @Failure     500  {string}  string  "Internal processing error"
// @Router      /dispatch [post]
func handleDispatch(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	var req message.Request

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes)).Decode(&req); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
	case "":
		http.Error(w, "missing content type", http.StatusBadRequest)
		return
	default:
		// Treat body as raw audio; read metadata from headers.
		audio, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes))
		if err != nil {
			http.Error(w, "reading audio: "+err.Error(), http.StatusBadRequest)
			return
		}
		req.Audio = audio
		req.ContentType = mediaType
		req.Source = r.Header.Get("X-Echowise-Source")
		req.Locale = r.Header.Get("X-Echowise-Locale")
	}
	if req.Locale == "" {
		req.Locale = preferredLocale(r)
	}
	req.Timestamp = time.Now().UTC()

	resp, err := handler(r.Context(), &req)
	switch {
	case errors.Is(err, dispatch.ErrAudioUnsupported):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		slog.Error("dispatch failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// preferredLocale returns the highest-weighted Accept-Language tag, or "".
func preferredLocale(r *http.Request) string {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return ""
	}
	return tags[0].String()
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}
