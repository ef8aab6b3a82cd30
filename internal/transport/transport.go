// Package transport defines the interface for pluggable request transports.
//
// Each transport (HTTP, gRPC, MQTT) accepts voice command requests and hands
// them to the same Handler. The dispatch service doesn't care how requests
// arrive; it only works with the Transport contract.
package transport

import (
	"context"

	"github.com/nadzzz/echowise/internal/message"
)

// Handler processes one request and returns the rendered response.
// The dispatch service provides this handler to each transport.
type Handler func(ctx context.Context, req *message.Request) (*message.Response, error)

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http", "mqtt").
	Name() string

	// Listen starts accepting requests and passes them to the handler.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Started is closed once Listen has bound its listener or subscription
	// and requests can arrive. It stays open if Listen fails before that.
	Started() <-chan struct{}

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
