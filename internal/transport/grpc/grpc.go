// Package grpc implements the gRPC transport for echowise.
//
// The server exposes a single unary method, /echowise.v1.Shell/Dispatch,
// whose request and response are message.Request and message.Response
// encoded with the "json" codec. Clients select it with
// grpc.CallContentSubtype("json"). The standard grpc health service is
// registered alongside it and keeps the default proto codec.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/echowise/internal/dispatch"
	"github.com/nadzzz/echowise/internal/message"
	"github.com/nadzzz/echowise/internal/transport"
)

const (
	// ServiceName is the fully-qualified gRPC service name.
	ServiceName = "echowise.v1.Shell"
	// DispatchMethod is the full method path clients invoke.
	DispatchMethod = "/" + ServiceName + "/Dispatch"
)

// shellServer is the interface the service descriptor dispatches to.
type shellServer interface {
	Dispatch(ctx context.Context, req *message.Request) (*message.Response, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*shellServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Dispatch",
		Handler:    dispatchHandler,
	}},
	Metadata: "echowise/v1/shell",
}

func dispatchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(shellServer).Dispatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DispatchMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(shellServer).Dispatch(ctx, req.(*message.Request))
	}
	return interceptor(ctx, in, info, handler)
}

// server adapts a transport.Handler to shellServer.
type server struct {
	handler transport.Handler
}

func (s *server) Dispatch(ctx context.Context, req *message.Request) (*message.Response, error) {
	resp, err := s.handler(ctx, req)
	switch {
	case errors.Is(err, dispatch.ErrAudioUnsupported):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case err != nil:
		slog.Error("dispatch failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return resp, nil
}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port     int
	listener net.Listener
	server   *grpc.Server
	health   *health.Server
	started  chan struct{}
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port, started: make(chan struct{})}
}

// NewWithListener serves on an existing listener instead of opening a port.
func NewWithListener(lis net.Listener) *Transport {
	return &Transport{listener: lis, started: make(chan struct{})}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	lis := t.listener
	if lis == nil {
		var err error
		lis, err = net.Listen("tcp", fmt.Sprintf(":%d", t.port))
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
	}

	t.server = grpc.NewServer()
	t.server.RegisterService(&serviceDesc, &server{handler: handler})

	t.health = health.NewServer()
	t.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(t.server, t.health)

	slog.Info("grpc transport listening", "addr", lis.Addr().String())
	close(t.started)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		t.server.GracefulStop()
	}()

	if err := t.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Started is closed once the listener is bound and services are registered.
func (t *Transport) Started() <-chan struct{} { return t.started }

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}
