package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/nadzzz/echowise/internal/dispatch"
	"github.com/nadzzz/echowise/internal/message"
)

func startServer(t *testing.T, handler func(context.Context, *message.Request) (*message.Response, error)) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	tr := NewWithListener(lis)
	go func() { done <- tr.Listen(ctx, handler) }()

	select {
	case <-tr.Started():
	case err := <-done:
		t.Fatalf("grpc transport exited before starting: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("grpc transport did not start")
	}

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("grpc transport did not stop")
		}
	})
	return conn
}

func TestDispatch(t *testing.T) {
	var got *message.Request
	conn := startServer(t, func(_ context.Context, req *message.Request) (*message.Response, error) {
		got = req
		return &message.Response{
			RequestID:  "r-1",
			Transcript: req.Utterance,
			Intent:     "toggle_wifi",
			Enable:     true,
			Outcome:    "success",
			Key:        "wifi_on",
			Text:       "Wi-Fi turned on",
			Locale:     "en",
		}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp := new(message.Response)
	err := conn.Invoke(ctx, DispatchMethod,
		&message.Request{Utterance: "turn wifi on", Source: "tablet"}, resp,
		grpc.CallContentSubtype(ContentSubtype))
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "turn wifi on", got.Utterance)
	assert.Equal(t, "tablet", got.Source)
	assert.Equal(t, "wifi_on", resp.Key)
	assert.Equal(t, "Wi-Fi turned on", resp.Text)
	assert.True(t, resp.Enable)
}

func TestDispatchErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"audio without speech source", dispatch.ErrAudioUnsupported, codes.InvalidArgument},
		{"contract violation", dispatch.ErrContractViolation, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := startServer(t, func(context.Context, *message.Request) (*message.Response, error) {
				return nil, tt.err
			})

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err := conn.Invoke(ctx, DispatchMethod, &message.Request{Utterance: "x"}, new(message.Response),
				grpc.CallContentSubtype(ContentSubtype))
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestHealth(t *testing.T) {
	conn := startServer(t, func(context.Context, *message.Request) (*message.Response, error) {
		return &message.Response{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
