package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nadzzz/echowise/internal/transport"
)

type stubTransport struct {
	started chan struct{}
}

func newStub() *stubTransport { return &stubTransport{started: make(chan struct{})} }

func (s *stubTransport) Name() string                                    { return "stub" }
func (s *stubTransport) Listen(context.Context, transport.Handler) error { return nil }
func (s *stubTransport) Started() <-chan struct{}                        { return s.started }
func (s *stubTransport) Close() error                                    { return nil }

func TestWaitStarted(t *testing.T) {
	t.Run("all started", func(t *testing.T) {
		a, b := newStub(), newStub()
		go func() {
			time.Sleep(10 * time.Millisecond)
			close(b.started)
			close(a.started)
		}()
		ok := waitStarted(context.Background(), []transport.Transport{a, b}, make(chan struct{}))
		assert.True(t, ok)
	})

	t.Run("one never starts", func(t *testing.T) {
		a, b := newStub(), newStub()
		close(a.started)
		failed := make(chan struct{})
		go func() {
			time.Sleep(10 * time.Millisecond)
			close(failed)
		}()
		assert.False(t, waitStarted(context.Background(), []transport.Transport{a, b}, failed))
	})

	t.Run("shutdown before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, waitStarted(ctx, []transport.Transport{newStub()}, make(chan struct{})))
	})
}
