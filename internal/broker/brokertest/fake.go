// Package brokertest provides an in-memory broker.Broker for tests.
package brokertest

import (
	"sync"

	"github.com/nadzzz/echowise/internal/broker"
)

// Message is one published message.
type Message struct {
	Topic   string
	Payload []byte
}

type subscription struct {
	filter  string
	handler broker.Handler
}

// Fake delivers published messages synchronously to matching subscribers.
type Fake struct {
	mu        sync.Mutex
	subs      []subscription
	published []Message
	closed    bool

	// PublishErr, when set, fails every Publish.
	PublishErr error
}

func New() *Fake { return &Fake{} }

func (f *Fake) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	if f.PublishErr != nil {
		err := f.PublishErr
		f.mu.Unlock()
		return err
	}
	f.published = append(f.published, Message{Topic: topic, Payload: append([]byte(nil), payload...)})
	var targets []broker.Handler
	for _, s := range f.subs {
		if broker.Match(s.filter, topic) {
			targets = append(targets, s.handler)
		}
	}
	f.mu.Unlock()

	for _, h := range targets {
		h(topic, payload)
	}
	return nil
}

func (f *Fake) Subscribe(filter string, handler broker.Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, subscription{filter: filter, handler: handler})
	return nil
}

func (f *Fake) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Published returns every message published so far.
func (f *Fake) Published() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.published...)
}

// HasSubscriber reports whether any subscription matches topic.
func (f *Fake) HasSubscriber(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if broker.Match(s.filter, topic) {
			return true
		}
	}
	return false
}
