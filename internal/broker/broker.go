// Package broker wraps the MQTT client used by the mqtt transport and the
// remote capability adapter.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Handler receives one message.
type Handler func(topic string, payload []byte)

// Broker is the publish/subscribe surface echowise needs.
type Broker interface {
	Publish(topic string, payload []byte) error
	Subscribe(filter string, handler Handler) error
	Close()
}

// Options configures a broker connection.
type Options struct {
	URL      string
	ClientID string
	Username string
	Password string
}

// Client is a Broker backed by paho.
type Client struct {
	client paho.Client
}

const (
	qos          = 1
	tokenTimeout = 10 * time.Second
)

// Connect dials the broker. The connection retries and reconnects on its own
// until Close is called or ctx is cancelled.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	po := paho.NewClientOptions().
		AddBroker(opts.URL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	if opts.Username != "" {
		po.SetUsername(opts.Username)
		po.SetPassword(opts.Password)
	}
	po.SetConnectionLostHandler(func(_ paho.Client, err error) {
		slog.Error("mqtt connection lost", "broker", opts.URL, "error", err)
	})

	c := paho.NewClient(po)
	token := c.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		c.Disconnect(100)
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.URL, err)
	}
	slog.Info("mqtt connected", "broker", opts.URL, "client_id", opts.ClientID)
	return &Client{client: c}, nil
}

// Publish sends payload with QoS 1.
func (c *Client) Publish(topic string, payload []byte) error {
	return wait(c.client.Publish(topic, qos, false, payload), "publish "+topic)
}

// Subscribe registers handler for messages matching filter.
func (c *Client) Subscribe(filter string, handler Handler) error {
	token := c.client.Subscribe(filter, qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	return wait(token, "subscribe "+filter)
}

// Close disconnects, allowing in-flight work a short grace period.
func (c *Client) Close() {
	c.client.Disconnect(250)
}

func wait(token paho.Token, op string) error {
	if !token.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("mqtt %s: timed out", op)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt %s: %w", op, err)
	}
	return nil
}

// Match reports whether topic matches an MQTT filter with + and # wildcards.
func Match(filter, topic string) bool {
	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")
	for i, f := range fp {
		if f == "#" {
			return true
		}
		if i >= len(tp) {
			return false
		}
		if f != "+" && f != tp[i] {
			return false
		}
	}
	return len(fp) == len(tp)
}
