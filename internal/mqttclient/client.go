package mqttclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MessageHandler receives messages on the subscribed input topics.
type MessageHandler func(topic string, payload []byte)

var ErrNotConnected = errors.New("mqtt client not connected")

// Client is a paho connection that publishes analysis events and,
// optionally, consumes transcripts from input topics.
type Client struct {
	conn      mqtt.Client
	topics    []string
	qos       byte
	connected atomic.Bool
	log       zerolog.Logger

	mu      sync.Mutex
	handler MessageHandler
}

type Options struct {
	BrokerURL   string
	ClientID    string
	InputTopics string // comma-separated; empty = publish only
	Username    string
	Password    string
	QoS         byte
	Log         zerolog.Logger
}

func Connect(opts Options) (*Client, error) {
	c := &Client{
		topics: ParseTopics(opts.InputTopics),
		qos:    opts.QoS,
		log:    opts.Log,
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost).
		SetDefaultPublishHandler(c.onMessage)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	c.conn = mqtt.NewClient(clientOpts)
	token := c.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.BrokerURL, err)
	}

	return c, nil
}

func (c *Client) onConnect(client mqtt.Client) {
	c.connected.Store(true)

	c.mu.Lock()
	subscribed := c.handler != nil
	c.mu.Unlock()

	if !subscribed || len(c.topics) == 0 {
		c.log.Info().Msg("mqtt connected")
		return
	}
	// Resubscribe after a reconnect.
	c.log.Info().Strs("topics", c.topics).Msg("mqtt connected, subscribing")
	if err := c.subscribe(client); err != nil {
		c.log.Error().Err(err).Msg("mqtt subscribe failed")
	}
}

// Subscribe starts delivering messages on the input topics to h. It is a
// no-op when no input topics are configured.
func (c *Client) Subscribe(h MessageHandler) error {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()

	if len(c.topics) == 0 {
		return nil
	}
	if err := c.subscribe(c.conn); err != nil {
		return err
	}
	c.log.Info().Strs("topics", c.topics).Msg("mqtt subscribed to input topics")
	return nil
}

func (c *Client) subscribe(client mqtt.Client) error {
	filters := make(map[string]byte, len(c.topics))
	for _, t := range c.topics {
		filters[t] = c.qos
	}
	token := client.SubscribeMultiple(filters, nil)
	token.Wait()
	return token.Error()
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.connected.Store(false)
	c.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

func (c *Client) onMessage(_ mqtt.Client, msg mqtt.Message) {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()

	if h != nil {
		h(msg.Topic(), msg.Payload())
		return
	}
	c.log.Debug().
		Str("topic", msg.Topic()).
		Int("payload_size", len(msg.Payload())).
		Msg("mqtt message received")
}

// Publish sends payload and waits for the broker acknowledgement or ctx.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.conn.Publish(topic, c.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

func (c *Client) Close() {
	c.log.Info().Msg("disconnecting mqtt client")
	c.conn.Disconnect(1000)
}

// ParseTopics splits a comma-separated topic list, dropping blanks.
func ParseTopics(raw string) []string {
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}
