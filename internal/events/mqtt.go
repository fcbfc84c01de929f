package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type mqttConn interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// MQTTPublisher publishes events under a topic prefix. Analyses go to
// <prefix>/<quality level>, failures to <prefix>/failed.
type MQTTPublisher struct {
	conn   mqttConn
	prefix string
}

// NewMQTTPublisher publishes over an already connected client. The client
// is owned by the caller and is not closed by Close.
func NewMQTTPublisher(conn mqttConn, prefix string) *MQTTPublisher {
	return &MQTTPublisher{conn: conn, prefix: strings.TrimRight(prefix, "/")}
}

func (p *MQTTPublisher) Name() string { return "mqtt" }

// Topic returns the topic an event is published to.
func (p *MQTTPublisher) Topic(e Event) string {
	switch {
	case e.Type == TypeTranscriptionFailed:
		return p.prefix + "/failed"
	case e.QualityLevel != "":
		return p.prefix + "/" + e.QualityLevel
	default:
		return p.prefix + "/" + e.Type
	}
}

func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.conn.Publish(ctx, p.Topic(e), payload)
}

func (p *MQTTPublisher) Close() error { return nil }
