package broker

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttQuiesceMillis  = 250
)

type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
}

// mqttPublisher is the part of mqtt.Client the sink uses.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSink publishes envelopes at QoS 0, not retained.
type MQTTSink struct {
	client mqttPublisher
	topic  string
}

// NewMQTTSink connects to the broker. The client reconnects on its own after
// the first successful connection.
func NewMQTTSink(cfg MQTTConfig) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return newMQTTSink(client, cfg.Topic), nil
}

func newMQTTSink(c mqttPublisher, topic string) *MQTTSink {
	return &MQTTSink{client: c, topic: topic}
}

func (s *MQTTSink) Publish(ctx context.Context, env Envelope) error {
	payload, err := env.encode()
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	tok := s.client.Publish(s.topic, 0, false, payload)
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("mqtt publish %s: %w", s.topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mqtt publish %s: %w", s.topic, ctx.Err())
	}
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(mqttQuiesceMillis)
	return nil
}
