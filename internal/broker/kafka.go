package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes envelopes keyed by device ID, so one device stays on one partition.
type KafkaSink struct {
	w kafkaWriter
}

func NewKafkaSink(cfg KafkaConfig) *KafkaSink {
	return newKafkaSink(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	})
}

func newKafkaSink(w kafkaWriter) *KafkaSink {
	return &KafkaSink{w: w}
}

func (s *KafkaSink) Publish(ctx context.Context, env Envelope) error {
	payload, err := env.encode()
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	err = s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.DeviceID),
		Value: payload,
		Time:  env.ReceivedAt,
	})
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.w.Close()
}
