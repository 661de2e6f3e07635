// Package kafka ships audit events to a Kafka topic so downstream consumers
// can build activity feeds and compliance exports without touching the
// primary database.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"stride/internal/audit"
)

const DefaultTopic = "stride.audit.events"

// Sink appends audit events to Kafka. Writes are synchronous so a returned
// nil means the broker acknowledged the record.
type Sink struct {
	client *kgo.Client
	topic  string
}

type Option func(*Sink)

func WithTopic(topic string) Option {
	return func(s *Sink) {
		s.topic = topic
	}
}

func NewSink(brokers []string, opts ...Option) (*Sink, error) {
	s := &Sink{topic: DefaultTopic}
	for _, opt := range opts {
		opt(s)
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(s.topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka audit sink: %w", err)
	}
	s.client = client
	return s, nil
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.UserID.String()),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (s *Sink) Close() {
	s.client.Close()
}
