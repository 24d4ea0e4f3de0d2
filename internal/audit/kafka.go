package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer ships a serialized audit event to the downstream log. The Kafka
// implementation is the production sink; tests use a fake.
type Producer interface {
	Produce(ctx context.Context, key string, payload []byte) error
	Close()
}

// kafkaPayload is the JSON structure published to the audit topic.
type kafkaPayload struct {
	ID          string `json:"id"`
	ActorID     string `json:"actor_id,omitempty"`
	LineID      string `json:"line_id,omitempty"`
	Action      string `json:"action"`
	Entity      string `json:"entity"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	Device      string `json:"device,omitempty"`
	Timestamp   string `json:"timestamp"`
}

func marshalEvent(event Event) ([]byte, error) {
	return json.Marshal(kafkaPayload{
		ID:          event.ID,
		ActorID:     event.ActorID,
		LineID:      event.LineID,
		Action:      string(event.Action),
		Entity:      event.Entity,
		Description: event.Description,
		RequestID:   event.RequestID,
		Device:      event.Device,
		Timestamp:   event.Timestamp.Format(time.RFC3339Nano),
	})
}

// KafkaProducer publishes audit events with franz-go.
type KafkaProducer struct {
	client *kgo.Client
	topic  string
}

// NewKafkaProducer connects to the brokers and ensures the audit topic
// exists. Topic creation is idempotent; an "already exists" response is fine.
func NewKafkaProducer(ctx context.Context, brokers []string, topic string) (*KafkaProducer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", resp.Err)
	}

	return &KafkaProducer{client: client, topic: topic}, nil
}

func (p *KafkaProducer) Produce(ctx context.Context, key string, payload []byte) error {
	record := &kgo.Record{Topic: p.topic, Key: []byte(key), Value: payload}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close() {
	p.client.Close()
}
