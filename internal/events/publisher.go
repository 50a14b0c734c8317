package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const Topic = "cart-events"

// CartEvent is broadcast after every successful cart mutation so other cartd
// instances can drop their cached copy and re-hydrate from the repository.
type CartEvent struct {
	CartID     string    `json:"cart_id"`
	Action     string    `json:"action"`
	Version    int64     `json:"version"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	CartChanged(ctx context.Context, event CartEvent) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers ...string) Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &kafkaPublisher{writer: w}
}

func (p *kafkaPublisher) CartChanged(ctx context.Context, event CartEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal cart event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.CartID), // cart_id keeps events for one cart ordered
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("cart." + event.Action)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish cart event: %w", err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
