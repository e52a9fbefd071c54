package sink

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/kafka"
)

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Kafka publishes every match as a JSON Event keyed by query id.
type Kafka struct {
	producer EventPublisher
}

func NewKafka(producer EventPublisher) *Kafka {
	return &Kafka{producer: producer}
}

func (k *Kafka) OnMatch(ctx context.Context, m correlator.Match) error {
	ev := NewEvent(m)
	return k.producer.Publish(ctx, kafka.Event{Key: ev.Key(), Value: ev})
}
