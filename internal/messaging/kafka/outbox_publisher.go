package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
	"github.com/vladislavdragonenkov/littlelemon/internal/messaging"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
	// origin задан только у DLQ-паблишера.
	origin string
}

// NewOutboxPublisher создаёт Kafka-паблишер событий заказа.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{producer: producer, topic: topic}
}

// NewDLQPublisher создаёт паблишер dead letter topic для сообщений из origin.
func NewDLQPublisher(producer *Producer, topic, origin string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicDeadLetterQueue
	}
	if origin == "" {
		origin = TopicOrderEvents
	}
	return &OutboxTopicPublisher{producer: producer, topic: topic, origin: origin}
}

// Topic возвращает topic назначения.
func (p *OutboxTopicPublisher) Topic() string {
	return p.topic
}

func (p *OutboxTopicPublisher) Publish(ctx context.Context, event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	now := time.Now().UTC()
	data, err := messaging.Encode(event, now)
	if err != nil {
		return err
	}

	headers := map[string]string{
		HeaderEventType: event.EventType,
		HeaderOutboxID:  event.ID,
	}
	if p.origin != "" {
		headers[HeaderOriginalTopic] = p.origin
		headers[HeaderFailedAt] = now.Format(time.RFC3339Nano)
	}

	if err := p.producer.Send(ctx, p.topic, messaging.PartitionKey(event), data, headers); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrOutboxPublish, err)
	}
	return nil
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
