// Package messaging содержит общий формат сообщений, которые outbox отправляет в брокеры.
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

// Envelope — JSON-обёртка события заказа в брокере.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope собирает обёртку для outbox-сообщения.
func NewEnvelope(event domain.OutboxMessage, publishedAt time.Time) Envelope {
	payload := json.RawMessage(event.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Envelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       payload,
		PublishedAt:   publishedAt.UTC(),
	}
}

// Encode сериализует обёртку.
func Encode(event domain.OutboxMessage, publishedAt time.Time) ([]byte, error) {
	data, err := json.Marshal(NewEnvelope(event, publishedAt))
	if err != nil {
		return nil, fmt.Errorf("marshal outbox envelope %s: %w", event.ID, err)
	}
	return data, nil
}

// PartitionKey — ключ упорядочивания: события одного заказа идут в одну партицию.
func PartitionKey(event domain.OutboxMessage) string {
	if event.AggregateID != "" {
		return event.AggregateID
	}
	return event.ID
}
