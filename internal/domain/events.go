package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// AggregateOrder — тип агрегата для событий заказа в outbox.
const AggregateOrder = "order"

// Типы событий заказа, публикуемых через outbox.
const (
	EventOrderPlaced  = "order.placed"
	EventOrderUpdated = "order.updated"
	EventOrderDeleted = "order.deleted"
)

// OrderEventPayload — полезная нагрузка события заказа.
type OrderEventPayload struct {
	OrderID        int64      `json:"order_id"`
	UserID         int64      `json:"user_id"`
	DeliveryCrewID *int64     `json:"delivery_crew,omitempty"`
	Status         int        `json:"status"`
	Total          string     `json:"total"`
	Version        int64      `json:"version"`
	Lines          []lineInfo `json:"lines,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

type lineInfo struct {
	MenuItemID int64  `json:"menuitem_id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	Price      string `json:"price"`
}

// NewOrderOutboxMessage собирает outbox-сообщение для события заказа.
func NewOrderOutboxMessage(eventType string, order Order, occurredAt time.Time) (OutboxMessage, error) {
	payload := OrderEventPayload{
		OrderID:        order.ID,
		UserID:         order.UserID,
		DeliveryCrewID: order.DeliveryCrewID,
		Status:         int(order.Status),
		Total:          order.Total.StringFixed(2),
		Version:        order.Version,
		OccurredAt:     occurredAt.UTC(),
	}
	if eventType == EventOrderPlaced {
		for _, line := range order.Lines {
			payload.Lines = append(payload.Lines, lineInfo{
				MenuItemID: line.MenuItemID,
				Quantity:   line.Quantity,
				UnitPrice:  line.UnitPrice.StringFixed(2),
				Price:      line.Price.StringFixed(2),
			})
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal order event: %w", err)
	}

	return OutboxMessage{
		AggregateType: AggregateOrder,
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     eventType,
		Payload:       raw,
	}, nil
}
