package domain

import "time"

// Типы событий таймлайна заказа.
const (
	TimelineOrderPlaced    = "OrderPlaced"
	TimelineStatusChanged  = "StatusChanged"
	TimelineCrewAssigned   = "DeliveryCrewAssigned"
	TimelineCrewUnassigned = "DeliveryCrewUnassigned"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  int64
	Type     string
	Reason   string
	ActorID  int64
	Occurred time.Time
}
