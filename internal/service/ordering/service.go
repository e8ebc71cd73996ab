// Package ordering реализует жизненный цикл заказа: оформление из корзины,
// выборку с учётом роли, назначение курьера и смену статуса.
package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/littlelemon/internal/access"
	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
	"github.com/vladislavdragonenkov/littlelemon/internal/metrics"
)

// Service реализует операции над заказами.
type Service struct {
	orders   domain.OrderRepository
	members  domain.MembershipRepository
	timeline domain.TimelineRepository
	metrics  *metrics.OrderMetrics
	logger   *log.Entry
	now      func() time.Time
}

// NewService конструирует сервис с зависимостями. timeline и m могут быть nil.
func NewService(
	orders domain.OrderRepository,
	members domain.MembershipRepository,
	timeline domain.TimelineRepository,
	m *metrics.OrderMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.WithField("component", "ordering-service")
	}
	return &Service{
		orders:   orders,
		members:  members,
		timeline: timeline,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Details — заказ вместе с таймлайном.
type Details struct {
	Order    domain.Order
	Timeline []domain.TimelineEvent
}

// UpdateRequest — сырые поля PUT/PATCH. Has* отличают отсутствующее поле от null.
type UpdateRequest struct {
	Status          any
	HasStatus       bool
	DeliveryCrew    any
	HasDeliveryCrew bool
}

// Place оформляет заказ из корзины вызывающего.
func (s *Service) Place(ctx context.Context, caller domain.Caller) (domain.Order, error) {
	if err := access.Check(caller, access.OpOrderPlace, access.Resource{}); err != nil {
		return domain.Order{}, err
	}

	started := time.Now()
	order, err := s.orders.PlaceFromCart(ctx, caller.UserID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCart) {
			s.metrics.RecordPlacementFailed("empty_cart")
		} else {
			s.metrics.RecordPlacementFailed("error")
		}
		return domain.Order{}, err
	}
	s.metrics.RecordOrderPlaced(time.Since(started))

	s.appendTimeline(ctx, domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     domain.TimelineOrderPlaced,
		Reason:   "total=" + order.Total.StringFixed(2),
		ActorID:  caller.UserID,
		Occurred: order.Date,
	})
	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  caller.UserID,
		"lines":    len(order.Lines),
		"total":    order.Total.StringFixed(2),
	}).Info("order placed")
	return order, nil
}

// List возвращает заказы, видимые вызывающему: менеджеру все, курьеру назначенные, покупателю свои.
func (s *Service) List(ctx context.Context, caller domain.Caller, filter domain.OrderFilter) (domain.OrderPage, error) {
	if err := access.Check(caller, access.OpOrderList, access.Resource{}); err != nil {
		return domain.OrderPage{}, err
	}

	filter.ScopeUserID = nil
	filter.ScopeDeliveryCrewID = nil
	id := caller.UserID
	switch caller.Role() {
	case domain.RoleDeliveryCrew:
		filter.ScopeDeliveryCrewID = &id
	case domain.RoleCustomer:
		filter.ScopeUserID = &id
	}

	if len(filter.Ordering) == 0 {
		filter.Ordering = domain.DefaultOrderOrdering
	}
	if filter.Page.PerPage == 0 {
		filter.Page = domain.Page{Number: 1, PerPage: domain.DefaultPerPage}
	}
	return s.orders.List(ctx, filter)
}

// Get возвращает заказ и его таймлайн. Отсутствие проверяется раньше прав.
func (s *Service) Get(ctx context.Context, caller domain.Caller, id int64) (Details, error) {
	order, err := s.load(ctx, caller, access.OpOrderGet, id)
	if err != nil {
		return Details{}, err
	}
	return Details{Order: order, Timeline: s.listTimeline(ctx, order.ID)}, nil
}

// Update применяет PUT (op = access.OpOrderReplace) или PATCH (op = access.OpOrderPatch).
// Курьер может менять только статус, и статус для него обязателен; delivery_crew от курьера игнорируется.
func (s *Service) Update(ctx context.Context, caller domain.Caller, id int64, req UpdateRequest, op access.Operation) (domain.Order, error) {
	if op != access.OpOrderReplace && op != access.OpOrderPatch {
		return domain.Order{}, fmt.Errorf("unsupported order update operation %q", op)
	}

	order, err := s.load(ctx, caller, op, id)
	if err != nil {
		return domain.Order{}, err
	}

	update, err := s.buildUpdate(ctx, caller, req)
	if err != nil {
		return domain.Order{}, err
	}
	if update.Empty() {
		return order, nil
	}

	saved, err := s.orders.Save(ctx, update.Apply(order))
	if err != nil {
		return domain.Order{}, err
	}

	s.recordChanges(ctx, caller, order, saved)
	return saved, nil
}

// Delete удаляет заказ. Доступно только менеджеру.
func (s *Service) Delete(ctx context.Context, caller domain.Caller, id int64) error {
	if _, err := s.load(ctx, caller, access.OpOrderDelete, id); err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}

	s.metrics.RecordOrderDeleted()
	s.logger.WithFields(log.Fields{"order_id": id, "actor_id": caller.UserID}).Info("order deleted")
	return nil
}

// load проверяет существование, затем права.
func (s *Service) load(ctx context.Context, caller domain.Caller, op access.Operation, id int64) (domain.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if err := access.Check(caller, op, access.OrderResource(order)); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (s *Service) buildUpdate(ctx context.Context, caller domain.Caller, req UpdateRequest) (domain.OrderUpdate, error) {
	var update domain.OrderUpdate
	manager := caller.IsManager()

	if !manager && !req.HasStatus {
		return update, domain.NewValidationError("status", "this field is required")
	}
	if req.HasStatus {
		status, err := domain.ParseOrderStatus(req.Status)
		if err != nil {
			return update, err
		}
		update.Status = &status
	}

	if !manager || !req.HasDeliveryCrew {
		return update, nil
	}

	crewID, err := domain.ParseUserRef("delivery_crew", req.DeliveryCrew)
	if err != nil {
		return update, err
	}
	if crewID != nil {
		groups, err := s.members.Groups(ctx, *crewID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return update, domain.NewValidationError("delivery_crew", "invalid pk, object does not exist")
			}
			return update, err
		}
		if !groups.Has(domain.GroupDeliveryCrew) {
			return update, domain.ErrNotDeliveryCrew
		}
	}
	update.SetDeliveryCrew = true
	update.DeliveryCrewID = crewID
	return update, nil
}

func (s *Service) recordChanges(ctx context.Context, caller domain.Caller, before, after domain.Order) {
	now := s.now()
	fields := log.Fields{"order_id": after.ID, "actor_id": caller.UserID, "version": after.Version}

	if before.Status != after.Status {
		s.metrics.RecordOrderUpdate("status")
		s.appendTimeline(ctx, domain.TimelineEvent{
			OrderID:  after.ID,
			Type:     domain.TimelineStatusChanged,
			Reason:   fmt.Sprintf("status=%d", after.Status),
			ActorID:  caller.UserID,
			Occurred: now,
		})
		fields["status"] = int(after.Status)
	}

	if !sameCrew(before.DeliveryCrewID, after.DeliveryCrewID) {
		s.metrics.RecordOrderUpdate("delivery_crew")
		event := domain.TimelineEvent{
			OrderID:  after.ID,
			Type:     domain.TimelineCrewUnassigned,
			ActorID:  caller.UserID,
			Occurred: now,
		}
		if after.DeliveryCrewID != nil {
			event.Type = domain.TimelineCrewAssigned
			event.Reason = fmt.Sprintf("delivery_crew=%d", *after.DeliveryCrewID)
			fields["delivery_crew"] = *after.DeliveryCrewID
		}
		s.appendTimeline(ctx, event)
	}

	s.logger.WithFields(fields).Info("order updated")
}

func sameCrew(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// appendTimeline не прерывает операцию: ошибка таймлайна только логируется.
func (s *Service) appendTimeline(ctx context.Context, event domain.TimelineEvent) {
	if s.timeline == nil {
		return
	}
	if err := s.timeline.Append(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": event.OrderID,
			"event":    event.Type,
		}).Warn("failed to append timeline event")
		return
	}
	s.metrics.RecordTimelineEvent()
}

func (s *Service) listTimeline(ctx context.Context, orderID int64) []domain.TimelineEvent {
	if s.timeline == nil {
		return nil
	}
	events, err := s.timeline.List(ctx, orderID)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to list timeline events")
		return nil
	}
	return events
}
