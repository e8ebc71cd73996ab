package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository поверх общего Store.
type orderRepositoryInMemory struct {
	s *Store
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository(s *Store) domain.OrderRepository {
	return &orderRepositoryInMemory{s: s}
}

// PlaceFromCart оформляет заказ из корзины. Корзина, заказ и outbox меняются под одним мьютексом.
func (r *orderRepositoryInMemory) PlaceFromCart(_ context.Context, userID int64, placedAt time.Time) (domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, err := domain.NewOrderFromCart(userID, r.s.cartLinesLocked(userID), placedAt)
	if err != nil {
		return domain.Order{}, err
	}

	r.s.seq.order++
	order.ID = r.s.seq.order
	for i := range order.Lines {
		r.s.seq.line++
		order.Lines[i].ID = r.s.seq.line
		order.Lines[i].OrderID = order.ID
	}

	msg, err := domain.NewOrderOutboxMessage(domain.EventOrderPlaced, order, placedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("build outbox message: %w", err)
	}

	r.s.orders[order.ID] = cloneOrder(order)
	delete(r.s.carts, userID)
	r.s.enqueueLocked(msg)

	return order, nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id int64) (domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	order, ok := r.s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (r *orderRepositoryInMemory) List(_ context.Context, filter domain.OrderFilter) (domain.OrderPage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.s.orders))
	for _, order := range r.s.orders {
		if filter.Matches(order) {
			result = append(result, cloneOrder(order))
		}
	}
	sortOrders(result, filter.Ordering)

	from, to := filter.Page.Slice(len(result))
	return domain.OrderPage{Orders: result[from:to], Total: len(result)}, nil
}

// Save перезаписывает изменяемые поля заказа, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(_ context.Context, order domain.Order) (domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.orders[order.ID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.Order{}, domain.ErrOrderVersionConflict
	}

	// Пользователь, сумма, дата и позиции неизменяемы.
	updated := cloneOrder(current)
	updated.Status = order.Status
	updated.DeliveryCrewID = cloneOrder(order).DeliveryCrewID
	updated.Version++

	msg, err := domain.NewOrderOutboxMessage(domain.EventOrderUpdated, updated, r.s.now())
	if err != nil {
		return domain.Order{}, fmt.Errorf("build outbox message: %w", err)
	}

	r.s.orders[updated.ID] = updated
	r.s.enqueueLocked(msg)
	return cloneOrder(updated), nil
}

func (r *orderRepositoryInMemory) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}

	msg, err := domain.NewOrderOutboxMessage(domain.EventOrderDeleted, order, r.s.now())
	if err != nil {
		return fmt.Errorf("build outbox message: %w", err)
	}

	delete(r.s.orders, id)
	r.s.enqueueLocked(msg)
	return nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
