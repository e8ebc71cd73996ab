// Package cart реализует корзину покупателя.
package cart

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/littlelemon/internal/access"
	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
	"github.com/vladislavdragonenkov/littlelemon/internal/metrics"
)

// DefaultQuantity подставляется, если количество не передано.
const DefaultQuantity = 1

// Service реализует операции корзины. Все операции доступны только покупателю.
type Service struct {
	repo    domain.CartRepository
	metrics *metrics.OrderMetrics
	logger  *log.Entry
}

// NewService конструирует сервис корзины; m может быть nil.
func NewService(repo domain.CartRepository, m *metrics.OrderMetrics, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "cart-service")
	}
	return &Service{repo: repo, metrics: m, logger: logger}
}

// View возвращает строки корзины вызывающего.
func (s *Service) View(ctx context.Context, caller domain.Caller) ([]domain.CartLine, error) {
	if err := access.Check(caller, access.OpCartView, access.Resource{}); err != nil {
		return nil, err
	}
	return s.repo.Lines(ctx, caller.UserID)
}

// Add добавляет позицию в корзину или увеличивает количество существующей строки.
// quantity == nil означает DefaultQuantity.
func (s *Service) Add(ctx context.Context, caller domain.Caller, menuItemID int64, quantity *int) (domain.CartLine, error) {
	if err := access.Check(caller, access.OpCartAdd, access.Resource{}); err != nil {
		return domain.CartLine{}, err
	}

	qty := DefaultQuantity
	if quantity != nil {
		qty = *quantity
	}
	if err := domain.ValidateCartQuantity(qty); err != nil {
		return domain.CartLine{}, err
	}
	if menuItemID <= 0 {
		return domain.CartLine{}, domain.NewValidationError("menuitem_id", "this field is required")
	}

	line, err := s.repo.AddItem(ctx, caller.UserID, menuItemID, qty)
	if err != nil {
		return domain.CartLine{}, err
	}
	s.metrics.RecordCartAdd()
	return line, nil
}

// Clear удаляет все строки корзины; повторный вызов не ошибка.
func (s *Service) Clear(ctx context.Context, caller domain.Caller) error {
	if err := access.Check(caller, access.OpCartClear, access.Resource{}); err != nil {
		return err
	}
	if err := s.repo.Clear(ctx, caller.UserID); err != nil {
		return err
	}
	s.logger.WithField("user_id", caller.UserID).Debug("cart cleared")
	return nil
}
