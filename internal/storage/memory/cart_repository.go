package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

type cartRepositoryInMemory struct {
	s *Store
}

// NewCartRepository возвращает репозиторий корзин поверх общего Store.
func NewCartRepository(s *Store) domain.CartRepository {
	return &cartRepositoryInMemory{s: s}
}

func (r *cartRepositoryInMemory) Lines(_ context.Context, userID int64) ([]domain.CartLine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.cartLinesLocked(userID), nil
}

// AddItem объединяет повторное добавление с существующей строкой под мьютексом Store.
func (r *cartRepositoryInMemory) AddItem(_ context.Context, userID, menuItemID int64, quantity int) (domain.CartLine, error) {
	if err := domain.ValidateCartQuantity(quantity); err != nil {
		return domain.CartLine{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.menu[menuItemID]
	if !ok {
		return domain.CartLine{}, domain.ErrMenuItemNotFound
	}

	lines := r.s.carts[userID]
	if lines == nil {
		lines = make(map[int64]domain.CartLine)
		r.s.carts[userID] = lines
	}

	line, exists := lines[menuItemID]
	if exists {
		merged, err := line.Merge(quantity, item)
		if err != nil {
			return domain.CartLine{}, err
		}
		line = merged
	} else {
		if err := domain.ValidateCartLine(quantity, item.Price); err != nil {
			return domain.CartLine{}, err
		}
		line = domain.NewCartLine(userID, item, quantity)
		r.s.seq.cart++
		line.ID = r.s.seq.cart
	}
	lines[menuItemID] = line
	return line, nil
}

func (r *cartRepositoryInMemory) Clear(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.carts, userID)
	return nil
}

// cartLinesLocked возвращает строки корзины с актуальными названиями; вызывается под мьютексом.
func (s *Store) cartLinesLocked(userID int64) []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(s.carts[userID]))
	for _, line := range s.carts[userID] {
		if item, ok := s.menu[line.MenuItemID]; ok {
			line.Title = item.Title
		}
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
