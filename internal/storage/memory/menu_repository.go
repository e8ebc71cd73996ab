package memory

import (
	"context"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

type menuRepositoryInMemory struct {
	s *Store
}

// NewMenuRepository возвращает репозиторий меню поверх общего Store.
func NewMenuRepository(s *Store) domain.MenuRepository {
	return &menuRepositoryInMemory{s: s}
}

func (r *menuRepositoryInMemory) List(_ context.Context, filter domain.MenuFilter) (domain.MenuPage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]domain.MenuItem, 0, len(r.s.menu))
	for _, item := range r.s.menu {
		if filter.Matches(item) {
			items = append(items, item)
		}
	}
	sortMenu(items, filter.Ordering)

	from, to := filter.Page.Slice(len(items))
	return domain.MenuPage{Items: items[from:to], Total: len(items)}, nil
}

func (r *menuRepositoryInMemory) Get(_ context.Context, id int64) (domain.MenuItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	item, ok := r.s.menu[id]
	if !ok {
		return domain.MenuItem{}, domain.ErrMenuItemNotFound
	}
	return item, nil
}

func (r *menuRepositoryInMemory) Create(_ context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.seq.menu++
	item.ID = r.s.seq.menu
	r.s.menu[item.ID] = item
	return item, nil
}

func (r *menuRepositoryInMemory) Save(_ context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.menu[item.ID]; !ok {
		return domain.MenuItem{}, domain.ErrMenuItemNotFound
	}
	r.s.menu[item.ID] = item
	return item, nil
}

// Delete удаляет позицию и строки корзин, которые на неё ссылаются.
func (r *menuRepositoryInMemory) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.menu[id]; !ok {
		return domain.ErrMenuItemNotFound
	}
	delete(r.s.menu, id)
	for _, lines := range r.s.carts {
		delete(lines, id)
	}
	return nil
}

var _ domain.MenuRepository = (*menuRepositoryInMemory)(nil)
