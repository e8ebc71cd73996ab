// Package catalog управляет меню: чтение доступно всем аутентифицированным, изменение только менеджерам.
package catalog

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/littlelemon/internal/access"
	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

// Service реализует операции каталога поверх MenuRepository.
type Service struct {
	repo   domain.MenuRepository
	logger *log.Entry
}

// NewService конструирует сервис каталога.
func NewService(repo domain.MenuRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "catalog-service")
	}
	return &Service{repo: repo, logger: logger}
}

// List возвращает страницу меню.
func (s *Service) List(ctx context.Context, caller domain.Caller, filter domain.MenuFilter) (domain.MenuPage, error) {
	if err := access.Check(caller, access.OpMenuList, access.Resource{}); err != nil {
		return domain.MenuPage{}, err
	}
	if len(filter.Ordering) == 0 {
		filter.Ordering = domain.DefaultMenuOrdering
	}
	if filter.Page.PerPage == 0 {
		filter.Page = domain.Page{Number: 1, PerPage: domain.DefaultPerPage}
	}
	return s.repo.List(ctx, filter)
}

// Get возвращает позицию по id.
func (s *Service) Get(ctx context.Context, caller domain.Caller, id int64) (domain.MenuItem, error) {
	if err := access.Check(caller, access.OpMenuGet, access.Resource{}); err != nil {
		return domain.MenuItem{}, err
	}
	return s.repo.Get(ctx, id)
}

// Create добавляет позицию в меню.
func (s *Service) Create(ctx context.Context, caller domain.Caller, item domain.MenuItem) (domain.MenuItem, error) {
	if err := access.Check(caller, access.OpMenuCreate, access.Resource{}); err != nil {
		return domain.MenuItem{}, err
	}
	if err := item.Validate(); err != nil {
		return domain.MenuItem{}, err
	}

	item.ID = 0
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return domain.MenuItem{}, err
	}
	s.logger.WithFields(log.Fields{"menu_item_id": created.ID, "actor_id": caller.UserID}).Info("menu item created")
	return created, nil
}

// Replace полностью перезаписывает позицию.
func (s *Service) Replace(ctx context.Context, caller domain.Caller, id int64, item domain.MenuItem) (domain.MenuItem, error) {
	if err := access.Check(caller, access.OpMenuReplace, access.Resource{}); err != nil {
		return domain.MenuItem{}, err
	}
	if err := item.Validate(); err != nil {
		return domain.MenuItem{}, err
	}

	item.ID = id
	return s.repo.Save(ctx, item)
}

// Patch применяет только переданные поля.
func (s *Service) Patch(ctx context.Context, caller domain.Caller, id int64, patch domain.MenuItemPatch) (domain.MenuItem, error) {
	if err := access.Check(caller, access.OpMenuPatch, access.Resource{}); err != nil {
		return domain.MenuItem{}, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.MenuItem{}, err
	}
	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return domain.MenuItem{}, err
	}
	return s.repo.Save(ctx, updated)
}

// Delete удаляет позицию.
func (s *Service) Delete(ctx context.Context, caller domain.Caller, id int64) error {
	if err := access.Check(caller, access.OpMenuDelete, access.Resource{}); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithFields(log.Fields{"menu_item_id": id, "actor_id": caller.UserID}).Info("menu item deleted")
	return nil
}
