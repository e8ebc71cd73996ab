// Package membership управляет составом групп Manager и Delivery crew.
package membership

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/littlelemon/internal/access"
	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

// Service реализует операции над группами. Все операции доступны только менеджеру.
type Service struct {
	repo   domain.MembershipRepository
	logger *log.Entry
}

// NewService конструирует сервис членства.
func NewService(repo domain.MembershipRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "membership-service")
	}
	return &Service{repo: repo, logger: logger}
}

// List возвращает участников группы по возрастанию id.
func (s *Service) List(ctx context.Context, caller domain.Caller, group domain.Group) ([]domain.User, error) {
	if err := access.Check(caller, access.OpGroupList, access.Resource{}); err != nil {
		return nil, err
	}
	return s.repo.Members(ctx, group)
}

// Add добавляет пользователя в группу; повторное добавление не ошибка.
func (s *Service) Add(ctx context.Context, caller domain.Caller, group domain.Group, userID int64) (domain.User, error) {
	if err := access.Check(caller, access.OpGroupAdd, access.Resource{}); err != nil {
		return domain.User{}, err
	}
	if userID <= 0 {
		return domain.User{}, domain.NewValidationError("user_id", "this field is required")
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.repo.AddMember(ctx, group, userID); err != nil {
		return domain.User{}, err
	}

	s.logger.WithFields(log.Fields{
		"group":    group,
		"user_id":  userID,
		"actor_id": caller.UserID,
	}).Info("user added to group")
	return user, nil
}

// Remove исключает пользователя из группы; удаление не-участника не ошибка.
func (s *Service) Remove(ctx context.Context, caller domain.Caller, group domain.Group, userID int64) error {
	if err := access.Check(caller, access.OpGroupRemove, access.Resource{}); err != nil {
		return err
	}
	if err := s.repo.RemoveMember(ctx, group, userID); err != nil {
		return err
	}

	s.logger.WithFields(log.Fields{
		"group":    group,
		"user_id":  userID,
		"actor_id": caller.UserID,
	}).Info("user removed from group")
	return nil
}
