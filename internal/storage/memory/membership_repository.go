package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

type membershipRepositoryInMemory struct {
	s *Store
}

// NewMembershipRepository возвращает репозиторий пользователей и групп поверх общего Store.
func NewMembershipRepository(s *Store) domain.MembershipRepository {
	return &membershipRepositoryInMemory{s: s}
}

func (r *membershipRepositoryInMemory) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	if err := user.Validate(); err != nil {
		return domain.User{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return domain.User{}, domain.ErrUserEmailTaken
		}
	}

	r.s.seq.user++
	user.ID = r.s.seq.user
	r.s.users[user.ID] = user
	return user, nil
}

func (r *membershipRepositoryInMemory) GetUser(_ context.Context, id int64) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// DeleteUser удаляет пользователя, его корзину и заказы; назначения курьером сбрасываются.
func (r *membershipRepositoryInMemory) DeleteUser(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return domain.ErrUserNotFound
	}

	delete(r.s.users, id)
	delete(r.s.carts, id)
	for _, members := range r.s.groups {
		delete(members, id)
	}
	for orderID, order := range r.s.orders {
		if order.UserID == id {
			delete(r.s.orders, orderID)
			continue
		}
		if order.DeliveryCrewID != nil && *order.DeliveryCrewID == id {
			order.DeliveryCrewID = nil
			r.s.orders[orderID] = order
		}
	}
	return nil
}

func (r *membershipRepositoryInMemory) Groups(_ context.Context, userID int64) (domain.RoleSet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.users[userID]; !ok {
		return nil, domain.ErrUserNotFound
	}

	set := domain.RoleSet{}
	for group, members := range r.s.groups {
		if _, ok := members[userID]; ok {
			set[group] = struct{}{}
		}
	}
	return set, nil
}

func (r *membershipRepositoryInMemory) Members(_ context.Context, group domain.Group) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]domain.User, 0, len(r.s.groups[group]))
	for id := range r.s.groups[group] {
		if user, ok := r.s.users[id]; ok {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *membershipRepositoryInMemory) AddMember(_ context.Context, group domain.Group, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	members := r.s.groups[group]
	if members == nil {
		members = make(map[int64]struct{})
		r.s.groups[group] = members
	}
	members[userID] = struct{}{}
	return nil
}

func (r *membershipRepositoryInMemory) RemoveMember(_ context.Context, group domain.Group, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.s.groups[group], userID)
	return nil
}

var _ domain.MembershipRepository = (*membershipRepositoryInMemory)(nil)
