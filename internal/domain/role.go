package domain

import "sort"

// Group — группа пользователей, из которой выводится роль.
type Group string

const (
	GroupManager      Group = "Manager"
	GroupDeliveryCrew Group = "Delivery crew"
)

// ParseGroupSlug переводит сегмент URL (manager, delivery-crew) в группу.
func ParseGroupSlug(slug string) (Group, bool) {
	switch slug {
	case "manager":
		return GroupManager, true
	case "delivery-crew":
		return GroupDeliveryCrew, true
	default:
		return "", false
	}
}

// Role — эффективная роль вызывающего с учётом приоритета Manager > Delivery crew > Customer.
type Role string

const (
	RoleAnonymous    Role = "anonymous"
	RoleCustomer     Role = "customer"
	RoleDeliveryCrew Role = "delivery_crew"
	RoleManager      Role = "manager"
)

// RoleSet — множество групп пользователя.
type RoleSet map[Group]struct{}

// NewRoleSet собирает множество из перечисленных групп.
func NewRoleSet(groups ...Group) RoleSet {
	set := make(RoleSet, len(groups))
	for _, g := range groups {
		set[g] = struct{}{}
	}
	return set
}

// Has проверяет членство в группе.
func (s RoleSet) Has(g Group) bool {
	_, ok := s[g]
	return ok
}

// Groups возвращает группы в стабильном порядке.
func (s RoleSet) Groups() []Group {
	out := make([]Group, 0, len(s))
	for g := range s {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Caller описывает того, кто выполняет запрос.
type Caller struct {
	UserID        int64
	Groups        RoleSet
	Authenticated bool
}

// Anonymous возвращает неаутентифицированного вызывающего.
func Anonymous() Caller {
	return Caller{}
}

// NewCaller создаёт аутентифицированного вызывающего.
func NewCaller(userID int64, groups RoleSet) Caller {
	if groups == nil {
		groups = RoleSet{}
	}
	return Caller{UserID: userID, Groups: groups, Authenticated: true}
}

func (c Caller) IsManager() bool {
	return c.Authenticated && c.Groups.Has(GroupManager)
}

func (c Caller) IsDeliveryCrew() bool {
	return c.Authenticated && c.Groups.Has(GroupDeliveryCrew)
}

// IsCustomer — аутентифицирован и не состоит ни в одной служебной группе.
func (c Caller) IsCustomer() bool {
	return c.Authenticated && !c.IsManager() && !c.IsDeliveryCrew()
}

// Role возвращает эффективную роль.
func (c Caller) Role() Role {
	switch {
	case !c.Authenticated:
		return RoleAnonymous
	case c.IsManager():
		return RoleManager
	case c.IsDeliveryCrew():
		return RoleDeliveryCrew
	default:
		return RoleCustomer
	}
}
