// Package access решает, может ли вызывающий выполнить операцию над ресурсом.
// Решение чистое: оно зависит только от ролей вызывающего и владельцев ресурса.
package access

import "github.com/vladislavdragonenkov/littlelemon/internal/domain"

// Operation — операция, которую проверяет политика.
type Operation string

const (
	OpMenuList    Operation = "menu.list"
	OpMenuGet     Operation = "menu.get"
	OpMenuCreate  Operation = "menu.create"
	OpMenuReplace Operation = "menu.replace"
	OpMenuPatch   Operation = "menu.patch"
	OpMenuDelete  Operation = "menu.delete"

	OpGroupList   Operation = "group.list"
	OpGroupAdd    Operation = "group.add"
	OpGroupRemove Operation = "group.remove"

	OpCartView  Operation = "cart.view"
	OpCartAdd   Operation = "cart.add"
	OpCartClear Operation = "cart.clear"

	OpOrderList    Operation = "order.list"
	OpOrderPlace   Operation = "order.place"
	OpOrderGet     Operation = "order.get"
	OpOrderReplace Operation = "order.replace"
	OpOrderPatch   Operation = "order.patch"
	OpOrderDelete  Operation = "order.delete"
)

// Operations — все операции в стабильном порядке.
var Operations = []Operation{
	OpMenuList, OpMenuGet, OpMenuCreate, OpMenuReplace, OpMenuPatch, OpMenuDelete,
	OpGroupList, OpGroupAdd, OpGroupRemove,
	OpCartView, OpCartAdd, OpCartClear,
	OpOrderList, OpOrderPlace, OpOrderGet, OpOrderReplace, OpOrderPatch, OpOrderDelete,
}

// Decision — результат проверки.
type Decision int

const (
	Allow Decision = iota
	DenyForbidden
	DenyUnauthenticated
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyForbidden:
		return "forbidden"
	case DenyUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Resource описывает владельцев заказа. Для операций не над заказом передаётся нулевое значение.
type Resource struct {
	OwnerID        int64
	DeliveryCrewID *int64
}

// OrderResource строит Resource по заказу.
func OrderResource(o domain.Order) Resource {
	return Resource{OwnerID: o.UserID, DeliveryCrewID: o.DeliveryCrewID}
}

// Decide применяет матрицу прав. Роль определяется с приоритетом Manager > Delivery crew > Customer.
func Decide(caller domain.Caller, op Operation, res Resource) Decision {
	if !caller.Authenticated {
		return DenyUnauthenticated
	}

	role := caller.Role()
	switch op {
	case OpMenuList, OpMenuGet, OpOrderList:
		return Allow
	case OpMenuCreate, OpMenuReplace, OpMenuPatch, OpMenuDelete,
		OpGroupList, OpGroupAdd, OpGroupRemove,
		OpOrderReplace, OpOrderDelete:
		return allowIf(role == domain.RoleManager)
	case OpCartView, OpCartAdd, OpCartClear, OpOrderPlace:
		return allowIf(role == domain.RoleCustomer)
	case OpOrderGet:
		switch role {
		case domain.RoleManager:
			return Allow
		case domain.RoleDeliveryCrew:
			return allowIf(assignedTo(res, caller.UserID))
		default:
			return allowIf(res.OwnerID == caller.UserID)
		}
	case OpOrderPatch:
		switch role {
		case domain.RoleManager:
			return Allow
		case domain.RoleDeliveryCrew:
			return allowIf(assignedTo(res, caller.UserID))
		default:
			return DenyForbidden
		}
	default:
		return DenyForbidden
	}
}

// Allowed возвращает множество операций, разрешённых вызывающему над ресурсом.
func Allowed(caller domain.Caller, res Resource) []Operation {
	out := make([]Operation, 0, len(Operations))
	for _, op := range Operations {
		if Decide(caller, op, res) == Allow {
			out = append(out, op)
		}
	}
	return out
}

// Check переводит решение в доменную ошибку.
func Check(caller domain.Caller, op Operation, res Resource) error {
	switch Decide(caller, op, res) {
	case Allow:
		return nil
	case DenyUnauthenticated:
		return domain.ErrUnauthenticated
	default:
		return domain.ErrForbidden
	}
}

func allowIf(ok bool) Decision {
	if ok {
		return Allow
	}
	return DenyForbidden
}

func assignedTo(res Resource, userID int64) bool {
	return res.DeliveryCrewID != nil && *res.DeliveryCrewID == userID
}
