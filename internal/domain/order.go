package domain

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus — бинарный статус заказа.
type OrderStatus int

const (
	// OrderStatusPending — заказ создан либо в доставке.
	OrderStatusPending OrderStatus = 0
	// OrderStatusDelivered — заказ доставлен.
	OrderStatusDelivered OrderStatus = 1
)

// Valid проверяет, что статус входит в {0, 1}.
func (s OrderStatus) Valid() bool {
	return s == OrderStatusPending || s == OrderStatusDelivered
}

// ParseOrderStatus принимает 0, 1, "0", "1" (в том виде, как их отдаёт encoding/json);
// числа с нулевой дробной частью вроде 1.0 считаются целыми.
// Любое другое значение даёт ErrInvalidStatus.
func ParseOrderStatus(raw any) (OrderStatus, error) {
	switch v := raw.(type) {
	case OrderStatus:
		if v.Valid() {
			return v, nil
		}
	case int:
		return statusFromInt(int64(v))
	case int64:
		return statusFromInt(v)
	case float64:
		if v == math.Trunc(v) {
			return statusFromInt(int64(v))
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return statusFromInt(n)
		}
		// 1.0 и 1e0 тоже целые.
		if d, err := decimal.NewFromString(v.String()); err == nil {
			switch {
			case d.IsZero():
				return OrderStatusPending, nil
			case d.Equal(decimal.NewFromInt(1)):
				return OrderStatusDelivered, nil
			}
		}
	case string:
		switch v {
		case "0":
			return OrderStatusPending, nil
		case "1":
			return OrderStatusDelivered, nil
		}
	}
	return 0, ErrInvalidStatus
}

func statusFromInt(n int64) (OrderStatus, error) {
	s := OrderStatus(n)
	if int64(s) != n || !s.Valid() {
		return 0, ErrInvalidStatus
	}
	return s, nil
}

// ParseUserRef разбирает ссылку на пользователя: null, целое число или строка с целым числом.
// Возвращает nil для null.
func ParseUserRef(field string, raw any) (*int64, error) {
	var id int64
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case int64:
		id = v
	case int:
		id = int64(v)
	case float64:
		if v != math.Trunc(v) {
			return nil, NewValidationError(field, "incorrect type, expected pk value")
		}
		id = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, NewValidationError(field, "incorrect type, expected pk value")
		}
		id = n
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, NewValidationError(field, "incorrect type, expected pk value")
		}
		id = n
	default:
		return nil, NewValidationError(field, "incorrect type, expected pk value")
	}
	if id <= 0 {
		return nil, NewValidationError(field, "invalid pk, object does not exist")
	}
	return &id, nil
}

// OrderLine — замороженная копия строки корзины в момент оформления.
type OrderLine struct {
	ID         int64
	OrderID    int64
	MenuItemID int64
	Title      string
	Quantity   int
	UnitPrice  decimal.Decimal
	Price      decimal.Decimal
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID             int64
	UserID         int64
	DeliveryCrewID *int64
	Status         OrderStatus
	Total          decimal.Decimal
	Date           time.Time
	Version        int64
	Lines          []OrderLine
}

var (
	errOrderUserRequired  = errors.New("order user is required")
	errOrderLinesRequired = errors.New("order must contain at least one line")
	errOrderTotalNegative = errors.New("order total must be non-negative")
	errLineQtyInvalid     = errors.New("line quantity must be greater than zero")
	errLinePriceInvalid   = errors.New("line unit price must be non-negative")
	errLineTotalMismatch  = errors.New("line price does not match quantity × unit price")
	errOrderTotalMismatch = errors.New("order total does not match lines sum")
)

// NewOrderFromCart строит заказ по строкам корзины: статус 0, цены копируются как есть.
func NewOrderFromCart(userID int64, lines []CartLine, placedAt time.Time) (Order, error) {
	if len(lines) == 0 {
		return Order{}, ErrEmptyCart
	}

	order := Order{
		UserID: userID,
		Status: OrderStatusPending,
		Total:  decimal.Zero,
		Date:   placedAt.UTC(),
		Lines:  make([]OrderLine, 0, len(lines)),
	}
	for _, line := range lines {
		order.Lines = append(order.Lines, OrderLine{
			MenuItemID: line.MenuItemID,
			Title:      line.Title,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Price:      line.Price,
		})
		order.Total = order.Total.Add(line.Price)
	}
	if order.Total.GreaterThan(MaxAmount) {
		return Order{}, NewValidationError("total", "order total must not exceed 99999999.99")
	}
	return order, nil
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID <= 0 {
		errs = append(errs, errOrderUserRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, errOrderLinesRequired)
	}
	if o.Total.IsNegative() {
		errs = append(errs, errOrderTotalNegative)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrInvalidStatus)
	}

	sum := decimal.Zero
	for _, line := range o.Lines {
		if line.Quantity <= 0 {
			errs = append(errs, errLineQtyInvalid)
		}
		if line.UnitPrice.IsNegative() {
			errs = append(errs, errLinePriceInvalid)
		}
		if !LineTotal(line.UnitPrice, line.Quantity).Equal(line.Price) {
			errs = append(errs, errLineTotalMismatch)
		}
		sum = sum.Add(line.Price)
	}
	if !sum.Equal(o.Total) {
		errs = append(errs, errOrderTotalMismatch)
	}

	return errs
}

// OrderUpdate — изменения заказа; nil-поля не применяются.
type OrderUpdate struct {
	// SetDeliveryCrew отличает «не передано» от явного null.
	SetDeliveryCrew bool
	DeliveryCrewID  *int64
	Status          *OrderStatus
}

// Empty сообщает, что обновление ничего не меняет.
func (u OrderUpdate) Empty() bool {
	return !u.SetDeliveryCrew && u.Status == nil
}

// Apply возвращает заказ с применёнными изменениями.
func (u OrderUpdate) Apply(o Order) Order {
	if u.SetDeliveryCrew {
		if u.DeliveryCrewID == nil {
			o.DeliveryCrewID = nil
		} else {
			id := *u.DeliveryCrewID
			o.DeliveryCrewID = &id
		}
	}
	if u.Status != nil {
		o.Status = *u.Status
	}
	return o
}

// Поля сортировки заказов.
const (
	OrderSortDate   = "date"
	OrderSortTotal  = "total"
	OrderSortStatus = "status"
)

// OrderSortFields — допустимые поля сортировки заказов.
var OrderSortFields = []string{OrderSortDate, OrderSortTotal, OrderSortStatus}

// DefaultOrderOrdering — новые заказы первыми.
var DefaultOrderOrdering = []SortField{{Field: OrderSortDate, Desc: true}}

// OrderFilter — параметры выборки заказов.
// Scope-поля выставляет слой доступа, остальные приходят из запроса; всё объединяется по AND.
type OrderFilter struct {
	ScopeUserID         *int64
	ScopeDeliveryCrewID *int64

	Status         *OrderStatus
	UserID         *int64
	DeliveryCrewID *int64
	DateAfter      *time.Time
	DateBefore     *time.Time
	Ordering       []SortField
	Page           Page
}

// Matches проверяет заказ на соответствие фильтру.
func (f OrderFilter) Matches(o Order) bool {
	if f.ScopeUserID != nil && o.UserID != *f.ScopeUserID {
		return false
	}
	if f.ScopeDeliveryCrewID != nil && !sameRef(o.DeliveryCrewID, *f.ScopeDeliveryCrewID) {
		return false
	}
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.UserID != nil && o.UserID != *f.UserID {
		return false
	}
	if f.DeliveryCrewID != nil && !sameRef(o.DeliveryCrewID, *f.DeliveryCrewID) {
		return false
	}
	if f.DateAfter != nil && o.Date.Before(*f.DateAfter) {
		return false
	}
	if f.DateBefore != nil && o.Date.After(*f.DateBefore) {
		return false
	}
	return true
}

func sameRef(ref *int64, id int64) bool {
	return ref != nil && *ref == id
}

// OrderPage — страница заказов вместе с общим количеством.
type OrderPage struct {
	Orders []Order
	Total  int
}
