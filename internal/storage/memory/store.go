// Package memory реализует хранилище в памяти процесса для локальной разработки и тестов.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

// Store — общая «база данных» в памяти. Все таблицы защищены одним мьютексом,
// поэтому операции, затрагивающие несколько таблиц (оформление заказа), атомарны.
type Store struct {
	mu sync.RWMutex

	seq struct {
		menu, cart, order, line, user int64
	}

	menu   map[int64]domain.MenuItem
	carts  map[int64]map[int64]domain.CartLine // user -> menu item -> line
	orders map[int64]domain.Order
	users  map[int64]domain.User
	groups map[domain.Group]map[int64]struct{}
	outbox map[string]*outboxRecord

	now func() time.Time
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{
		menu:   make(map[int64]domain.MenuItem),
		carts:  make(map[int64]map[int64]domain.CartLine),
		orders: make(map[int64]domain.Order),
		users:  make(map[int64]domain.User),
		groups: map[domain.Group]map[int64]struct{}{
			domain.GroupManager:      {},
			domain.GroupDeliveryCrew: {},
		},
		outbox: make(map[string]*outboxRecord),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func cloneOrder(o domain.Order) domain.Order {
	if o.DeliveryCrewID != nil {
		id := *o.DeliveryCrewID
		o.DeliveryCrewID = &id
	}
	o.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return o
}

// compareBy сравнивает по списку полей с учётом направления; cmp сравнивает одно поле.
func compareBy(fields []domain.SortField, cmp func(field string) int) int {
	for _, f := range fields {
		c := cmp(f.Field)
		if c == 0 {
			continue
		}
		if f.Desc {
			return -c
		}
		return c
	}
	return 0
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func sortMenu(items []domain.MenuItem, fields []domain.SortField) {
	if len(fields) == 0 {
		fields = domain.DefaultMenuOrdering
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		c := compareBy(fields, func(field string) int {
			switch field {
			case domain.MenuSortPrice:
				return a.Price.Cmp(b.Price)
			case domain.MenuSortInventory:
				return compareInt64(int64(a.Inventory), int64(b.Inventory))
			default:
				return strings.Compare(a.Title, b.Title)
			}
		})
		if c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}

func sortOrders(orders []domain.Order, fields []domain.SortField) {
	if len(fields) == 0 {
		fields = domain.DefaultOrderOrdering
	}
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		c := compareBy(fields, func(field string) int {
			switch field {
			case domain.OrderSortTotal:
				return a.Total.Cmp(b.Total)
			case domain.OrderSortStatus:
				return compareInt64(int64(a.Status), int64(b.Status))
			default:
				return a.Date.Compare(b.Date)
			}
		})
		if c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}
