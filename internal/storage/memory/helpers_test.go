package memory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
	"github.com/vladislavdragonenkov/littlelemon/internal/storage/memory"
)

type fixture struct {
	store   *memory.Store
	menu    domain.MenuRepository
	cart    domain.CartRepository
	orders  domain.OrderRepository
	members domain.MembershipRepository
}

func newFixture() fixture {
	s := memory.NewStore()
	return fixture{
		store:   s,
		menu:    memory.NewMenuRepository(s),
		cart:    memory.NewCartRepository(s),
		orders:  memory.NewOrderRepository(s),
		members: memory.NewMembershipRepository(s),
	}
}

func (f fixture) createItem(t *testing.T, title, price string) domain.MenuItem {
	t.Helper()
	item, err := f.menu.Create(context.Background(), domain.MenuItem{
		Title:     title,
		Price:     decimal.RequireFromString(price),
		Inventory: 10,
	})
	require.NoError(t, err)
	return item
}

func (f fixture) createUser(t *testing.T, name string) domain.User {
	t.Helper()
	user, err := f.members.CreateUser(context.Background(), domain.User{Name: name, Email: name + "@littlelemon.test"})
	require.NoError(t, err)
	return user
}
