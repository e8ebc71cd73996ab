package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
	"github.com/vladislavdragonenkov/littlelemon/internal/storage/memory"
)

type fixture struct {
	svc      *Service
	customer domain.Caller
	item     domain.MenuItem
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	user, err := memory.NewMembershipRepository(store).CreateUser(ctx, domain.User{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	item, err := memory.NewMenuRepository(store).Create(ctx, domain.MenuItem{
		Title: "Pasta",
		Price: decimal.RequireFromString("9.50"),
	})
	require.NoError(t, err)

	return fixture{
		svc:      NewService(memory.NewCartRepository(store), nil, nil),
		customer: domain.NewCaller(user.ID, nil),
		item:     item,
	}
}

func intPtr(v int) *int { return &v }

func TestService_AddDefaultsAndMerges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	line, err := f.svc.Add(ctx, f.customer, f.item.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)

	line, err = f.svc.Add(ctx, f.customer, f.item.ID, intPtr(2))
	require.NoError(t, err)
	assert.Equal(t, 3, line.Quantity)
	assert.True(t, decimal.RequireFromString("28.50").Equal(line.Price))

	lines, err := f.svc.View(ctx, f.customer)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Pasta", lines[0].Title)

	require.NoError(t, f.svc.Clear(ctx, f.customer))
	require.NoError(t, f.svc.Clear(ctx, f.customer))
	lines, err = f.svc.View(ctx, f.customer)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestService_AddValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, f.customer, f.item.ID, intPtr(0))
	assert.True(t, domain.IsValidation(err))
	_, err = f.svc.Add(ctx, f.customer, f.item.ID, intPtr(-2))
	assert.True(t, domain.IsValidation(err))
	_, err = f.svc.Add(ctx, f.customer, 0, nil)
	assert.True(t, domain.IsValidation(err))
	_, err = f.svc.Add(ctx, f.customer, 999, nil)
	assert.ErrorIs(t, err, domain.ErrMenuItemNotFound)
}

func TestService_CustomerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	manager := domain.NewCaller(f.customer.UserID, domain.NewRoleSet(domain.GroupManager))
	crew := domain.NewCaller(f.customer.UserID, domain.NewRoleSet(domain.GroupDeliveryCrew))

	for _, caller := range []domain.Caller{manager, crew} {
		_, err := f.svc.View(ctx, caller)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		_, err = f.svc.Add(ctx, caller, f.item.ID, nil)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.ErrorIs(t, f.svc.Clear(ctx, caller), domain.ErrForbidden)
	}

	_, err := f.svc.View(ctx, domain.Anonymous())
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
