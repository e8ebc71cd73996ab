package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

func TestOrderRepository_PostgresPlaceGetAndList(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	carts := NewCartRepository(store)
	orders := NewOrderRepository(store)
	ctx := context.Background()

	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	pasta := seedMenuItem(t, store, "Pasta", "9.50")
	salad := seedMenuItem(t, store, "Salad", "4.25")

	_, err := carts.AddItem(ctx, alice.ID, pasta.ID, 2)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, alice.ID, salad.ID, 1)
	require.NoError(t, err)

	placedAt := time.Now().UTC().Truncate(time.Microsecond)
	order, err := orders.PlaceFromCart(ctx, alice.ID, placedAt)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.True(t, decimal.RequireFromString("23.25").Equal(order.Total))
	require.Len(t, order.Lines, 2)
	assert.Empty(t, order.ValidateInvariants())

	lines, err := carts.Lines(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	got, err := orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Len(t, got.Lines, 2)
	assert.Nil(t, got.DeliveryCrewID)

	_, err = carts.AddItem(ctx, bob.ID, salad.ID, 4)
	require.NoError(t, err)
	_, err = orders.PlaceFromCart(ctx, bob.ID, placedAt.Add(time.Minute))
	require.NoError(t, err)

	page, err := orders.List(ctx, domain.OrderFilter{Page: domain.Page{Number: 1, PerPage: 10}})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, bob.ID, page.Orders[0].UserID)

	page, err = orders.List(ctx, domain.OrderFilter{
		ScopeUserID: &alice.ID,
		Page:        domain.Page{Number: 1, PerPage: 10},
	})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, order.ID, page.Orders[0].ID)
	assert.Len(t, page.Orders[0].Lines, 2)

	// Удаление позиции меню не ломает историю заказа.
	require.NoError(t, NewMenuRepository(store).Delete(ctx, pasta.ID))
	got, err = orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ValidateInvariants())

	pending, err := NewOutboxRepository(store).PullPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, domain.EventOrderPlaced, pending[0].EventType)
}

func TestOrderRepository_PostgresEmptyCartAndConcurrentPlacement(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	carts := NewCartRepository(store)
	orders := NewOrderRepository(store)
	ctx := context.Background()

	user := seedUser(t, store, "carol")
	item := seedMenuItem(t, store, "Fish", "15.00")

	_, err := orders.PlaceFromCart(ctx, user.ID, time.Now())
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	_, err = carts.AddItem(ctx, user.ID, item.ID, 1)
	require.NoError(t, err)

	const workers = 5
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		placed  int
		empties int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orders.PlaceFromCart(ctx, user.ID, time.Now())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case errors.Is(err, domain.ErrEmptyCart):
				empties++
			default:
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, placed)
	assert.Equal(t, workers-1, empties)
}

func TestOrderRepository_PostgresSaveVersionAndDelete(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	carts := NewCartRepository(store)
	orders := NewOrderRepository(store)
	ctx := context.Background()

	user := seedUser(t, store, "dave")
	crew := seedUser(t, store, "rider")
	item := seedMenuItem(t, store, "Pizza", "11.00")

	_, err := carts.AddItem(ctx, user.ID, item.ID, 1)
	require.NoError(t, err)
	order, err := orders.PlaceFromCart(ctx, user.ID, time.Now())
	require.NoError(t, err)

	stale := order
	order.DeliveryCrewID = &crew.ID
	order.Status = domain.OrderStatusDelivered
	saved, err := orders.Save(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, order.Version+1, saved.Version)
	require.NotNil(t, saved.DeliveryCrewID)
	assert.Equal(t, crew.ID, *saved.DeliveryCrewID)
	assert.Equal(t, domain.OrderStatusDelivered, saved.Status)

	_, err = orders.Save(ctx, stale)
	assert.ErrorIs(t, err, domain.ErrOrderVersionConflict)

	missing := saved
	missing.ID = 999
	_, err = orders.Save(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	scoped, err := orders.List(ctx, domain.OrderFilter{
		ScopeDeliveryCrewID: &crew.ID,
		Page:                domain.Page{Number: 1, PerPage: 10},
	})
	require.NoError(t, err)
	assert.Len(t, scoped.Orders, 1)

	// Удаление курьера снимает назначение.
	require.NoError(t, NewMembershipRepository(store).DeleteUser(ctx, crew.ID))
	got, err := orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeliveryCrewID)

	require.NoError(t, orders.Delete(ctx, order.ID))
	_, err = orders.Get(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.ErrorIs(t, orders.Delete(ctx, order.ID), domain.ErrOrderNotFound)
}
