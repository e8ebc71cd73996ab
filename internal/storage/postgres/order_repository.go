package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

var orderSortColumns = map[string]string{
	domain.OrderSortDate:   "o.date",
	domain.OrderSortTotal:  "o.total",
	domain.OrderSortStatus: "o.status",
}

const orderColumns = `o.id, o.user_id, o.delivery_crew_id, o.status, o.total, o.date, o.version`

type orderRepository struct {
	store *Store
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

// PlaceFromCart блокирует строки корзины (FOR UPDATE), создаёт заказ с позициями,
// удаляет использованные строки и пишет order.placed в outbox в одной транзакции.
// Конкурентное оформление той же корзины дождётся блокировки и получит ErrEmptyCart.
func (r *orderRepository) PlaceFromCart(ctx context.Context, userID int64, placedAt time.Time) (domain.Order, error) {
	var order domain.Order
	err := r.store.inTx(ctx, "place order", func(ctx context.Context, tx *sql.Tx) error {
		lines, err := cartLines(ctx, tx, userID, "FOR UPDATE OF c")
		if err != nil {
			return err
		}

		order, err = domain.NewOrderFromCart(userID, lines, placedAt)
		if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO orders (user_id, status, total, date, version)
			VALUES ($1, $2, $3, $4, 0)
			RETURNING id
		`, order.UserID, int(order.Status), order.Total, order.Date).Scan(&order.ID)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		consumed := make([]int64, 0, len(lines))
		for i := range order.Lines {
			line := &order.Lines[i]
			line.OrderID = order.ID
			err = tx.QueryRowContext(ctx, `
				INSERT INTO order_items (order_id, menu_item_id, title, quantity, unit_price, price)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
			`, order.ID, line.MenuItemID, line.Title, line.Quantity, line.UnitPrice, line.Price).Scan(&line.ID)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
			consumed = append(consumed, lines[i].ID)
		}

		// Удаляем только заблокированные строки: позиция, добавленная параллельно, остаётся в корзине.
		if _, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ANY($1)`, consumed); err != nil {
			return fmt.Errorf("delete consumed cart lines: %w", err)
		}

		return enqueueOrderEvent(ctx, tx, domain.EventOrderPlaced, order, placedAt)
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *orderRepository) Get(ctx context.Context, id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return getOrder(ctx, r.store.DB(), id, "")
}

func getOrder(ctx context.Context, q queryer, id int64, lock string) (domain.Order, error) {
	order, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1 `+lock, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}

	lines, err := orderLines(ctx, q, []int64{id})
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines[id]
	return order, nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) (domain.OrderPage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	db := r.store.DB()

	var w whereBuilder
	if filter.ScopeUserID != nil {
		w.add("o.user_id = %s", *filter.ScopeUserID)
	}
	if filter.ScopeDeliveryCrewID != nil {
		w.add("o.delivery_crew_id = %s", *filter.ScopeDeliveryCrewID)
	}
	if filter.Status != nil {
		w.add("o.status = %s", int(*filter.Status))
	}
	if filter.UserID != nil {
		w.add("o.user_id = %s", *filter.UserID)
	}
	if filter.DeliveryCrewID != nil {
		w.add("o.delivery_crew_id = %s", *filter.DeliveryCrewID)
	}
	if filter.DateAfter != nil {
		w.add("o.date >= %s", *filter.DateAfter)
	}
	if filter.DateBefore != nil {
		w.add("o.date <= %s", *filter.DateBefore)
	}

	var page domain.OrderPage
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders o`+w.sql(), w.args...).Scan(&page.Total); err != nil {
		return domain.OrderPage{}, fmt.Errorf("count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders o` + w.sql() +
		orderBy(filter.Ordering, orderSortColumns, domain.DefaultOrderOrdering, "o.id ASC") +
		" LIMIT " + w.next(filter.Page.Limit()) + " OFFSET " + w.next(filter.Page.Offset())

	rows, err := db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return domain.OrderPage{}, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	page.Orders = make([]domain.Order, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return domain.OrderPage{}, fmt.Errorf("scan order: %w", err)
		}
		page.Orders = append(page.Orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return domain.OrderPage{}, fmt.Errorf("iterate orders: %w", err)
	}

	if len(ids) == 0 {
		return page, nil
	}
	lines, err := orderLines(ctx, db, ids)
	if err != nil {
		return domain.OrderPage{}, err
	}
	for i := range page.Orders {
		page.Orders[i].Lines = lines[page.Orders[i].ID]
	}
	return page, nil
}

// Save обновляет курьера и статус при совпадении версии; остальные поля заказа неизменяемы.
func (r *orderRepository) Save(ctx context.Context, order domain.Order) (domain.Order, error) {
	var saved domain.Order
	err := r.store.inTx(ctx, "save order", func(ctx context.Context, tx *sql.Tx) error {
		var crew sql.NullInt64
		if order.DeliveryCrewID != nil {
			crew = sql.NullInt64{Int64: *order.DeliveryCrewID, Valid: true}
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET delivery_crew_id = $2, status = $3, version = version + 1
			WHERE id = $1 AND version = $4
		`, order.ID, crew, int(order.Status), order.Version)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrNotDeliveryCrew
			}
			return fmt.Errorf("update order %d: %w", order.ID, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
				return fmt.Errorf("check order %d: %w", order.ID, err)
			}
			if !exists {
				return domain.ErrOrderNotFound
			}
			return domain.ErrOrderVersionConflict
		}

		saved, err = getOrder(ctx, tx, order.ID, "")
		if err != nil {
			return err
		}
		return enqueueOrderEvent(ctx, tx, domain.EventOrderUpdated, saved, time.Now().UTC())
	})
	if err != nil {
		return domain.Order{}, err
	}
	return saved, nil
}

func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	return r.store.inTx(ctx, "delete order", func(ctx context.Context, tx *sql.Tx) error {
		order, err := getOrder(ctx, tx, id, "FOR UPDATE")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete order %d: %w", id, err)
		}
		return enqueueOrderEvent(ctx, tx, domain.EventOrderDeleted, order, time.Now().UTC())
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order  domain.Order
		crew   sql.NullInt64
		status int
	)
	if err := row.Scan(&order.ID, &order.UserID, &crew, &status, &order.Total, &order.Date, &order.Version); err != nil {
		return domain.Order{}, err
	}
	if crew.Valid {
		id := crew.Int64
		order.DeliveryCrewID = &id
	}
	order.Status = domain.OrderStatus(status)
	order.Date = order.Date.UTC()
	return order, nil
}

func orderLines(ctx context.Context, q queryer, orderIDs []int64) (map[int64][]domain.OrderLine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, COALESCE(menu_item_id, 0), title, quantity, unit_price, price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]domain.OrderLine, len(orderIDs))
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.MenuItemID, &l.Title, &l.Quantity, &l.UnitPrice, &l.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		result[l.OrderID] = append(result[l.OrderID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return result, nil
}

func enqueueOrderEvent(ctx context.Context, q queryer, eventType string, order domain.Order, at time.Time) error {
	msg, err := domain.NewOrderOutboxMessage(eventType, order, at)
	if err != nil {
		return err
	}
	_, err = insertOutboxMessage(ctx, q, msg)
	return err
}

var _ domain.OrderRepository = (*orderRepository)(nil)
