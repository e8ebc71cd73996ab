package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

type cartRepository struct {
	store *Store
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{store: store}
}

func (r *cartRepository) Lines(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return cartLines(ctx, r.store.DB(), userID, "")
}

// cartLines читает строки корзины с названием позиции; lock добавляется в конец запроса.
func cartLines(ctx context.Context, q queryer, userID int64, lock string) ([]domain.CartLine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.menu_item_id, m.title, c.quantity, c.unit_price, c.price
		FROM cart_items c
		JOIN menu_items m ON m.id = c.menu_item_id
		WHERE c.user_id = $1
		ORDER BY c.id ASC
	`+lock, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.CartLine, 0)
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ID, &l.UserID, &l.MenuItemID, &l.Title, &l.Quantity, &l.UnitPrice, &l.Price); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	return lines, nil
}

// AddItem делает upsert строки: повторное добавление увеличивает количество и обновляет цену.
// Позиция меню читается FOR SHARE, поэтому её нельзя удалить до конца транзакции.
func (r *cartRepository) AddItem(ctx context.Context, userID, menuItemID int64, quantity int) (domain.CartLine, error) {
	if err := domain.ValidateCartQuantity(quantity); err != nil {
		return domain.CartLine{}, err
	}

	var line domain.CartLine
	err := r.store.inTx(ctx, "cart add", func(ctx context.Context, tx *sql.Tx) error {
		item, err := getMenuItem(ctx, tx, menuItemID, "FOR SHARE")
		if err != nil {
			return err
		}

		var current int
		err = tx.QueryRowContext(ctx, `
			SELECT quantity FROM cart_items
			WHERE user_id = $1 AND menu_item_id = $2
			FOR UPDATE
		`, userID, item.ID).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			current = 0
		case err != nil:
			return fmt.Errorf("lock cart line: %w", err)
		}
		if quantity > domain.MaxCartQuantity-current {
			return domain.NewValidationError("quantity", "must not exceed 2147483647")
		}
		if err := domain.ValidateCartLine(current+quantity, item.Price); err != nil {
			return err
		}

		// Условие в DO UPDATE страхует от строки, вставленной параллельно после SELECT.
		line = domain.CartLine{UserID: userID, MenuItemID: item.ID, Title: item.Title}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO cart_items (user_id, menu_item_id, quantity, unit_price, price)
			VALUES ($1, $2, $3, $4, $4 * $3)
			ON CONFLICT (user_id, menu_item_id) DO UPDATE
			SET quantity   = cart_items.quantity + EXCLUDED.quantity,
			    unit_price = EXCLUDED.unit_price,
			    price      = EXCLUDED.unit_price * (cart_items.quantity + EXCLUDED.quantity)
			WHERE cart_items.quantity::BIGINT + EXCLUDED.quantity <= $5
			  AND EXCLUDED.unit_price * (cart_items.quantity::BIGINT + EXCLUDED.quantity) <= $6
			RETURNING id, quantity, unit_price, price
		`, userID, item.ID, quantity, item.Price, domain.MaxCartQuantity, domain.MaxAmount).
			Scan(&line.ID, &line.Quantity, &line.UnitPrice, &line.Price)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewValidationError("quantity", "line total must not exceed 99999999.99")
		}
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("upsert cart line: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.CartLine{}, err
	}
	return line, nil
}

func (r *cartRepository) Clear(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.store.DB().ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
