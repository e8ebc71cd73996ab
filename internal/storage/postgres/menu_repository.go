package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

var menuSortColumns = map[string]string{
	domain.MenuSortTitle:     "title",
	domain.MenuSortPrice:     "price",
	domain.MenuSortInventory: "inventory",
}

type menuRepository struct {
	db *sql.DB
}

// NewMenuRepository создаёт PostgreSQL-реализацию MenuRepository.
func NewMenuRepository(store *Store) domain.MenuRepository {
	return &menuRepository{db: store.DB()}
}

func (r *menuRepository) List(ctx context.Context, filter domain.MenuFilter) (domain.MenuPage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var w whereBuilder
	if filter.Title != "" {
		w.add("title ILIKE %s", containsPattern(filter.Title))
	}
	if filter.Search != "" {
		w.add("title ILIKE %s", containsPattern(filter.Search))
	}
	if filter.MinPrice != nil {
		w.add("price >= %s", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		w.add("price <= %s", *filter.MaxPrice)
	}
	if filter.MinInventory != nil {
		w.add("inventory >= %s", *filter.MinInventory)
	}
	if filter.MaxInventory != nil {
		w.add("inventory <= %s", *filter.MaxInventory)
	}

	var page domain.MenuPage
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM menu_items`+w.sql(), w.args...).Scan(&page.Total); err != nil {
		return domain.MenuPage{}, fmt.Errorf("count menu items: %w", err)
	}

	query := `SELECT id, title, price, inventory FROM menu_items` + w.sql() +
		orderBy(filter.Ordering, menuSortColumns, domain.DefaultMenuOrdering, "id ASC") +
		" LIMIT " + w.next(filter.Page.Limit()) + " OFFSET " + w.next(filter.Page.Offset())

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return domain.MenuPage{}, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	page.Items = make([]domain.MenuItem, 0)
	for rows.Next() {
		var item domain.MenuItem
		if err := rows.Scan(&item.ID, &item.Title, &item.Price, &item.Inventory); err != nil {
			return domain.MenuPage{}, fmt.Errorf("scan menu item: %w", err)
		}
		page.Items = append(page.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.MenuPage{}, fmt.Errorf("iterate menu items: %w", err)
	}

	return page, nil
}

func (r *menuRepository) Get(ctx context.Context, id int64) (domain.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return getMenuItem(ctx, r.db, id, "")
}

func getMenuItem(ctx context.Context, q queryer, id int64, lock string) (domain.MenuItem, error) {
	var item domain.MenuItem
	err := q.QueryRowContext(ctx, `SELECT id, title, price, inventory FROM menu_items WHERE id = $1 `+lock, id).
		Scan(&item.ID, &item.Title, &item.Price, &item.Inventory)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.MenuItem{}, domain.ErrMenuItemNotFound
		}
		return domain.MenuItem{}, fmt.Errorf("get menu item %d: %w", id, err)
	}
	return item, nil
}

func (r *menuRepository) Create(ctx context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO menu_items (title, price, inventory)
		VALUES ($1, $2, $3)
		RETURNING id
	`, item.Title, item.Price, item.Inventory).Scan(&item.ID)
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("insert menu item: %w", err)
	}
	return item, nil
}

func (r *menuRepository) Save(ctx context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE menu_items
		SET title = $2, price = $3, inventory = $4
		WHERE id = $1
	`, item.ID, item.Title, item.Price, item.Inventory)
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("update menu item %d: %w", item.ID, err)
	}
	if err := expectAffected(res, domain.ErrMenuItemNotFound); err != nil {
		return domain.MenuItem{}, err
	}
	return item, nil
}

// Delete удаляет позицию; строки корзин удаляются каскадно, в позициях заказов ссылка обнуляется.
func (r *menuRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete menu item %d: %w", id, err)
	}
	return expectAffected(res, domain.ErrMenuItemNotFound)
}

// expectAffected возвращает notFound, если запрос не затронул ни одной строки.
func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

var _ domain.MenuRepository = (*menuRepository)(nil)
