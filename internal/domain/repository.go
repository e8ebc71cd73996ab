package domain

import (
	"context"
	"time"
)

// MenuRepository описывает хранилище позиций меню.
type MenuRepository interface {
	List(ctx context.Context, filter MenuFilter) (MenuPage, error)
	// Get возвращает позицию или ErrMenuItemNotFound.
	Get(ctx context.Context, id int64) (MenuItem, error)
	Create(ctx context.Context, item MenuItem) (MenuItem, error)
	// Save перезаписывает существующую позицию.
	Save(ctx context.Context, item MenuItem) (MenuItem, error)
	// Delete удаляет позицию вместе со строками корзин, которые на неё ссылаются.
	Delete(ctx context.Context, id int64) error
}

// CartRepository описывает хранилище корзин.
type CartRepository interface {
	// Lines возвращает строки корзины пользователя по возрастанию id.
	Lines(ctx context.Context, userID int64) ([]CartLine, error)
	// AddItem атомарно добавляет позицию или увеличивает количество существующей строки.
	AddItem(ctx context.Context, userID, menuItemID int64, quantity int) (CartLine, error)
	Clear(ctx context.Context, userID int64) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// PlaceFromCart в одной транзакции превращает корзину в заказ, очищает её
	// и кладёт событие order.placed в outbox. Пустая корзина даёт ErrEmptyCart.
	PlaceFromCart(ctx context.Context, userID int64, placedAt time.Time) (Order, error)
	// Get возвращает заказ с позициями или ErrOrderNotFound.
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filter OrderFilter) (OrderPage, error)
	// Save применяет обновления к заказу с учётом optimistic locking и кладёт order.updated в outbox.
	Save(ctx context.Context, order Order) (Order, error)
	// Delete удаляет заказ и кладёт order.deleted в outbox.
	Delete(ctx context.Context, id int64) error
}

// MembershipRepository хранит пользователей и их членство в группах.
type MembershipRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	// DeleteUser удаляет пользователя; заказы, где он назначен курьером, теряют назначение.
	DeleteUser(ctx context.Context, id int64) error
	Groups(ctx context.Context, userID int64) (RoleSet, error)
	Members(ctx context.Context, group Group) ([]User, error)
	AddMember(ctx context.Context, group Group, userID int64) error
	RemoveMember(ctx context.Context, group Group, userID int64) error
}
