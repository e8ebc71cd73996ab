package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

type membershipRepository struct {
	db *sql.DB
}

// NewMembershipRepository создаёт PostgreSQL-реализацию MembershipRepository.
func NewMembershipRepository(store *Store) domain.MembershipRepository {
	return &membershipRepository{db: store.DB()}
}

func (r *membershipRepository) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	if err := user.Validate(); err != nil {
		return domain.User{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email)
		VALUES ($1, $2)
		RETURNING id
	`, user.Name, user.Email).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrUserEmailTaken
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *membershipRepository) GetUser(ctx context.Context, id int64) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return getUser(ctx, r.db, id)
}

func getUser(ctx context.Context, q queryer, id int64) (domain.User, error) {
	var user domain.User
	err := q.QueryRowContext(ctx, `SELECT id, name, email FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Name, &user.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

// DeleteUser удаляет пользователя; корзина, заказы и членство уходят каскадно.
func (r *membershipRepository) DeleteUser(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return expectAffected(res, domain.ErrUserNotFound)
}

func (r *membershipRepository) Groups(ctx context.Context, userID int64) (domain.RoleSet, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := getUser(ctx, r.db, userID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT group_name FROM user_groups WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}
	defer rows.Close()

	set := domain.RoleSet{}
	for rows.Next() {
		var group string
		if err := rows.Scan(&group); err != nil {
			return nil, fmt.Errorf("scan user group: %w", err)
		}
		set[domain.Group(group)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user groups: %w", err)
	}
	return set, nil
}

func (r *membershipRepository) Members(ctx context.Context, group domain.Group) ([]domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email
		FROM user_groups g
		JOIN users u ON u.id = g.user_id
		WHERE g.group_name = $1
		ORDER BY u.id ASC
	`, string(group))
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group members: %w", err)
	}
	return users, nil
}

// AddMember идемпотентен: повторное добавление не ошибка.
func (r *membershipRepository) AddMember(ctx context.Context, group domain.Group, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_groups (group_name, user_id)
		VALUES ($1, $2)
		ON CONFLICT (group_name, user_id) DO NOTHING
	`, string(group), userID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

func (r *membershipRepository) RemoveMember(ctx context.Context, group domain.Group, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := getUser(ctx, r.db, userID); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_groups WHERE group_name = $1 AND user_id = $2`, string(group), userID); err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	return nil
}

var _ domain.MembershipRepository = (*membershipRepository)(nil)
