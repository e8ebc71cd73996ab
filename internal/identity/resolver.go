package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

const bearerPrefix = "bearer "

// Parser проверяет токен и возвращает id пользователя.
type Parser interface {
	Parse(raw string) (int64, error)
}

// Resolver определяет вызывающего: id из токена, группы из MembershipRepository.
type Resolver struct {
	tokens  Parser
	members domain.MembershipRepository
}

// NewResolver конструирует Resolver.
func NewResolver(tokens Parser, members domain.MembershipRepository) *Resolver {
	return &Resolver{tokens: tokens, members: members}
}

// Resolve разбирает значение заголовка Authorization.
// Пустой заголовок даёт анонимного вызывающего; битый токен или неизвестный пользователь дают ErrUnauthenticated.
func (r *Resolver) Resolve(ctx context.Context, authorization string) (domain.Caller, error) {
	authorization = strings.TrimSpace(authorization)
	if authorization == "" {
		return domain.Anonymous(), nil
	}
	if len(authorization) <= len(bearerPrefix) || !strings.EqualFold(authorization[:len(bearerPrefix)], bearerPrefix) {
		return domain.Caller{}, fmt.Errorf("%w: unsupported authorization scheme", domain.ErrUnauthenticated)
	}

	userID, err := r.tokens.Parse(strings.TrimSpace(authorization[len(bearerPrefix):]))
	if err != nil {
		return domain.Caller{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	groups, err := r.members.Groups(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Caller{}, fmt.Errorf("%w: user %d no longer exists", domain.ErrUnauthenticated, userID)
		}
		return domain.Caller{}, fmt.Errorf("resolve caller groups: %w", err)
	}
	return domain.NewCaller(userID, groups), nil
}
