package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
	"github.com/vladislavdragonenkov/littlelemon/internal/storage/memory"
)

func TestIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue(42)
	require.NoError(t, err)

	userID, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestIssuer_Rejects(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	_, err = NewIssuer("", time.Hour)
	assert.ErrorIs(t, err, ErrSecretRequired)
	_, err = issuer.Issue(0)
	assert.Error(t, err)

	other, err := NewIssuer("other-secret", time.Hour)
	require.NoError(t, err)
	foreign, err := other.Issue(1)
	require.NoError(t, err)
	_, err = issuer.Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := issuer.Issue(1)
	require.NoError(t, err)
	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = issuer.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
	issuer.now = time.Now

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(noneToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Parse(badSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	members := memory.NewMembershipRepository(store)

	user, err := members.CreateUser(ctx, domain.User{Name: "Boss", Email: "boss@example.com"})
	require.NoError(t, err)
	require.NoError(t, members.AddMember(ctx, domain.GroupManager, user.ID))

	issuer, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	resolver := NewResolver(issuer, members)

	caller, err := resolver.Resolve(ctx, "")
	require.NoError(t, err)
	assert.False(t, caller.Authenticated)

	token, err := issuer.Issue(user.ID)
	require.NoError(t, err)
	caller, err = resolver.Resolve(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.True(t, caller.Authenticated)
	assert.Equal(t, user.ID, caller.UserID)
	assert.Equal(t, domain.RoleManager, caller.Role())

	_, err = resolver.Resolve(ctx, "Token "+token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = resolver.Resolve(ctx, "Bearer nope")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	ghost, err := issuer.Issue(999)
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, "bearer "+ghost)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
