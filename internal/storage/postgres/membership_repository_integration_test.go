package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

func TestMembershipRepository_PostgresUsersAndGroups(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewMembershipRepository(store)
	ctx := context.Background()

	alice := seedUser(t, store, "alice")
	_, err := repo.CreateUser(ctx, domain.User{Name: "Alice 2", Email: "ALICE@littlelemon.test"})
	assert.ErrorIs(t, err, domain.ErrUserEmailTaken)

	_, err = repo.CreateUser(ctx, domain.User{Name: "", Email: "x@littlelemon.test"})
	assert.True(t, domain.IsValidation(err))

	groups, err := repo.Groups(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, groups)

	require.NoError(t, repo.AddMember(ctx, domain.GroupManager, alice.ID))
	require.NoError(t, repo.AddMember(ctx, domain.GroupManager, alice.ID))
	groups, err = repo.Groups(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, groups.Has(domain.GroupManager))

	members, err := repo.Members(ctx, domain.GroupManager)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, alice.Email, members[0].Email)

	assert.ErrorIs(t, repo.AddMember(ctx, domain.GroupDeliveryCrew, 999), domain.ErrUserNotFound)
	assert.ErrorIs(t, repo.RemoveMember(ctx, domain.GroupManager, 999), domain.ErrUserNotFound)

	require.NoError(t, repo.RemoveMember(ctx, domain.GroupManager, alice.ID))
	members, err = repo.Members(ctx, domain.GroupManager)
	require.NoError(t, err)
	assert.Empty(t, members)

	_, err = repo.Groups(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, repo.DeleteUser(ctx, alice.ID))
	_, err = repo.GetUser(ctx, alice.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
