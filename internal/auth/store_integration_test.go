package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kodeit-calculator/internal/auth"
	"github.com/noah-isme/kodeit-calculator/internal/platform/database/dbtest"
)

func TestPostgresStore(t *testing.T) {
	store := auth.NewPostgresStore(dbtest.Postgres(t))
	ctx := context.Background()

	user, err := store.Create(ctx, auth.Account{
		User:         auth.User{Email: " Root@Kodeit.test ", Role: auth.RoleAdmin, IsActive: true},
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	require.Equal(t, "root@kodeit.test", user.Email)

	_, err = store.Create(ctx, auth.Account{User: auth.User{Email: "root@kodeit.test", Role: auth.RoleAdmin}, PasswordHash: "x"})
	require.ErrorIs(t, err, auth.ErrEmailTaken)

	acc, err := store.GetByEmail(ctx, "ROOT@kodeit.test")
	require.NoError(t, err)
	require.Equal(t, "hash", acc.PasswordHash)
	require.Equal(t, user.ID, acc.ID)

	require.NoError(t, store.UpdatePassword(ctx, user.ID, "hash2"))
	require.NoError(t, store.Deactivate(ctx, user.ID))
	got, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	users, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)

	_, err = store.GetByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, auth.ErrUserNotFound)
	require.NoError(t, store.Delete(ctx, user.ID))
	require.ErrorIs(t, store.Delete(ctx, user.ID), auth.ErrUserNotFound)
}
