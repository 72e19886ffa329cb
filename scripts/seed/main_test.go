package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/useradmin/internal/auth"
	"github.com/odyssey-erp/useradmin/internal/users"
	"github.com/odyssey-erp/useradmin/internal/users/userstest"
)

func TestSeedUsersIsIdempotent(t *testing.T) {
	store := userstest.New()
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	require.NoError(t, seedUsers(context.Background(), store, hasher))
	require.NoError(t, seedUsers(context.Background(), store, hasher))
	assert.Equal(t, len(demoUsers), store.Len())

	bob, err := store.FindByEmail(context.Background(), "bob@useradmin.local")
	require.NoError(t, err)
	assert.Equal(t, users.StatusBlocked, bob.Status)
	assert.True(t, hasher.Verify("bob12345", bob.PasswordHash))

	alice, err := store.FindByEmail(context.Background(), "alice@useradmin.local")
	require.NoError(t, err)
	assert.Equal(t, users.StatusActive, alice.Status)
}
