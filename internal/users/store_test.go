package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumebuilder/internal/database"
	"resumebuilder/internal/database/testdb"
	"resumebuilder/internal/errcode"
)

func TestCreate_ConflictIsCaseInsensitive(t *testing.T) {
	store := NewStore(testdb.Open(t))
	ctx := context.Background()

	user, err := store.Create(ctx, "Ada", "Ada@Example.com", "hash")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, database.RoleUser, user.Role)

	_, err = store.Create(ctx, "Ada 2", "ADA@example.COM", "hash")
	assert.ErrorIs(t, err, errcode.ErrConflict)
}

func TestFindByEmail(t *testing.T) {
	store := NewStore(testdb.Open(t))
	ctx := context.Background()

	created, err := store.Create(ctx, "Grace", "grace@example.com", "hash")
	require.NoError(t, err)

	found, err := store.FindByEmail(ctx, "  GRACE@example.com ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = store.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, errcode.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	store := NewStore(testdb.Open(t))
	ctx := context.Background()

	a, err := store.Create(ctx, "A", "a@example.com", "hash")
	require.NoError(t, err)
	_, err = store.Create(ctx, "B", "b@example.com", "hash")
	require.NoError(t, err)

	name := "Alice"
	updated, err := store.UpdateProfile(ctx, a.ID, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Name)
	assert.Equal(t, "a@example.com", updated.Email)

	taken := "B@example.com"
	_, err = store.UpdateProfile(ctx, a.ID, nil, &taken)
	assert.ErrorIs(t, err, errcode.ErrConflict)

	own := "A@EXAMPLE.com"
	_, err = store.UpdateProfile(ctx, a.ID, nil, &own)
	assert.NoError(t, err)

	_, err = store.UpdateProfile(ctx, a.ID, nil, nil)
	assert.ErrorIs(t, err, errcode.ErrValidation)

	_, err = store.UpdateProfile(ctx, 999, &name, nil)
	assert.ErrorIs(t, err, errcode.ErrNotFound)
}

func TestSetRole(t *testing.T) {
	store := NewStore(testdb.Open(t))
	ctx := context.Background()

	u, err := store.Create(ctx, "U", "u@example.com", "hash")
	require.NoError(t, err)

	_, err = store.SetRole(ctx, u.ID, "owner")
	assert.ErrorIs(t, err, errcode.ErrValidation)

	promoted, err := store.SetRole(ctx, u.ID, database.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, database.RoleAdmin, promoted.Role)

	_, err = store.SetRole(ctx, 12345, database.RoleAdmin)
	assert.ErrorIs(t, err, errcode.ErrNotFound)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("a@b.co"))
	assert.False(t, ValidEmail(""))
	assert.False(t, ValidEmail("not-an-email"))
	assert.False(t, ValidEmail("Name <a@b.co>"))
}
