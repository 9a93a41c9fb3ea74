package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  deleted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func TestSubscriberLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupUsersTestDB(t))

	seed := CreateSubscriberDTO{
		Email:     " Jane.Doe@Example.com ",
		FirstName: "Jane",
		LastName:  "Doe",
	}.ToModel()
	seed.ID = uuid.New()
	require.NoError(t, repo.db.Create(seed).Error)

	found, err := repo.FindByEmail(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "jane.doe@example.com", found.Email)
	assert.True(t, found.IsActive)

	byID, err := repo.FindByID(ctx, found.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)

	require.NoError(t, repo.Deactivate(ctx, found.ID))
	after, err := repo.FindByID(ctx, found.ID)
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.False(t, after.IsActive)
	assert.NotNil(t, after.DeletedAt)
}

func TestSubscriberFindMissing(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupUsersTestDB(t))

	found, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)

	byEmail, err := repo.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, byEmail)

	_, err = repo.FindByID(ctx, uuid.Nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
