package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/quillpress/engine/internal/models"
	appErr "github.com/quillpress/engine/pkg/errors"
)

func newTestRepo(t *testing.T) UserRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return NewUserRepository(db)
}

func seedUser(t *testing.T, repo UserRepository, name, role, status string, createdAt time.Time) *models.User {
	t.Helper()
	u := &models.User{Name: name, PasswordHash: "x", Role: role, Status: status, CreatedAt: createdAt}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestGetByName(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedUser(t, repo, "alice", models.RoleUser, models.StatusActive, time.Now())

	var got models.User
	require.NoError(t, repo.GetByName(ctx, "alice", &got))
	assert.Equal(t, "alice", got.Name)

	err := repo.GetByName(ctx, "bob", &got)
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	// exact match only, no substring semantics
	err = repo.GetByName(ctx, "ali", &got)
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestCreateMapsDuplicateToConflict(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedUser(t, repo, "alice", models.RoleUser, models.StatusActive, time.Now())

	err := repo.Create(ctx, &models.User{Name: "alice", PasswordHash: "y"})
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))
}

func TestListOrderingAndCount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	seedUser(t, repo, "oldest", models.RoleUser, models.StatusActive, base)
	seedUser(t, repo, "middle", models.RoleUser, models.StatusActive, base.Add(time.Minute))
	seedUser(t, repo, "newest", models.RoleAdmin, models.StatusLocked, base.Add(2*time.Minute))

	users, total, err := repo.List(ctx, ListUsersQuery{Offset: 0, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, users, 2)
	assert.Equal(t, "newest", users[0].Name)
	assert.Equal(t, "middle", users[1].Name)

	// total reflects the filtered set, not the page
	users, total, err = repo.List(ctx, ListUsersQuery{Offset: 0, Limit: 10, Status: models.StatusActive})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 2)

	// substring filters AND-combine with status
	users, total, err = repo.List(ctx, ListUsersQuery{Offset: 0, Limit: 10, Name: "est", Status: models.StatusActive})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "oldest", users[0].Name)

	// empty result is not an error
	users, total, err = repo.List(ctx, ListUsersQuery{Offset: 0, Limit: 10, Name: "zzz"})
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.EqualValues(t, 0, total)
}
