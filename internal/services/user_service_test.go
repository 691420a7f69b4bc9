package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/taskhive/taskhive/internal/cache"
	"github.com/taskhive/taskhive/internal/database/testutil"
	"github.com/taskhive/taskhive/internal/models"
	"github.com/taskhive/taskhive/pkg/crypto"
	apperrors "github.com/taskhive/taskhive/pkg/errors"
)

func newUserService(t *testing.T) (*UserService, *gorm.DB, *cache.Cache) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	userCache := cache.New(cache.NewDatabaseStore(db))

	svc, err := NewUserService(db, userCache)
	require.NoError(t, err)
	return svc, db, userCache
}

func TestCreateUserDefaultsAndHashing(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{
		Username: " alice ",
		Email:    " Alice@Example.COM ",
		Password: "s3cret",
	})
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, models.RoleUser, user.Role)
	require.NotEqual(t, "s3cret", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "s3cret"))

	admin, err := svc.Create(ctx, CreateUserInput{
		Username: "root",
		Email:    "root@example.com",
		Password: "s3cret",
		Role:     models.RoleAdmin,
	})
	require.NoError(t, err)
	require.True(t, admin.IsAdmin())

	_, err = svc.Create(ctx, CreateUserInput{
		Username: "odd",
		Email:    "odd@example.com",
		Password: "s3cret",
		Role:     "superuser",
	})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrBadRequest.Code, apperrors.FromError(err).Code)
}

func TestCreateUserUniquenessMapsToConflict(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	// Same username, different email.
	_, err = svc.Create(ctx, CreateUserInput{Username: "alice", Email: "other@example.com", Password: "pw"})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrConflict.Code, apperrors.FromError(err).Code)

	// Same email, different username.
	_, err = svc.Create(ctx, CreateUserInput{Username: "alice2", Email: "alice@example.com", Password: "pw"})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrConflict.Code, apperrors.FromError(err).Code)
}

func TestGetUserReadsThroughCache(t *testing.T) {
	svc, db, userCache := newUserService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateUserInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	// First read misses and populates the cache.
	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)

	var cached models.User
	require.True(t, userCache.GetJSON(ctx, cache.Key("user", created.ID), &cached))

	// A direct storage write the service does not see: the next read is
	// served stale from the cache until the entry is invalidated.
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", created.ID).Update("username", "renamed").Error)

	got, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)

	userCache.Delete(ctx, cache.Key("user", created.ID))

	got, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Username)
}

func TestGetUserNotFound(t *testing.T) {
	svc, _, _ := newUserService(t)

	_, err := svc.Get(context.Background(), "ba3b6a7e-0000-0000-0000-000000000000")
	require.Error(t, err)
	require.Equal(t, apperrors.ErrNotFound.Code, apperrors.FromError(err).Code)
}

func TestGetByIdentifier(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	byUsername, err := svc.GetByIdentifier(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", byUsername.Username)

	byEmail, err := svc.GetByIdentifier(ctx, "Alice@Example.com")
	require.NoError(t, err)
	require.Equal(t, byUsername.ID, byEmail.ID)

	_, err = svc.GetByIdentifier(ctx, "nobody")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestUpdateUserPartialAndConflict(t *testing.T) {
	svc, _, userCache := newUserService(t)
	ctx := context.Background()

	alice, err := svc.Create(ctx, CreateUserInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateUserInput{Username: "bob", Email: "bob@example.com", Password: "pw"})
	require.NoError(t, err)

	// Warm the cache, then update: the entry must be invalidated.
	_, err = svc.Get(ctx, alice.ID)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, alice.ID, UpdateUserInput{Email: strPtr("Alice2@Example.com")})
	require.NoError(t, err)
	require.Equal(t, "alice2@example.com", updated.Email)
	require.Equal(t, "alice", updated.Username)

	var cached models.User
	require.False(t, userCache.GetJSON(ctx, cache.Key("user", alice.ID), &cached))

	// Taking bob's username maps to Conflict.
	_, err = svc.Update(ctx, alice.ID, UpdateUserInput{Username: strPtr("bob")})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrConflict.Code, apperrors.FromError(err).Code)

	// Password updates are rehashed.
	updated, err = svc.Update(ctx, alice.ID, UpdateUserInput{Password: strPtr("newpw")})
	require.NoError(t, err)
	require.True(t, crypto.VerifyPassword(updated.Password, "newpw"))
}

func TestDeleteUserCascades(t *testing.T) {
	svc, db, _ := newUserService(t)
	ctx := context.Background()

	alice, err := svc.Create(ctx, CreateUserInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	task := models.Task{Title: "her task", OwnerID: alice.ID}
	require.NoError(t, db.Create(&task).Error)
	record := models.AuditRecord{TaskID: task.ID, Action: models.ActionCreated, ActorID: &alice.ID}
	require.NoError(t, db.Create(&record).Error)

	require.NoError(t, svc.Delete(ctx, alice.ID))

	var users, tasks, records int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Task{}).Count(&tasks).Error)
	require.NoError(t, db.Model(&models.AuditRecord{}).Count(&records).Error)
	require.Zero(t, users)
	require.Zero(t, tasks)
	require.Zero(t, records, "audit records follow their task out")

	err = svc.Delete(ctx, alice.ID)
	require.Error(t, err)
	require.Equal(t, apperrors.ErrNotFound.Code, apperrors.FromError(err).Code)
}
