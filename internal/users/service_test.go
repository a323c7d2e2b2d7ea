package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"projectx/internal/cache"
	"projectx/internal/docstore"
	"projectx/internal/models"
)

func newTestService() (*Service, docstore.Store) {
	store := docstore.NewMemory()
	return NewService(store, cache.New[*models.User](1<<20)), store
}

func TestCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, err := svc.Create(ctx, CreateUserRequest{
		Username:     "alice",
		Email:        "alice@example.com",
		Organisation: "acme",
		DateOfBirth:  time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.UserID)
	require.False(t, created.EmailVerified)
	require.False(t, created.Created.IsZero())

	byID, err := svc.UserByID(ctx, created.UserID)
	require.NoError(t, err)
	require.Equal(t, created.Username, byID.Username)

	byName, err := svc.ByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, created.UserID, byName.UserID)

	byMail, err := svc.ByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, created.UserID, byMail.UserID)
}

func TestCreateDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Create(ctx, CreateUserRequest{Username: "alice", Email: "a@example.com"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateUserRequest{Username: "alice", Email: "b@example.com"})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestLookupAbsentIsNilNil(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	user, err := svc.UserByID(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, user)

	user, err = svc.ByUsername(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, user)

	user, err = svc.ByEmail(ctx, "missing@example.com")
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestLookupServedFromCache(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	svc := NewService(store, cache.New[*models.User](1<<20))

	created, err := svc.Create(ctx, CreateUserRequest{Username: "alice", Email: "a@example.com"})
	require.NoError(t, err)

	// Remove the document behind the cache's back; cached keys still hit.
	require.NoError(t, store.Delete(ctx, UsersCollection, created.UserID))

	byID, err := svc.UserByID(ctx, created.UserID)
	require.NoError(t, err)
	require.NotNil(t, byID)

	byName, err := svc.ByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)

	// Email is not a cache key, so it sees the deletion.
	byMail, err := svc.ByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.Nil(t, byMail)
}

func TestUpdateRefreshesCache(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, err := svc.Create(ctx, CreateUserRequest{Username: "alice", Email: "a@example.com"})
	require.NoError(t, err)

	created.EmailVerified = true
	require.NoError(t, svc.Update(ctx, created))

	got, err := svc.UserByID(ctx, created.UserID)
	require.NoError(t, err)
	require.True(t, got.EmailVerified)
}

func TestColdCacheFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	warm := NewService(store, cache.New[*models.User](1<<20))

	created, err := warm.Create(ctx, CreateUserRequest{Username: "alice", Email: "a@example.com"})
	require.NoError(t, err)

	// A second service instance shares the store but not the cache.
	cold := NewService(store, cache.New[*models.User](1<<20))
	got, err := cold.UserByID(ctx, created.UserID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)
}
