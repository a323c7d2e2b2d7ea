// Package users implements the user directory: identity documents separate
// from authentication data, consumed by registration and by other services
// looking identities up.
package users

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"projectx/internal/cache"
	"projectx/internal/docstore"
	"projectx/internal/models"
)

// UsersCollection holds one identity document per user, keyed by userId.
const UsersCollection = "users"

const (
	// userEntrySize is the accounting weight of one cached identity.
	userEntrySize = 500
	userCacheTTL  = 60 * time.Minute
)

// ErrAlreadyExists reports a duplicate username at creation.
var ErrAlreadyExists = errors.New("user already exists")

// CreateUserRequest carries the fields of a new identity.
type CreateUserRequest struct {
	Username     string
	Email        string
	Organisation string
	DateOfBirth  time.Time
}

// Service reads and writes identity documents with a write-through cache
// keyed by both userId and username.
type Service struct {
	store docstore.Store
	cache *cache.Cache[*models.User]
}

func NewService(store docstore.Store, c *cache.Cache[*models.User]) *Service {
	return &Service{store: store, cache: c}
}

// Create registers a new identity under a fresh uuid. Usernames are unique.
func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	existing, err := s.ByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	user := &models.User{
		UserID:        uuid.NewString(),
		Username:      req.Username,
		Email:         req.Email,
		Organisation:  req.Organisation,
		EmailVerified: false,
		DateOfBirth:   req.DateOfBirth,
		Created:       time.Now().UTC(),
	}
	if err := s.store.Set(ctx, UsersCollection, user.UserID, user); err != nil {
		return nil, fmt.Errorf("persist user: %w", err)
	}

	s.cacheUser(user)
	log.Println("[USERS] [INFO] user created:", user.Username)
	return user, nil
}

// UserByID resolves an identity through the cache with a store fallback.
// Absence is (nil, nil). Satisfies auth.UserDirectory.
func (s *Service) UserByID(ctx context.Context, userID string) (*models.User, error) {
	if user, ok := s.cache.Get(userID); ok {
		return user, nil
	}
	var user models.User
	found, err := s.store.Get(ctx, UsersCollection, userID, &user)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !found {
		return nil, nil
	}
	s.cacheUser(&user)
	return &user, nil
}

// ByUsername resolves an identity by username.
func (s *Service) ByUsername(ctx context.Context, username string) (*models.User, error) {
	if user, ok := s.cache.Get(username); ok {
		return user, nil
	}
	return s.findOne(ctx, "username", username)
}

// ByEmail resolves an identity by email address. Emails are not cache keys,
// so this always queries the store.
func (s *Service) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "email", email)
}

// Update replaces the identity document and refreshes the cache.
func (s *Service) Update(ctx context.Context, user *models.User) error {
	if err := s.store.Set(ctx, UsersCollection, user.UserID, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	s.cacheUser(user)
	return nil
}

func (s *Service) findOne(ctx context.Context, field, value string) (*models.User, error) {
	docs, err := s.store.Query(UsersCollection).
		Where(field, docstore.Equal, value).
		Limit(1).
		Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var user models.User
	if err := docs[0].DataTo(&user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	s.cacheUser(&user)
	return &user, nil
}

// cacheUser stores the identity under both keys; the username entry aliases
// the same value and carries no extra weight.
func (s *Service) cacheUser(user *models.User) {
	s.cache.Set(user.UserID, user, userEntrySize, userCacheTTL)
	s.cache.Set(user.Username, user, 0, userCacheTTL)
}
