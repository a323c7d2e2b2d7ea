package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"projectx/internal/cache"
	"projectx/internal/docstore"
	"projectx/internal/models"
)

// CredentialsCollection is the document-store collection holding one
// UserCredential per user, keyed by userId.
const CredentialsCollection = "users_authentication"

const (
	// saltBytes and pepperBytes are the entropy of the two random strings
	// mixed into the password before hashing. The salt defeats rainbow
	// tables; the pepper is a second secret limiting the damage of a
	// database-only breach.
	saltBytes   = 20
	pepperBytes = 20

	// MinHashCost is the floor for the bcrypt work factor.
	MinHashCost = 10

	// credentialEntrySize is the accounting weight of one cached credential.
	credentialEntrySize = 400
)

// CredentialStore owns the salt/pepper/hash scheme and is the only component
// that reads or writes UserCredential documents. Reads go through the
// authentication cache keyed by both userId and username.
type CredentialStore struct {
	store    docstore.Store
	cache    *cache.Cache[*models.UserCredential]
	cost     int
	cacheTTL time.Duration
}

// NewCredentialStore wires the store against the document store and cache.
// Costs below MinHashCost are raised to it.
func NewCredentialStore(store docstore.Store, c *cache.Cache[*models.UserCredential], cost int, cacheTTL time.Duration) *CredentialStore {
	if cost < MinHashCost {
		cost = MinHashCost
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &CredentialStore{store: store, cache: c, cost: cost, cacheTTL: cacheTTL}
}

// Create generates a salted, peppered credential for the user and persists
// it. A credential that already exists is never overwritten.
func (s *CredentialStore) Create(ctx context.Context, userID, username, plaintext string) (*models.UserCredential, error) {
	var existing models.UserCredential
	found, err := s.store.Get(ctx, CredentialsCollection, userID, &existing)
	if err != nil {
		return nil, fmt.Errorf("lookup credential: %w", err)
	}
	if found {
		return nil, ErrAlreadyExists
	}

	salt, err := randomString(saltBytes)
	if err != nil {
		return nil, err
	}
	pepper, err := randomString(pepperBytes)
	if err != nil {
		return nil, err
	}

	hashed, err := hashPassword(salt, plaintext, pepper, s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	cred := &models.UserCredential{
		UserID:         userID,
		Username:       username,
		HashedPassword: hashed,
		Salt:           salt,
		Pepper:         pepper,
		Role:           models.RolePatient,
		SchemaVersion:  models.CredentialSchemaVersion,
	}
	if err := s.store.Set(ctx, CredentialsCollection, userID, cred); err != nil {
		return nil, fmt.Errorf("persist credential: %w", err)
	}

	s.cacheCredential(cred)
	log.Println("[AUTH] [INFO] credential created for user:", username)
	return cred, nil
}

// Verify recomputes the hash with the credential's stored salt and pepper and
// compares it against the stored hash. It never errors: an absent credential
// or any comparison failure is simply false.
func (s *CredentialStore) Verify(plaintext string, cred *models.UserCredential) bool {
	if cred == nil {
		return false
	}
	composite := compositeKey(cred.Salt, plaintext, cred.Pepper)
	return bcrypt.CompareHashAndPassword([]byte(cred.HashedPassword), composite) == nil
}

// ByUserID resolves a credential through the cache with a store fallback.
// Absence is (nil, nil).
func (s *CredentialStore) ByUserID(ctx context.Context, userID string) (*models.UserCredential, error) {
	if cred, ok := s.cache.Get(userID); ok {
		return cred, nil
	}
	var cred models.UserCredential
	found, err := s.store.Get(ctx, CredentialsCollection, userID, &cred)
	if err != nil {
		return nil, fmt.Errorf("lookup credential: %w", err)
	}
	if !found {
		return nil, nil
	}
	s.cacheCredential(&cred)
	return &cred, nil
}

// ByUsername resolves a credential by its username alias.
func (s *CredentialStore) ByUsername(ctx context.Context, username string) (*models.UserCredential, error) {
	if cred, ok := s.cache.Get(username); ok {
		return cred, nil
	}
	docs, err := s.store.Query(CredentialsCollection).
		Where("username", docstore.Equal, username).
		Limit(1).
		Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup credential: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var cred models.UserCredential
	if err := docs[0].DataTo(&cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	s.cacheCredential(&cred)
	return &cred, nil
}

// Delete removes the credential together with the user account.
func (s *CredentialStore) Delete(ctx context.Context, userID string) error {
	cred, err := s.ByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if cred != nil {
		s.cache.Delete(cred.UserID)
		s.cache.Delete(cred.Username)
	}
	return s.store.Delete(ctx, CredentialsCollection, userID)
}

// cacheCredential writes the record under both identifiers. The username
// entry aliases the same value, so it carries no extra accounting weight.
func (s *CredentialStore) cacheCredential(cred *models.UserCredential) {
	s.cache.Set(cred.UserID, cred, credentialEntrySize, s.cacheTTL)
	s.cache.Set(cred.Username, cred, 0, s.cacheTTL)
}

// compositeKey is salt || plaintext || pepper, pre-hashed with SHA-512 so the
// composite stays under bcrypt's 72-byte input limit regardless of password
// length.
func compositeKey(salt, plaintext, pepper string) []byte {
	sum := sha512.Sum512([]byte(salt + plaintext + pepper))
	return sum[:]
}

func hashPassword(salt, plaintext, pepper string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(compositeKey(salt, plaintext, pepper), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func randomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(buf), nil
}
