package auth

import (
	"context"
	"fmt"
	"log"

	"projectx/internal/models"
)

// UserDirectory is the external directory consulted during registration to
// confirm the identity exists. Absence is (nil, nil).
type UserDirectory interface {
	UserByID(ctx context.Context, userID string) (*models.User, error)
}

// TokenPair is the response of every successful authentication operation.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Service orchestrates the credential store, token issuer and refresh ledger
// behind the three public operations: Register, Login and Refresh.
type Service struct {
	credentials *CredentialStore
	tokens      *TokenIssuer
	ledger      *RefreshTokenLedger
	directory   UserDirectory
}

func NewService(credentials *CredentialStore, tokens *TokenIssuer, ledger *RefreshTokenLedger, directory UserDirectory) *Service {
	return &Service{
		credentials: credentials,
		tokens:      tokens,
		ledger:      ledger,
		directory:   directory,
	}
}

// Register creates a credential for an identity that already exists in the
// user directory and issues the initial token pair. A user that already holds
// a credential fails with ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, userID, password string) (*TokenPair, error) {
	existing, err := s.credentials.ByUserID(ctx, userID)
	if err != nil {
		return nil, upstream(err)
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	user, err := s.directory.UserByID(ctx, userID)
	if err != nil {
		return nil, upstream(err)
	}
	if user == nil {
		// Unknown identity reads the same as a bad login so the endpoint
		// cannot be used to probe which user ids exist.
		return nil, ErrInvalidCredentials
	}

	cred, err := s.credentials.Create(ctx, user.UserID, user.Username, password)
	if err != nil {
		if err == ErrAlreadyExists {
			return nil, err
		}
		return nil, upstream(err)
	}

	return s.issuePair(ctx, cred.UserID, cred.Username, cred.Role, "")
}

// Login verifies the password against the stored credential and issues a
// fresh token pair under a brand-new tokenId. Unknown username and wrong
// password fail the same way.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	cred, err := s.credentials.ByUsername(ctx, username)
	if err != nil {
		return nil, upstream(err)
	}
	if !s.credentials.Verify(password, cred) {
		log.Println("[AUTH] [ERROR] login failed for user:", username)
		return nil, ErrInvalidCredentials
	}

	log.Println("[AUTH] [INFO] login succeeded for user:", username)
	return s.issuePair(ctx, cred.UserID, cred.Username, cred.Role, "")
}

// Refresh exchanges a valid refresh token for a new pair, rotating the stored
// secret in place under the same tokenId. A stale secret after pruning means
// the token was already rotated away: either a benign double-refresh race or
// a replayed stolen token. Both fail with ErrTokenRevoked, and the surviving
// record is left untouched so the winning client keeps working.
func (s *Service) Refresh(ctx context.Context, signedRefreshToken string) (*TokenPair, error) {
	presented, err := s.tokens.ReadRefreshToken(signedRefreshToken)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	record, err := s.ledger.Get(ctx, presented.UserID, presented.TokenID)
	if err != nil {
		return nil, upstream(err)
	}
	if !s.ledger.ValidateRotation(presented.Secret, record) {
		log.Println("[AUTH] [ERROR] refresh token revoked or replayed for user:", presented.Username)
		return nil, ErrTokenRevoked
	}

	return s.issuePair(ctx, presented.UserID, presented.Username, presented.Role, presented.TokenID)
}

// issuePair mints an access/refresh pair and persists the refresh record.
// With a non-empty existingTokenID the new record overwrites the old secret.
func (s *Service) issuePair(ctx context.Context, userID, username string, role models.Role, existingTokenID string) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(userID, username, role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(userID, username, role, existingTokenID)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Put(ctx, userID, refresh.Record()); err != nil {
		return nil, upstream(err)
	}
	return &TokenPair{
		AccessToken:  access.SignedJWT,
		RefreshToken: refresh.SignedJWT,
		ExpiresIn:    int64(s.tokens.AccessTokenTTL().Seconds()),
	}, nil
}

// DeleteUserAuthentication removes the credential and every refresh token
// for a deleted account.
func (s *Service) DeleteUserAuthentication(ctx context.Context, userID string) error {
	if err := s.ledger.DeleteAll(ctx, userID); err != nil {
		return upstream(err)
	}
	if err := s.credentials.Delete(ctx, userID); err != nil {
		return upstream(err)
	}
	return nil
}

func upstream(err error) error {
	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}
