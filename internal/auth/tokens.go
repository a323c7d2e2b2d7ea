package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"projectx/internal/models"
)

const (
	// Lifetimes straight from the product requirements: a short access window
	// bounds the blast radius of a leaked token, the refresh window bounds how
	// long a client can stay logged in without re-authenticating.
	DefaultAccessTokenTTL  = 30 * time.Minute
	DefaultRefreshTokenTTL = 3 * 24 * time.Hour

	// Refresh secrets are random byte strings of variable length in this
	// range, regenerated on every issuance.
	minSecretBytes = 40
	maxSecretBytes = 60
)

// TokenClaims is the claim set of both token classes. Refresh tokens
// additionally carry the ledger key (RefreshTokenId) and the rotating secret
// (RefreshTokenSecret); those claim names are part of the wire format.
type TokenClaims struct {
	jwt.RegisteredClaims
	Name               string      `json:"name,omitempty"`
	Role               models.Role `json:"role,omitempty"`
	RefreshTokenID     string      `json:"RefreshTokenId,omitempty"`
	RefreshTokenSecret string      `json:"RefreshTokenSecret,omitempty"`
}

// TokenIssuer builds and parses the signed access and refresh tokens. The two
// classes are signed with independent Ed25519 keys so compromising one key
// never compromises the other class.
type TokenIssuer struct {
	externalURL string
	accessKey   ed25519.PrivateKey
	refreshKey  ed25519.PrivateKey
	accessTTL   time.Duration
	refreshTTL  time.Duration
	now         func() time.Time
}

// NewTokenIssuer wires an issuer for the service reachable at externalURL,
// which doubles as iss and aud on every token. Non-positive TTLs fall back to
// the defaults.
func NewTokenIssuer(externalURL string, accessKey, refreshKey ed25519.PrivateKey, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &TokenIssuer{
		externalURL: externalURL,
		accessKey:   accessKey,
		refreshKey:  refreshKey,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		now:         time.Now,
	}
}

// AccessTokenTTL reports the configured access-token lifetime.
func (i *TokenIssuer) AccessTokenTTL() time.Duration { return i.accessTTL }

// IssueAccessToken mints a signed access token carrying the user's identity
// claims.
func (i *TokenIssuer) IssueAccessToken(userID, username string, role models.Role) (*models.AccessToken, error) {
	expiresAt := i.now().Add(i.accessTTL)
	claims := TokenClaims{
		RegisteredClaims: i.registeredClaims(userID, expiresAt),
		Name:             username,
		Role:             role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(i.accessKey)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &models.AccessToken{
		UserID:    userID,
		Username:  username,
		Role:      role,
		ExpiresAt: expiresAt,
		SignedJWT: signed,
	}, nil
}

// IssueRefreshToken mints a refresh token with a fresh random secret. An
// empty existingTokenID means first issuance and gets a new token id; a
// rotation passes the previous id so the ledger key stays stable.
func (i *TokenIssuer) IssueRefreshToken(userID, username string, role models.Role, existingTokenID string) (*models.RefreshToken, error) {
	tokenID := existingTokenID
	if tokenID == "" {
		tokenID = uuid.NewString()
	}
	secret, err := newTokenSecret()
	if err != nil {
		return nil, err
	}

	expiresAt := i.now().Add(i.refreshTTL)
	claims := TokenClaims{
		RegisteredClaims:   i.registeredClaims(userID, expiresAt),
		Name:               username,
		Role:               role,
		RefreshTokenID:     tokenID,
		RefreshTokenSecret: secret,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(i.refreshKey)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &models.RefreshToken{
		TokenID:   tokenID,
		UserID:    userID,
		Username:  username,
		Role:      role,
		Secret:    secret,
		ExpiresAt: expiresAt,
		SignedJWT: signed,
	}, nil
}

// ParseAccessToken verifies signature, issuer, audience and expiry against
// the access-token key. Every failure maps to ErrTokenInvalid so callers can
// treat it as a plain authentication branch.
func (i *TokenIssuer) ParseAccessToken(signed string) (*TokenClaims, error) {
	return i.parse(signed, i.accessKey.Public())
}

// ParseRefreshToken is ParseAccessToken against the refresh-token key.
func (i *TokenIssuer) ParseRefreshToken(signed string) (*TokenClaims, error) {
	return i.parse(signed, i.refreshKey.Public())
}

// ReadAccessToken projects claims that transport-level middleware already
// validated back into an access-token value. No signature re-check happens
// here.
func (i *TokenIssuer) ReadAccessToken(claims *TokenClaims) *models.AccessToken {
	token := &models.AccessToken{
		UserID:   claims.Subject,
		Username: claims.Name,
		Role:     claims.Role,
	}
	if claims.ExpiresAt != nil {
		token.ExpiresAt = claims.ExpiresAt.Time
	}
	return token
}

// ReadRefreshToken validates a signed refresh token and projects it into its
// bearer form.
func (i *TokenIssuer) ReadRefreshToken(signed string) (*models.RefreshToken, error) {
	claims, err := i.ParseRefreshToken(signed)
	if err != nil {
		return nil, err
	}
	token := &models.RefreshToken{
		TokenID:   claims.RefreshTokenID,
		UserID:    claims.Subject,
		Username:  claims.Name,
		Role:      claims.Role,
		Secret:    claims.RefreshTokenSecret,
		SignedJWT: signed,
	}
	if claims.ExpiresAt != nil {
		token.ExpiresAt = claims.ExpiresAt.Time
	}
	return token, nil
}

func (i *TokenIssuer) registeredClaims(userID string, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    i.externalURL,
		Audience:  jwt.ClaimStrings{i.externalURL},
		IssuedAt:  jwt.NewNumericDate(i.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (i *TokenIssuer) parse(signed string, key any) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(signed, claims,
		func(t *jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuer(i.externalURL),
		jwt.WithAudience(i.externalURL),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// newTokenSecret returns a random secret of 40 to 60 bytes, url-safe encoded
// for transport inside a JWT claim.
func newTokenSecret() (string, error) {
	span, err := rand.Int(rand.Reader, big.NewInt(maxSecretBytes-minSecretBytes+1))
	if err != nil {
		return "", fmt.Errorf("pick secret length: %w", err)
	}
	buf := make([]byte, minSecretBytes+int(span.Int64()))
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read secret bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SigningKeyFromSeed decodes a base64 Ed25519 seed into a signing key.
func SigningKeyFromSeed(encoded string) (ed25519.PrivateKey, error) {
	seed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode signing key seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// GenerateSigningKey makes an ephemeral key pair. Tokens signed with it do
// not survive a restart, so production deployments configure seeds instead.
func GenerateSigningKey() (ed25519.PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return key, nil
}
