package models

import "time"

// AccessToken is the short-lived signed credential presented on every
// authenticated request. It is never persisted.
type AccessToken struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
	SignedJWT string    `json:"-"`
}

// RefreshTokenRecord is the server-side ledger entry for one refresh token.
// Exactly one secret is valid per tokenId at any time: rotation overwrites the
// secret in place rather than creating a new record.
type RefreshTokenRecord struct {
	TokenID    string    `bson:"tokenId" json:"tokenId"`
	Secret     string    `bson:"secret" json:"-"`
	ValidUntil time.Time `bson:"validUntil" json:"validUntil"`
}

// RefreshToken is the client-held bearer form: the signed JWT plus the claims
// embedded in it. The Secret inside must match the stored RefreshTokenRecord
// for rotation to succeed; a mismatch means the token was already rotated away
// or replayed.
type RefreshToken struct {
	TokenID   string    `json:"tokenId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	Secret    string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	SignedJWT string    `json:"-"`
}

// Record projects the bearer token down to its persisted ledger form.
func (t *RefreshToken) Record() *RefreshTokenRecord {
	return &RefreshTokenRecord{
		TokenID:    t.TokenID,
		Secret:     t.Secret,
		ValidUntil: t.ExpiresAt,
	}
}
