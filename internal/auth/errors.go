package auth

import "errors"

// Authentication failures are sentinel values so callers can branch on them
// without string matching, and so transport code can collapse all of them
// into one generic response without revealing which check failed.
var (
	// ErrAlreadyExists: a credential already exists for the user.
	ErrAlreadyExists = errors.New("credential already exists")

	// ErrInvalidCredentials: unknown username or password mismatch. The two
	// cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenInvalid: signature, issuer, audience or expiry failed on parse.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenRevoked: the refresh token has no live ledger record, or its
	// secret is stale after a rotation.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrUpstreamUnavailable: the document store or user directory failed.
	// Distinct from every authentication failure above; a caller must never
	// conflate "wrong password" with "database unreachable".
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
