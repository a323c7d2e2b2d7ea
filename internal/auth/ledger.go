package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"time"

	"projectx/internal/docstore"
	"projectx/internal/models"
)

// RefreshTokensSubcollection is the per-user sub-collection holding one
// record per issued refresh token, keyed by tokenId.
const RefreshTokensSubcollection = "refresh_tokens"

// RefreshTokenLedger persists refresh-token records and enforces the rotation
// invariant: exactly one secret is valid per tokenId at any time. Expired
// records are pruned lazily whenever the ledger is consulted for a user;
// there is no background sweep.
type RefreshTokenLedger struct {
	store docstore.Store
	now   func() time.Time
}

func NewRefreshTokenLedger(store docstore.Store) *RefreshTokenLedger {
	return &RefreshTokenLedger{store: store, now: time.Now}
}

func ledgerPath(userID string) string {
	return fmt.Sprintf("%s/%s/%s", CredentialsCollection, userID, RefreshTokensSubcollection)
}

// Get prunes the user's expired records, then looks up the requested one.
// Absence is (nil, nil); an expired record therefore reads as absent both
// before and after a repeated prune.
func (l *RefreshTokenLedger) Get(ctx context.Context, userID, tokenID string) (*models.RefreshTokenRecord, error) {
	if _, err := l.PruneExpired(ctx, userID); err != nil {
		return nil, err
	}
	var record models.RefreshTokenRecord
	found, err := l.store.Get(ctx, ledgerPath(userID), tokenID, &record)
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &record, nil
}

// Put upserts the record. First issuance and rotation share this path: a
// rotation overwrites the stored secret in place and extends validUntil.
func (l *RefreshTokenLedger) Put(ctx context.Context, userID string, record *models.RefreshTokenRecord) error {
	if err := l.store.Set(ctx, ledgerPath(userID), record.TokenID, record); err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}
	return nil
}

// PruneExpired bulk-deletes every record whose validUntil has passed and
// returns the deleted records for audit.
func (l *RefreshTokenLedger) PruneExpired(ctx context.Context, userID string) ([]models.RefreshTokenRecord, error) {
	docs, err := l.store.Query(ledgerPath(userID)).
		Where("validUntil", docstore.LessThanOrEqual, l.now().UTC()).
		DeleteMatching(ctx)
	if err != nil {
		return nil, fmt.Errorf("prune refresh tokens: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	pruned := make([]models.RefreshTokenRecord, 0, len(docs))
	for _, doc := range docs {
		var record models.RefreshTokenRecord
		if err := doc.DataTo(&record); err != nil {
			return nil, fmt.Errorf("decode pruned refresh token: %w", err)
		}
		pruned = append(pruned, record)
	}
	log.Printf("[AUTH] [INFO] pruned %d expired refresh token(s) for user %s", len(pruned), userID)
	return pruned, nil
}

// DeleteAll drops every record for the user, for account deletion.
func (l *RefreshTokenLedger) DeleteAll(ctx context.Context, userID string) error {
	_, err := l.store.Query(ledgerPath(userID)).DeleteMatching(ctx)
	if err != nil {
		return fmt.Errorf("delete refresh tokens: %w", err)
	}
	return nil
}

// ValidateRotation reports whether the presented secret may rotate the stored
// record. False means the record expired and was pruned, or the secret is
// stale: the token was already used once and this is a replay of a
// rotated-away token (or the losing side of a double-refresh race).
func (l *RefreshTokenLedger) ValidateRotation(presentedSecret string, record *models.RefreshTokenRecord) bool {
	if record == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presentedSecret), []byte(record.Secret)) == 1
}
