// Package store defines the persistence contracts for the document store.
// Implementations must apply every cross-field update as a single atomic
// operation; rotation and consumption are compare-and-swap style conditional
// updates so concurrent callers race safely even across server processes.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/walpay/core/internal/models"
)

var (
	// ErrNotFound is returned when no document matches, including when a
	// conditional update loses its compare-and-swap race.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned on unique key conflicts.
	ErrDuplicate = errors.New("store: duplicate key")
)

// SellerPatch is an explicit optional-field update. A nil field means
// "leave untouched"; a non-nil pointer to an empty string is still a write.
type SellerPatch struct {
	BusinessName *string
	Country      *string
	Address      *string
}

// Empty reports whether the patch would change nothing.
func (p SellerPatch) Empty() bool {
	return p.BusinessName == nil && p.Country == nil && p.Address == nil
}

// Sellers persists merchant accounts. Lookup methods exclude soft-deleted
// records.
type Sellers interface {
	Insert(ctx context.Context, s *models.Seller) error
	FindByEmail(ctx context.Context, email string) (*models.Seller, error)
	FindByID(ctx context.Context, id string) (*models.Seller, error)
	MarkVerified(ctx context.Context, id string, at time.Time) (*models.Seller, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
	UpdateProfile(ctx context.Context, id string, patch SellerPatch, at time.Time) (*models.Seller, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// Otps persists one-time passcode challenges.
type Otps interface {
	Insert(ctx context.Context, c *models.OtpChallenge) error
	// FindLatestUnconsumed returns the most recently created unconsumed
	// challenge for (email, purpose), expired or not. Expiry is the caller's
	// concern; physical purging is hygiene only.
	FindLatestUnconsumed(ctx context.Context, email string, purpose models.OtpPurpose) (*models.OtpChallenge, error)
	// Consume sets consumedAt if and only if it is still unset. Returns
	// false when another caller consumed the challenge first.
	Consume(ctx context.Context, id string, at time.Time) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SessionRotation carries the replacement values for a refresh rotation.
// The absolute session ceiling is deliberately absent: it never moves.
type SessionRotation struct {
	AccessTokenHash  string
	RefreshTokenHash string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	UpdatedAt        time.Time
}

// Sessions persists token-pair sessions.
type Sessions interface {
	Insert(ctx context.Context, s *models.Session) error
	// FindActiveByAccessHash matches an unrevoked session whose access
	// expiry is after now. A dead session and a missing one are the same.
	FindActiveByAccessHash(ctx context.Context, hash string, now time.Time) (*models.Session, error)
	// Rotate atomically replaces both token hashes and both short-lived
	// expiries, keyed on the old refresh hash, for a session that is
	// unrevoked with refresh expiry and absolute ceiling after now. The
	// rotation counter is incremented in the same operation. Losing the
	// compare-and-swap returns ErrNotFound.
	Rotate(ctx context.Context, oldRefreshHash string, now time.Time, rot SessionRotation) (*models.Session, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeByAccessHash(ctx context.Context, hash string, at time.Time) error
	RevokeAllForSeller(ctx context.Context, sellerID string, at time.Time) (int64, error)
}

// Payments persists payment links.
type Payments interface {
	Insert(ctx context.Context, p *models.Payment) error
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	// FindActiveBySlug matches an active, non-deleted payment link.
	FindActiveBySlug(ctx context.Context, slug string) (*models.Payment, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	SetCreateTx(ctx context.Context, id, txID string, at time.Time) error
	Deactivate(ctx context.Context, id string, txID *string, at time.Time) (*models.Payment, error)
	ListForSeller(ctx context.Context, sellerID string, limit, offset int64) ([]models.Payment, error)
	SoftDeleteForSeller(ctx context.Context, sellerID string, at time.Time) (int64, error)
}

// Transactions persists the local mirror of submitted Flow transactions.
type Transactions interface {
	Insert(ctx context.Context, t *models.Transaction) error
	ListForSeller(ctx context.Context, sellerID string, limit, offset int64) ([]models.Transaction, error)
	ListForPayment(ctx context.Context, paymentID string) ([]models.Transaction, error)
	SoftDeleteForSeller(ctx context.Context, sellerID string, at time.Time) (int64, error)
}
