package memstore

import (
	"context"
	"time"

	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/store"
)

// Sessions returns the session collection view of the store.
func (s *Store) Sessions() store.Sessions { return (*sessionView)(s) }

type sessionView Store

func (v *sessionView) Insert(ctx context.Context, sess *models.Session) error {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.ID = newID()
	clone := *sess
	s.sessions = append(s.sessions, &clone)
	return nil
}

func (v *sessionView) FindActiveByAccessHash(ctx context.Context, hash string, now time.Time) (*models.Session, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.AccessTokenHash == hash && sess.RevokedAt == nil && sess.AccessExpiresAt.After(now) {
			clone := *sess
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

// Rotate performs the whole compare-and-swap under the store lock, matching
// the atomicity of the Mongo FindOneAndUpdate filter.
func (v *sessionView) Rotate(ctx context.Context, oldRefreshHash string, now time.Time, rot store.SessionRotation) (*models.Session, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.RefreshTokenHash != oldRefreshHash || sess.RevokedAt != nil {
			continue
		}
		if !sess.RefreshExpiresAt.After(now) || !sess.SessionExpiresAt.After(now) {
			continue
		}
		sess.AccessTokenHash = rot.AccessTokenHash
		sess.RefreshTokenHash = rot.RefreshTokenHash
		sess.AccessExpiresAt = rot.AccessExpiresAt
		sess.RefreshExpiresAt = rot.RefreshExpiresAt
		sess.UpdatedAt = rot.UpdatedAt
		sess.RotationCount++
		clone := *sess
		return &clone, nil
	}
	return nil, store.ErrNotFound
}

func (v *sessionView) Revoke(ctx context.Context, id string, at time.Time) error {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.ID.Hex() == id && sess.RevokedAt == nil {
			revoked := at
			sess.RevokedAt = &revoked
			sess.UpdatedAt = at
			return nil
		}
	}
	return store.ErrNotFound
}

func (v *sessionView) RevokeByAccessHash(ctx context.Context, hash string, at time.Time) error {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.AccessTokenHash == hash && sess.RevokedAt == nil {
			revoked := at
			sess.RevokedAt = &revoked
			sess.UpdatedAt = at
			return nil
		}
	}
	return store.ErrNotFound
}

func (v *sessionView) RevokeAllForSeller(ctx context.Context, sellerID string, at time.Time) (int64, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, sess := range s.sessions {
		if sess.SellerID == sellerID && sess.RevokedAt == nil {
			revoked := at
			sess.RevokedAt = &revoked
			sess.UpdatedAt = at
			n++
		}
	}
	return n, nil
}
