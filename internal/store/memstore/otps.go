package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/store"
)

// Otps returns the challenge collection view of the store.
func (s *Store) Otps() store.Otps { return (*otpView)(s) }

type otpView Store

func (v *otpView) Insert(ctx context.Context, c *models.OtpChallenge) error {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	c.Email = strings.ToLower(c.Email)
	c.ID = newID()
	rec := &otpRecord{OtpChallenge: *c, seq: s.nextSeq()}
	s.otps = append(s.otps, rec)
	return nil
}

func (v *otpView) FindLatestUnconsumed(ctx context.Context, email string, purpose models.OtpPurpose) (*models.OtpChallenge, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(email)
	var best *otpRecord
	for _, rec := range s.otps {
		if rec.Email != email || rec.Purpose != purpose || rec.ConsumedAt != nil {
			continue
		}
		if best == nil || rec.CreatedAt.After(best.CreatedAt) ||
			(rec.CreatedAt.Equal(best.CreatedAt) && rec.seq > best.seq) {
			best = rec
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	clone := best.OtpChallenge
	return &clone, nil
}

func (v *otpView) Consume(ctx context.Context, id string, at time.Time) (bool, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.otps {
		if rec.ID.Hex() == id && rec.ConsumedAt == nil {
			consumed := at
			rec.ConsumedAt = &consumed
			return true, nil
		}
	}
	return false, nil
}

func (v *otpView) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.otps[:0]
	var removed int64
	for _, rec := range s.otps {
		if rec.ExpiresAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.otps = kept
	return removed, nil
}
