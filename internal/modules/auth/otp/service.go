// Package otp issues and verifies short-lived numeric codes proving control
// of an email address for a single purpose (signup, login, password reset).
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/pkg/credential"
	"github.com/walpay/core/internal/store"
)

// ErrIssuanceFailed means the code could not be delivered; the challenge is
// invalidated, so no usable code exists for the caller.
var ErrIssuanceFailed = errors.New("otp: issuance failed")

// Notifier delivers a raw code to its owner. The service never returns the
// raw code to anyone else.
type Notifier interface {
	SendOtpCode(email, code string, purpose models.OtpPurpose, expiresAt time.Time) error
}

// Reason classifies a failed verification. Logged internally; callers should
// not forward it verbatim to unauthenticated clients.
type Reason string

const (
	ReasonNotFound Reason = "not_found"
	ReasonMismatch Reason = "mismatch"
	ReasonExpired  Reason = "expired"
)

// Result is the outcome of a verification attempt.
type Result struct {
	Valid    bool
	Reason   Reason
	SellerID string
}

// Config holds the externally supplied knobs.
type Config struct {
	Length int           // digits per code
	TTL    time.Duration // challenge lifetime
}

const (
	DefaultLength = 6
	DefaultTTL    = 10 * time.Minute
)

type Service struct {
	otps     store.Otps
	notifier Notifier
	cfg      Config
	log      *zap.Logger
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger sets the logger used for non-fatal issuance anomalies.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(otps store.Otps, notifier Notifier, cfg Config, opts ...Option) *Service {
	if cfg.Length <= 0 {
		cfg.Length = DefaultLength
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	s := &Service{otps: otps, notifier: notifier, cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a fresh challenge for (email, purpose) and hands the raw
// code to the notifier. Older challenges for the pair are superseded by
// recency ordering, not deleted. Only the expiry is returned.
func (s *Service) Issue(ctx context.Context, email, sellerID string, purpose models.OtpPurpose) (time.Time, error) {
	code, err := generateCode(s.cfg.Length)
	if err != nil {
		return time.Time{}, err
	}

	now := time.Now()
	ch := &models.OtpChallenge{
		Email:     email,
		SellerID:  sellerID,
		Purpose:   purpose,
		CodeHash:  credential.Digest(code),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	if err := s.otps.Insert(ctx, ch); err != nil {
		return time.Time{}, err
	}

	if err := s.notifier.SendOtpCode(email, code, purpose, ch.ExpiresAt); err != nil {
		// The code never reached its owner; consume the challenge so it
		// cannot be verified later. If that also fails, an undelivered
		// but verifiable challenge survives until its TTL.
		if _, cerr := s.otps.Consume(ctx, ch.ID.Hex(), time.Now()); cerr != nil {
			s.log.Warn("orphaned challenge not invalidated",
				zap.Error(cerr), zap.String("challenge_id", ch.ID.Hex()))
		}
		return time.Time{}, fmt.Errorf("%w: %v", ErrIssuanceFailed, err)
	}
	return ch.ExpiresAt, nil
}

// Verify checks a code against the newest unconsumed challenge for
// (email, purpose) and consumes it exactly once on success. Expired
// challenges fail on read regardless of whether the reaper purged them.
func (s *Service) Verify(ctx context.Context, email, code string, purpose models.OtpPurpose) (Result, error) {
	ch, err := s.otps.FindLatestUnconsumed(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{Reason: ReasonNotFound}, nil
		}
		return Result{}, err
	}

	if ch.CodeHash != credential.Digest(code) {
		return Result{Reason: ReasonMismatch}, nil
	}
	now := time.Now()
	if ch.Expired(now) {
		return Result{Reason: ReasonExpired}, nil
	}

	ok, err := s.otps.Consume(ctx, ch.ID.Hex(), now)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		// A concurrent verify consumed it first.
		return Result{Reason: ReasonNotFound}, nil
	}
	return Result{Valid: true, SellerID: ch.SellerID}, nil
}

// PurgeExpired physically removes expired challenges. Hygiene only: expiry
// is enforced on every read whether or not this ever runs.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.otps.DeleteExpired(ctx, time.Now())
}

// generateCode draws each digit independently from crypto/rand, rejecting
// nothing because the modulus divides the draw space exactly.
func generateCode(length int) (string, error) {
	buf := make([]byte, length)
	ten := big.NewInt(10)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}
