// Package session manages the access/refresh token pair lifecycle: minting,
// authentication, single-use rotation, and revocation.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/pkg/credential"
	"github.com/walpay/core/internal/store"
)

// ErrInvalidRefreshToken covers every refresh failure: unknown token,
// expired, revoked, past the absolute ceiling, or losing a concurrent
// rotation race. Callers cannot tell these apart.
var ErrInvalidRefreshToken = errors.New("session: invalid refresh token")

// Config holds the externally supplied TTLs and token sizes.
type Config struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// SessionMaxLife is the absolute ceiling on total session lifetime,
	// fixed at creation and untouched by rotation.
	SessionMaxLife    time.Duration
	AccessTokenBytes  int
	RefreshTokenBytes int
}

const (
	DefaultAccessTokenTTL    = 15 * time.Minute
	DefaultRefreshTokenTTL   = 7 * 24 * time.Hour
	DefaultSessionMaxLife    = 30 * 24 * time.Hour
	DefaultAccessTokenBytes  = 32
	DefaultRefreshTokenBytes = 48
)

// TokenPair is what a successful login hands back to the caller. The raw
// tokens exist only here; the store sees digests.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Rotated is the outcome of a successful refresh.
type Rotated struct {
	TokenPair
	Session *models.Session
}

type Service struct {
	sessions store.Sessions
	cfg      Config
}

func NewService(sessions store.Sessions, cfg Config) *Service {
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if cfg.SessionMaxLife == 0 {
		cfg.SessionMaxLife = DefaultSessionMaxLife
	}
	if cfg.AccessTokenBytes <= 0 {
		cfg.AccessTokenBytes = DefaultAccessTokenBytes
	}
	if cfg.RefreshTokenBytes <= 0 {
		cfg.RefreshTokenBytes = DefaultRefreshTokenBytes
	}
	return &Service{sessions: sessions, cfg: cfg}
}

// Create mints a token pair for a seller who just proved their identity.
func (s *Service) Create(ctx context.Context, sellerID string) (*TokenPair, error) {
	accessToken, err := credential.RandomToken(s.cfg.AccessTokenBytes)
	if err != nil {
		return nil, err
	}
	refreshToken, err := credential.RandomToken(s.cfg.RefreshTokenBytes)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &models.Session{
		SellerID:         sellerID,
		AccessTokenHash:  credential.Digest(accessToken),
		RefreshTokenHash: credential.Digest(refreshToken),
		AccessExpiresAt:  now.Add(s.cfg.AccessTokenTTL),
		RefreshExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
		SessionExpiresAt: now.Add(s.cfg.SessionMaxLife),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessions.Insert(ctx, sess); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  sess.AccessExpiresAt,
		RefreshExpiresAt: sess.RefreshExpiresAt,
	}, nil
}

// Authenticate resolves an access token to its live session. Malformed,
// unknown, expired and revoked tokens are indistinguishable: all return
// (nil, nil).
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.Session, error) {
	if accessToken == "" {
		return nil, nil
	}
	sess, err := s.sessions.FindActiveByAccessHash(ctx, credential.Digest(accessToken), time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

// Refresh performs a single-use rotation: both token hashes and both
// short-lived expiries are replaced in one conditional store operation keyed
// on the old refresh hash, so of two concurrent calls exactly one wins. The
// absolute ceiling is never extended; a session past it cannot refresh even
// with a live refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Rotated, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	newAccess, err := credential.RandomToken(s.cfg.AccessTokenBytes)
	if err != nil {
		return nil, err
	}
	newRefresh, err := credential.RandomToken(s.cfg.RefreshTokenBytes)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess, err := s.sessions.Rotate(ctx, credential.Digest(refreshToken), now, store.SessionRotation{
		AccessTokenHash:  credential.Digest(newAccess),
		RefreshTokenHash: credential.Digest(newRefresh),
		AccessExpiresAt:  now.Add(s.cfg.AccessTokenTTL),
		RefreshExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
		UpdatedAt:        now,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	return &Rotated{
		TokenPair: TokenPair{
			AccessToken:      newAccess,
			RefreshToken:     newRefresh,
			AccessExpiresAt:  sess.AccessExpiresAt,
			RefreshExpiresAt: sess.RefreshExpiresAt,
		},
		Session: sess,
	}, nil
}

// Revoke terminates a session by id.
func (s *Service) Revoke(ctx context.Context, sessionID string) error {
	return s.sessions.Revoke(ctx, sessionID, time.Now())
}

// RevokeByAccessToken terminates the session behind a presented access
// token. Used by logout, where the caller only holds the raw token.
func (s *Service) RevokeByAccessToken(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	err := s.sessions.RevokeByAccessHash(ctx, credential.Digest(accessToken), time.Now())
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// RevokeAllForSeller terminates every session a seller owns, e.g. after a
// password reset or account deletion.
func (s *Service) RevokeAllForSeller(ctx context.Context, sellerID string) (int64, error) {
	return s.sessions.RevokeAllForSeller(ctx, sellerID, time.Now())
}
