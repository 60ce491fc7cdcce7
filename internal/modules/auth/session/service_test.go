package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walpay/core/internal/store/memstore"
)

func newTestService(cfg Config) *Service {
	return NewService(memstore.New().Sessions(), cfg)
}

func TestCreateAndAuthenticate(t *testing.T) {
	svc := newTestService(Config{})
	ctx := context.Background()

	pair, err := svc.Create(ctx, "seller-1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.True(t, pair.AccessExpiresAt.After(time.Now()))
	assert.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))

	sess, err := svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "seller-1", sess.SellerID)
	assert.Equal(t, 0, sess.RotationCount)
}

func TestAuthenticateUnknownToken(t *testing.T) {
	svc := newTestService(Config{})
	ctx := context.Background()

	for _, token := range []string{"", "garbage", "Bearer something"} {
		sess, err := svc.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, sess)
	}
}

func TestAuthenticateExpiredAccessToken(t *testing.T) {
	svc := newTestService(Config{AccessTokenTTL: -time.Minute})
	ctx := context.Background()

	pair, err := svc.Create(ctx, "seller-1")
	require.NoError(t, err)

	sess, err := svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestRefreshRotationIsSingleUse(t *testing.T) {
	svc := newTestService(Config{})
	ctx := context.Background()

	pair, err := svc.Create(ctx, "seller-1")
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 1, rotated.Session.RotationCount)
	assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The old refresh token died with the rotation.
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// So did the old access token; the new pair works.
	sess, err := svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, sess)

	sess, err = svc.Authenticate(ctx, rotated.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, sess)

	again, err := svc.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Session.RotationCount)
}

func TestRefreshRespectsAbsoluteCeiling(t *testing.T) {
	// Refresh tokens outlive the session ceiling here, so refresh must fail
	// even though the refresh token itself has not expired.
	svc := newTestService(Config{
		RefreshTokenTTL: 7 * 24 * time.Hour,
		SessionMaxLife:  -time.Minute,
	})
	ctx := context.Background()

	pair, err := svc.Create(ctx, "seller-1")
	require.NoError(t, err)
	assert.True(t, pair.RefreshExpiresAt.After(time.Now()))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefreshCeilingSurvivesRotation(t *testing.T) {
	svc := newTestService(Config{})
	ctx := context.Background()

	pair, err := svc.Create(ctx, "seller-1")
	require.NoError(t, err)

	first, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, first.Session.SessionExpiresAt, second.Session.SessionExpiresAt)
}

func TestRefreshExpiredRefreshToken(t *testing.T) {
	svc := newTestService(Config{RefreshTokenTTL: -time.Minute})
	ctx := context.Background()

	pair, err := svc.Create(ctx, "seller-1")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevoke(t *testing.T) {
	svc := newTestService(Config{})
	ctx := context.Background()

	pair, err := svc.Create(ctx, "seller-1")
	require.NoError(t, err)

	sess, err := svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, sess)

	require.NoError(t, svc.Revoke(ctx, sess.ID.Hex()))

	sess, err = svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, sess)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevokeByAccessToken(t *testing.T) {
	svc := newTestService(Config{})
	ctx := context.Background()

	pair, err := svc.Create(ctx, "seller-1")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeByAccessToken(ctx, pair.AccessToken))

	sess, err := svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, sess)

	// Revoking an unknown token is a no-op, not an error.
	require.NoError(t, svc.RevokeByAccessToken(ctx, "no-such-token"))
	require.NoError(t, svc.RevokeByAccessToken(ctx, ""))
}

func TestRevokeAllForSeller(t *testing.T) {
	svc := newTestService(Config{})
	ctx := context.Background()

	a, err := svc.Create(ctx, "seller-1")
	require.NoError(t, err)
	b, err := svc.Create(ctx, "seller-1")
	require.NoError(t, err)
	other, err := svc.Create(ctx, "seller-2")
	require.NoError(t, err)

	n, err := svc.RevokeAllForSeller(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, token := range []string{a.AccessToken, b.AccessToken} {
		sess, err := svc.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, sess)
	}

	sess, err := svc.Authenticate(ctx, other.AccessToken)
	require.NoError(t, err)
	assert.NotNil(t, sess)
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	svc := newTestService(Config{})
	ctx := context.Background()

	pair, err := svc.Create(ctx, "seller-1")
	require.NoError(t, err)

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []*Rotated
		losers  int
	)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			rotated, err := svc.Refresh(ctx, pair.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, rotated)
			} else {
				assert.ErrorIs(t, err, ErrInvalidRefreshToken)
				losers++
			}
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, callers-1, losers)

	// The record is intact, not half-rotated: the winner's pair works.
	sess, err := svc.Authenticate(ctx, winners[0].AccessToken)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, 1, sess.RotationCount)

	_, err = svc.Refresh(ctx, winners[0].RefreshToken)
	require.NoError(t, err)
}
