package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/modules/auth/session"
	"github.com/walpay/core/internal/store/memstore"
)

func TestParseBearerToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"plain", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"mixed case scheme", "BeArEr abc123", "abc123"},
		{"extra whitespace", "  Bearer \t abc123  ", "abc123"},
		{"empty", "", ""},
		{"scheme only", "Bearer", ""},
		{"scheme with trailing space", "Bearer   ", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"no scheme", "abc123", ""},
		{"three parts", "Bearer abc 123", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseBearerToken(tc.header))
		})
	}
}

func newTestResolver(t *testing.T) (*Resolver, *session.Service, *memstore.Store, *models.Seller) {
	t.Helper()
	mem := memstore.New()
	sessions := session.NewService(mem.Sessions(), session.Config{})
	seller := &models.Seller{
		Email:        "a@b.com",
		BusinessName: "Acme",
		Country:      "PT",
		JoinedAt:     time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, mem.Sellers().Insert(context.Background(), seller))
	return NewResolver(sessions, mem.Sellers()), sessions, mem, seller
}

func TestResolveHappyPath(t *testing.T) {
	resolver, sessions, _, seller := newTestResolver(t)
	ctx := context.Background()

	pair, err := sessions.Create(ctx, seller.ID.Hex())
	require.NoError(t, err)

	ac := resolver.Resolve(ctx, "Bearer "+pair.AccessToken)
	require.False(t, ac.Anonymous())
	assert.Equal(t, seller.ID, ac.Seller.ID)
	assert.Equal(t, seller.ID.Hex(), ac.Session.SellerID)
	assert.Equal(t, pair.AccessToken, ac.Token)
}

func TestResolveCollapsesToAnonymous(t *testing.T) {
	resolver, sessions, mem, seller := newTestResolver(t)
	ctx := context.Background()

	pair, err := sessions.Create(ctx, seller.ID.Hex())
	require.NoError(t, err)

	t.Run("missing header", func(t *testing.T) {
		assert.True(t, resolver.Resolve(ctx, "").Anonymous())
	})
	t.Run("wrong scheme", func(t *testing.T) {
		assert.True(t, resolver.Resolve(ctx, "Basic "+pair.AccessToken).Anonymous())
	})
	t.Run("unknown token", func(t *testing.T) {
		assert.True(t, resolver.Resolve(ctx, "Bearer nope").Anonymous())
	})
	t.Run("revoked session", func(t *testing.T) {
		other, err := sessions.Create(ctx, seller.ID.Hex())
		require.NoError(t, err)
		require.NoError(t, sessions.RevokeByAccessToken(ctx, other.AccessToken))
		assert.True(t, resolver.Resolve(ctx, "Bearer "+other.AccessToken).Anonymous())
	})
	t.Run("soft-deleted seller", func(t *testing.T) {
		require.NoError(t, mem.Sellers().SoftDelete(ctx, seller.ID.Hex(), time.Now()))
		assert.True(t, resolver.Resolve(ctx, "Bearer "+pair.AccessToken).Anonymous())
	})
}

func newAuthRouter(resolver *Resolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", resolver.Auth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"seller": CurrentSeller(c).Email})
	})
	r.GET("/open", resolver.OptionalAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"authenticated": IsAuthenticated(c)})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	resolver, sessions, _, seller := newTestResolver(t)
	router := newAuthRouter(resolver)

	pair, err := sessions.Create(context.Background(), seller.ID.Hex())
	require.NoError(t, err)

	t.Run("rejects anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("accepts valid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "a@b.com")
	})
}

func TestOptionalAuthMiddleware(t *testing.T) {
	resolver, sessions, _, seller := newTestResolver(t)
	router := newAuthRouter(resolver)

	pair, err := sessions.Create(context.Background(), seller.ID.Hex())
	require.NoError(t, err)

	t.Run("anonymous passes through", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/open", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "false")
	})

	t.Run("identity attached when present", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/open", nil)
		req.Header.Set("Authorization", "bearer "+pair.AccessToken)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "true")
	})
}
