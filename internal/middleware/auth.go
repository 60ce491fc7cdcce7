package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/pkg/response"
	"github.com/walpay/core/internal/store"
)

const (
	ContextKeySeller  = "auth_seller"
	ContextKeySession = "auth_session"
	ContextKeyToken   = "auth_token"
)

// Authenticator validates a raw access token against live session state.
// A (nil, nil) return means the token did not resolve to an active session.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.Session, error)
}

// AuthContext is the identity attached to a request. The zero value is the
// anonymous context.
type AuthContext struct {
	Seller  *models.Seller
	Session *models.Session
	Token   string
}

// Anonymous reports whether no authenticated seller is attached.
func (a AuthContext) Anonymous() bool { return a.Seller == nil }

// Resolver maps Authorization header values to seller identities.
type Resolver struct {
	sessions Authenticator
	sellers  store.Sellers
}

func NewResolver(sessions Authenticator, sellers store.Sellers) *Resolver {
	return &Resolver{sessions: sessions, sellers: sellers}
}

// Resolve turns a raw Authorization header value into an AuthContext. Any
// failure at any stage (missing header, wrong scheme, dead session, deleted
// seller) collapses to the anonymous context; it never returns an error to
// the HTTP layer.
func (r *Resolver) Resolve(ctx context.Context, header string) AuthContext {
	token := ParseBearerToken(header)
	if token == "" {
		return AuthContext{}
	}
	sess, err := r.sessions.Authenticate(ctx, token)
	if err != nil || sess == nil {
		return AuthContext{}
	}
	seller, err := r.sellers.FindByID(ctx, sess.SellerID)
	if err != nil || seller == nil || seller.DeletedAt != nil {
		return AuthContext{}
	}
	return AuthContext{Seller: seller, Session: sess, Token: token}
}

// ParseBearerToken extracts the token from a bearer-scheme header value.
// The scheme match is case-insensitive and any run of whitespace separates
// scheme from token. Returns "" for anything that is not a two-part bearer
// header with a non-empty token.
func ParseBearerToken(header string) string {
	fields := strings.Fields(header)
	if len(fields) != 2 {
		return ""
	}
	if !strings.EqualFold(fields[0], "bearer") {
		return ""
	}
	return fields[1]
}

// Auth returns a middleware that rejects anonymous requests with a uniform 401.
func (r *Resolver) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ac := r.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if ac.Anonymous() {
			response.Unauthorized(c)
			return
		}
		setAuthContext(c, ac)
		c.Next()
	}
}

// OptionalAuth attaches the seller identity when a valid token is present,
// but never blocks the request.
func (r *Resolver) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ac := r.Resolve(c.Request.Context(), c.GetHeader("Authorization")); !ac.Anonymous() {
			setAuthContext(c, ac)
		}
		c.Next()
	}
}

func setAuthContext(c *gin.Context, ac AuthContext) {
	c.Set(ContextKeySeller, ac.Seller)
	c.Set(ContextKeySession, ac.Session)
	c.Set(ContextKeyToken, ac.Token)
}

// CurrentSeller extracts the authenticated seller from context, or nil.
func CurrentSeller(c *gin.Context) *models.Seller {
	v, _ := c.Get(ContextKeySeller)
	seller, _ := v.(*models.Seller)
	return seller
}

// CurrentSession extracts the authenticated session from context, or nil.
func CurrentSession(c *gin.Context) *models.Session {
	v, _ := c.Get(ContextKeySession)
	sess, _ := v.(*models.Session)
	return sess
}

// CurrentToken extracts the presented access token from context.
func CurrentToken(c *gin.Context) string {
	v, _ := c.Get(ContextKeyToken)
	token, _ := v.(string)
	return token
}

// IsAuthenticated returns true if the request carries a valid identity.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentSeller(c) != nil
}
