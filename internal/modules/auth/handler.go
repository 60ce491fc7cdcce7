// Package auth exposes the HTTP surface for signup, OTP verification,
// password and OTP login, password reset, and the token lifecycle.
package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/walpay/core/internal/middleware"
	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/modules/auth/otp"
	"github.com/walpay/core/internal/modules/auth/session"
	"github.com/walpay/core/internal/modules/seller"
	"github.com/walpay/core/internal/pkg/response"
	"github.com/walpay/core/internal/store"
)

type Handler struct {
	sellers  *seller.Service
	otps     *otp.Service
	sessions *session.Service
	log      *zap.Logger
}

func NewHandler(sellers *seller.Service, otps *otp.Service, sessions *session.Service, log *zap.Logger) *Handler {
	return &Handler{sellers: sellers, otps: otps, sessions: sessions, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth")
	g.POST("/signup", h.signup)
	g.POST("/signup/verify", h.signupVerify)
	g.POST("/otp/resend", h.resendOtp)
	g.POST("/login", h.login)
	g.POST("/login/otp/request", h.loginOtpRequest)
	g.POST("/login/otp/verify", h.loginOtpVerify)
	g.POST("/password/request", h.passwordRequest)
	g.POST("/password/reset", h.passwordReset)
	g.POST("/refresh", h.refresh)
	g.POST("/logout", authMW, h.logout)
}

func (h *Handler) signup(c *gin.Context) {
	var dto SignupDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	existing, err := h.sellers.FindByEmail(ctx, dto.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(c, "signup lookup", err)
		return
	}
	if existing != nil && existing.Verified() {
		response.Conflict(c, "seller already exists")
		return
	}

	acct := existing
	if acct == nil {
		acct, err = h.sellers.Create(ctx, seller.CreateInput{
			Email:        dto.Email,
			Password:     dto.Password,
			BusinessName: dto.BusinessName,
			Country:      dto.Country,
			Address:      dto.Address,
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				response.Conflict(c, "seller already exists")
				return
			}
			h.fail(c, "signup create", err)
			return
		}
	}

	expiresAt, err := h.otps.Issue(ctx, acct.Email, acct.ID.Hex(), models.OtpPurposeSignup)
	if err != nil {
		h.issueFail(c, err)
		return
	}
	h.log.Info("signup otp issued", zap.String("email", acct.Email))
	response.Created(c, otpIssuedResponse{Message: "Signup initiated. OTP sent.", OtpExpiresAt: expiresAt})
}

func (h *Handler) signupVerify(c *gin.Context) {
	var dto VerifyOtpDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	acct, ok := h.lookupSeller(c, dto.Email)
	if !ok {
		return
	}

	res, err := h.otps.Verify(ctx, acct.Email, dto.Code, models.OtpPurposeSignup)
	if err != nil {
		h.fail(c, "signup verify", err)
		return
	}
	if !res.Valid {
		h.rejectOtp(c, acct.Email, res.Reason)
		return
	}

	if !acct.Verified() {
		updated, err := h.sellers.MarkVerified(ctx, acct.ID.Hex())
		if err != nil {
			h.fail(c, "mark verified", err)
			return
		}
		acct = updated
	}

	pair, err := h.sessions.Create(ctx, acct.ID.Hex())
	if err != nil {
		h.fail(c, "signup session", err)
		return
	}
	response.OK(c, loginResponse{Message: "Signup verified", Seller: toSellerResponse(acct), Tokens: pair})
}

func (h *Handler) resendOtp(c *gin.Context) {
	var dto ResendOtpDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	purpose, ok := models.ParseOtpPurpose(dto.Purpose)
	if !ok {
		response.BadRequest(c, "invalid otp purpose")
		return
	}

	acct, found := h.lookupSeller(c, dto.Email)
	if !found {
		return
	}

	expiresAt, err := h.otps.Issue(c.Request.Context(), acct.Email, acct.ID.Hex(), purpose)
	if err != nil {
		h.issueFail(c, err)
		return
	}
	response.OK(c, otpIssuedResponse{Message: "OTP resent", OtpExpiresAt: expiresAt})
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	// Unknown email and wrong password are indistinguishable on purpose.
	acct, err := h.sellers.FindByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Unauthorized(c)
			return
		}
		h.fail(c, "login lookup", err)
		return
	}
	if !h.sellers.VerifyPassword(acct, dto.Password) {
		response.Unauthorized(c)
		return
	}
	if !acct.Verified() {
		response.Forbidden(c, "seller email not verified")
		return
	}

	pair, err := h.sessions.Create(ctx, acct.ID.Hex())
	if err != nil {
		h.fail(c, "login session", err)
		return
	}
	response.OK(c, loginResponse{Message: "Login successful", Seller: toSellerResponse(acct), Tokens: pair})
}

func (h *Handler) loginOtpRequest(c *gin.Context) {
	var dto RequestOtpDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	acct, ok := h.lookupSeller(c, dto.Email)
	if !ok {
		return
	}

	expiresAt, err := h.otps.Issue(c.Request.Context(), acct.Email, acct.ID.Hex(), models.OtpPurposeLogin)
	if err != nil {
		h.issueFail(c, err)
		return
	}
	response.OK(c, otpIssuedResponse{Message: "Login OTP sent", OtpExpiresAt: expiresAt})
}

func (h *Handler) loginOtpVerify(c *gin.Context) {
	var dto VerifyOtpDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	acct, ok := h.lookupSeller(c, dto.Email)
	if !ok {
		return
	}

	res, err := h.otps.Verify(ctx, acct.Email, dto.Code, models.OtpPurposeLogin)
	if err != nil {
		h.fail(c, "login otp verify", err)
		return
	}
	if !res.Valid {
		h.rejectOtp(c, acct.Email, res.Reason)
		return
	}

	pair, err := h.sessions.Create(ctx, acct.ID.Hex())
	if err != nil {
		h.fail(c, "otp login session", err)
		return
	}
	response.OK(c, loginResponse{Message: "Login successful", Seller: toSellerResponse(acct), Tokens: pair})
}

func (h *Handler) passwordRequest(c *gin.Context) {
	var dto RequestOtpDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	acct, ok := h.lookupSeller(c, dto.Email)
	if !ok {
		return
	}

	expiresAt, err := h.otps.Issue(c.Request.Context(), acct.Email, acct.ID.Hex(), models.OtpPurposeReset)
	if err != nil {
		h.issueFail(c, err)
		return
	}
	response.OK(c, otpIssuedResponse{Message: "Password reset OTP sent", OtpExpiresAt: expiresAt})
}

func (h *Handler) passwordReset(c *gin.Context) {
	var dto ResetPasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	acct, ok := h.lookupSeller(c, dto.Email)
	if !ok {
		return
	}

	res, err := h.otps.Verify(ctx, acct.Email, dto.Code, models.OtpPurposeReset)
	if err != nil {
		h.fail(c, "reset verify", err)
		return
	}
	if !res.Valid {
		h.rejectOtp(c, acct.Email, res.Reason)
		return
	}

	if err := h.sellers.UpdatePassword(ctx, acct.ID.Hex(), dto.NewPassword); err != nil {
		h.fail(c, "reset password", err)
		return
	}
	// A reset proves the old credential may be compromised; kill every
	// outstanding session.
	if _, err := h.sessions.RevokeAllForSeller(ctx, acct.ID.Hex()); err != nil {
		h.fail(c, "reset revoke", err)
		return
	}
	response.OK(c, gin.H{"message": "Password reset successful"})
}

func (h *Handler) refresh(c *gin.Context) {
	var dto RefreshDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	rotated, err := h.sessions.Refresh(c.Request.Context(), dto.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			response.Unauthorized(c)
			return
		}
		h.fail(c, "refresh", err)
		return
	}
	response.OK(c, refreshResponse{Message: "Token refreshed", Tokens: &rotated.TokenPair})
}

func (h *Handler) logout(c *gin.Context) {
	token := middleware.CurrentToken(c)
	if err := h.sessions.RevokeByAccessToken(c.Request.Context(), token); err != nil {
		h.fail(c, "logout", err)
		return
	}
	response.OK(c, gin.H{"message": "Logged out"})
}

// lookupSeller resolves an email to a live seller, writing the error
// response itself when it fails.
func (h *Handler) lookupSeller(c *gin.Context, email string) (*models.Seller, bool) {
	acct, err := h.sellers.FindByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.NotFound(c, "seller not found")
		} else {
			h.fail(c, "seller lookup", err)
		}
		return nil, false
	}
	return acct, true
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	h.log.Error(op, zap.Error(err))
	response.InternalError(c)
}

func (h *Handler) issueFail(c *gin.Context, err error) {
	if errors.Is(err, otp.ErrIssuanceFailed) {
		h.log.Warn("otp delivery failed", zap.Error(err))
		response.BadGateway(c, "could not deliver verification code")
		return
	}
	h.fail(c, "otp issue", err)
}

// rejectOtp maps any failed verification to a single client-visible message;
// the precise reason only goes to the log.
func (h *Handler) rejectOtp(c *gin.Context, email string, reason otp.Reason) {
	h.log.Info("otp rejected", zap.String("email", email), zap.String("reason", string(reason)))
	response.BadRequest(c, "invalid or expired code")
}
