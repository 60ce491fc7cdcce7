package seller

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/walpay/core/internal/middleware"
	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/pkg/response"
	"github.com/walpay/core/internal/store"
)

type UpdateProfileDTO struct {
	BusinessName *string `json:"businessName"`
	Country      *string `json:"country"`
	Address      *string `json:"address"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword"     binding:"required,min=8"`
}

type profileResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	BusinessName string     `json:"business_name"`
	Country      string     `json:"country"`
	Address      *string    `json:"address"`
	JoinedAt     time.Time  `json:"joined_at"`
	VerifiedAt   *time.Time `json:"verified_at"`
}

func toProfileResponse(s *models.Seller) profileResponse {
	return profileResponse{
		ID:           s.ID.Hex(),
		Email:        s.Email,
		BusinessName: s.BusinessName,
		Country:      s.Country,
		Address:      s.Address,
		JoinedAt:     s.JoinedAt,
		VerifiedAt:   s.VerifiedAt,
	}
}

type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/profile", authMW)
	g.GET("", h.get)
	g.PATCH("", h.update)
	g.PATCH("/password", h.changePassword)
	g.DELETE("", h.delete)
}

func (h *Handler) get(c *gin.Context) {
	response.OK(c, gin.H{"profile": toProfileResponse(middleware.CurrentSeller(c))})
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	acct := middleware.CurrentSeller(c)
	updated, err := h.svc.UpdateProfile(c.Request.Context(), acct.ID.Hex(), store.SellerPatch{
		BusinessName: dto.BusinessName,
		Country:      dto.Country,
		Address:      dto.Address,
	})
	if err != nil {
		h.log.Error("profile update", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"profile": toProfileResponse(updated)})
}

func (h *Handler) changePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	acct := middleware.CurrentSeller(c)
	if !h.svc.VerifyPassword(acct, dto.CurrentPassword) {
		response.Forbidden(c, "current password is incorrect")
		return
	}
	if err := h.svc.UpdatePassword(c.Request.Context(), acct.ID.Hex(), dto.NewPassword); err != nil {
		h.log.Error("password update", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"message": "Password updated"})
}

func (h *Handler) delete(c *gin.Context) {
	acct := middleware.CurrentSeller(c)
	if err := h.svc.Delete(c.Request.Context(), acct.ID.Hex()); err != nil {
		h.log.Error("profile delete", zap.Error(err))
		response.InternalError(c)
		return
	}
	h.log.Info("seller deleted", zap.String("seller", acct.ID.Hex()))
	response.OK(c, gin.H{"message": "Profile deleted"})
}
