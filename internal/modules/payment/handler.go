package payment

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/walpay/core/internal/middleware"
	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/pkg/response"
	"github.com/walpay/core/internal/store"
)

type CreatePaymentDTO struct {
	Name                 string   `json:"name" binding:"required"`
	Image                *string  `json:"image"`
	Description          *string  `json:"description"`
	CustomSuccessMessage string   `json:"customSuccessMessage"`
	RedirectURL          *string  `json:"redirectUrl"`
	PriceFlow            *float64 `json:"priceFlow"`
	PriceUSD             *float64 `json:"priceUSD"`
	Slug                 string   `json:"slug"`
	BlockchainTxID       *string  `json:"blockchainTxId"`
}

type DeactivateDTO struct {
	TxID *string `json:"txId"`
}

type RecordTxDTO struct {
	TxID         string  `json:"txId" binding:"required"`
	Kind         string  `json:"kind" binding:"required"`
	PayerAddress *string `json:"payerAddress"`
}

type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes mounts the seller-facing surface behind auth and the public
// checkout surface (optionally cached) without it.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, publicMW ...gin.HandlerFunc) {
	g := rg.Group("/payments", authMW)
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.deactivate)
	g.POST("/:id/transactions", h.recordTx)
	g.GET("/:id/transactions", h.listPaymentTxs)

	rg.GET("/transactions", authMW, h.listTxs)

	pub := rg.Group("/public", publicMW...)
	pub.GET("/payments/:slug", h.getPublic)
	pub.POST("/payments/:id/transactions", h.recordPublicTx)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreatePaymentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	acct := middleware.CurrentSeller(c)
	p, err := h.svc.Create(c.Request.Context(), acct.ID.Hex(), CreateInput{
		Name:                 dto.Name,
		Image:                dto.Image,
		Description:          dto.Description,
		CustomSuccessMessage: dto.CustomSuccessMessage,
		RedirectURL:          dto.RedirectURL,
		PriceFlow:            dto.PriceFlow,
		PriceUSD:             dto.PriceUSD,
		Slug:                 dto.Slug,
		BlockchainTxID:       dto.BlockchainTxID,
		SellerAddress:        acct.Address,
	})
	if err != nil {
		h.mapCreateError(c, err)
		return
	}
	response.Created(c, gin.H{"payment": p})
}

func (h *Handler) mapCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPriceRequired), errors.Is(err, ErrInvalidSlug), errors.Is(err, ErrRateNotConfigured):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrSlugTaken):
		response.Conflict(c, "payment link slug already in use")
	default:
		h.log.Error("payment create", zap.Error(err))
		response.InternalError(c)
	}
}

func (h *Handler) list(c *gin.Context) {
	acct := middleware.CurrentSeller(c)
	limit, offset := pageParams(c, 20)
	items, err := h.svc.List(c.Request.Context(), acct.ID.Hex(), limit, offset)
	if err != nil {
		h.log.Error("payment list", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{
		"items":      items,
		"pagination": gin.H{"limit": limit, "offset": offset, "count": len(items)},
	})
}

func (h *Handler) get(c *gin.Context) {
	acct := middleware.CurrentSeller(c)
	p, err := h.svc.Get(c.Request.Context(), acct.ID.Hex(), c.Param("id"))
	if err != nil {
		h.notFoundOrFail(c, "payment get", err)
		return
	}
	response.OK(c, gin.H{"payment": p})
}

func (h *Handler) deactivate(c *gin.Context) {
	var dto DeactivateDTO
	// The body is optional: a missing or empty body means no chain tx.
	_ = c.ShouldBindJSON(&dto)

	acct := middleware.CurrentSeller(c)
	p, err := h.svc.Deactivate(c.Request.Context(), acct.ID.Hex(), c.Param("id"), dto.TxID, acct.Address)
	if err != nil {
		h.notFoundOrFail(c, "payment deactivate", err)
		return
	}
	response.OK(c, gin.H{"payment": p})
}

func (h *Handler) recordTx(c *gin.Context) {
	var dto RecordTxDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	acct := middleware.CurrentSeller(c)
	t, err := h.svc.RecordTransaction(c.Request.Context(), acct.ID.Hex(), RecordTxInput{
		PaymentID:    c.Param("id"),
		TxID:         dto.TxID,
		Kind:         dto.Kind,
		PayerAddress: dto.PayerAddress,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTxKind) {
			response.BadRequest(c, err.Error())
			return
		}
		h.notFoundOrFail(c, "record tx", err)
		return
	}
	response.Created(c, gin.H{"transaction": t})
}

func (h *Handler) listPaymentTxs(c *gin.Context) {
	acct := middleware.CurrentSeller(c)
	items, err := h.svc.ListPaymentTransactions(c.Request.Context(), acct.ID.Hex(), c.Param("id"))
	if err != nil {
		h.notFoundOrFail(c, "payment txs", err)
		return
	}
	response.OK(c, gin.H{"items": items})
}

func (h *Handler) listTxs(c *gin.Context) {
	acct := middleware.CurrentSeller(c)
	limit, offset := pageParams(c, 25)
	items, err := h.svc.ListTransactions(c.Request.Context(), acct.ID.Hex(), limit, offset)
	if err != nil {
		h.log.Error("tx list", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{
		"items":      items,
		"pagination": gin.H{"limit": limit, "offset": offset, "count": len(items)},
	})
}

func (h *Handler) getPublic(c *gin.Context) {
	p, err := h.svc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.notFoundOrFail(c, "public payment", err)
		return
	}
	response.OK(c, gin.H{"payment": publicView(p)})
}

func (h *Handler) recordPublicTx(c *gin.Context) {
	var dto RecordTxDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	t, err := h.svc.RecordPublicTransaction(c.Request.Context(), RecordTxInput{
		PaymentID:    c.Param("id"),
		TxID:         dto.TxID,
		Kind:         dto.Kind,
		PayerAddress: dto.PayerAddress,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTxKind) {
			response.BadRequest(c, err.Error())
			return
		}
		h.notFoundOrFail(c, "public record tx", err)
		return
	}
	response.Created(c, gin.H{"transaction": t})
}

// publicView strips owner-only fields from the checkout page payload.
func publicView(p *models.Payment) gin.H {
	return gin.H{
		"name":                   p.Name,
		"image":                  p.Image,
		"description":            p.Description,
		"custom_success_message": p.CustomSuccessMessage,
		"redirect_url":           p.RedirectURL,
		"price_flow":             p.PriceFlow,
		"fee_flow":               p.FeeFlow,
		"total_flow":             p.TotalFlow,
		"payment_link":           p.PaymentLink,
		"status":                 p.Status,
	}
}

func (h *Handler) notFoundOrFail(c *gin.Context, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		response.NotFound(c, "payment not found")
		return
	}
	h.log.Error(op, zap.Error(err))
	response.InternalError(c)
}

func pageParams(c *gin.Context, defLimit int64) (int64, int64) {
	limit := defLimit
	offset := int64(0)
	if v, err := strconv.ParseInt(c.Query("limit"), 10, 64); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.ParseInt(c.Query("offset"), 10, 64); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
