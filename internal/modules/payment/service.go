// Package payment manages merchant payment links and their local mirror of
// Flow transactions.
package payment

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/modules/flow"
	"github.com/walpay/core/internal/pkg/credential"
	"github.com/walpay/core/internal/store"
)

var (
	ErrPriceRequired     = errors.New("payment: priceFlow or priceUSD required")
	ErrRateNotConfigured = errors.New("payment: flow/usd rate not configured")
	ErrInvalidSlug       = errors.New("payment: invalid slug")
	ErrSlugTaken         = errors.New("payment: slug already in use")
	ErrSlugExhausted     = errors.New("payment: unable to generate unique slug")
	ErrInvalidTxKind     = errors.New("payment: invalid transaction kind")
)

// Config holds the pricing knobs.
type Config struct {
	PlatformFeePercent float64
	FlowUSDRate        float64 // USD per FLOW; 0 = unconfigured
}

// CreateInput carries a new payment link. Price may be given in FLOW
// directly or in USD for conversion at the configured rate.
type CreateInput struct {
	Name                 string
	Image                *string
	Description          *string
	CustomSuccessMessage string
	RedirectURL          *string
	PriceFlow            *float64
	PriceUSD             *float64
	Slug                 string
	BlockchainTxID       *string
	SellerAddress        *string
}

// RecordTxInput mirrors one on-chain transaction against a payment.
type RecordTxInput struct {
	PaymentID    string
	TxID         string
	Kind         string
	PayerAddress *string
}

// ReceiptNotifier emails a seller when one of their links receives a payment.
type ReceiptNotifier interface {
	SendPaymentReceipt(email, paymentName string, amountFlow float64, txID string) error
}

type Service struct {
	payments     store.Payments
	transactions store.Transactions
	flow         flow.Submitter
	cfg          Config
	log          *zap.Logger

	receipts ReceiptNotifier
	sellers  store.Sellers
}

func NewService(payments store.Payments, transactions store.Transactions, submitter flow.Submitter, cfg Config, log *zap.Logger) *Service {
	return &Service{payments: payments, transactions: transactions, flow: submitter, cfg: cfg, log: log}
}

// SetReceiptNotifier turns on receipt emails for recorded payments. Without
// it, recording stays silent.
func (s *Service) SetReceiptNotifier(n ReceiptNotifier, sellers store.Sellers) {
	s.receipts = n
	s.sellers = sellers
}

// Create prices and persists a new active payment link, then reports the
// client-signed creation transaction to the access node when one is given.
func (s *Service) Create(ctx context.Context, sellerID string, in CreateInput) (*models.Payment, error) {
	amount, err := s.resolveAmount(in)
	if err != nil {
		return nil, err
	}
	fee := round6(amount * s.cfg.PlatformFeePercent / 100)
	total := round6(amount + fee)

	slug, err := s.resolveSlug(ctx, in.Slug)
	if err != nil {
		return nil, err
	}

	msg := in.CustomSuccessMessage
	if msg == "" {
		msg = "Thank you for your purchase!"
	}

	now := time.Now()
	p := &models.Payment{
		SellerID:             sellerID,
		Name:                 in.Name,
		Image:                in.Image,
		Description:          in.Description,
		CustomSuccessMessage: msg,
		RedirectURL:          in.RedirectURL,
		PriceFlow:            amount,
		PriceUSD:             in.PriceUSD,
		FeeFlow:              fee,
		TotalFlow:            total,
		PaymentLink:          slug,
		Status:               models.PaymentActive,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.payments.Insert(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}

	if in.BlockchainTxID != nil && *in.BlockchainTxID != "" {
		txID, err := s.flow.SubmitCreatePayment(ctx, flow.TxPayload{
			TxID:          *in.BlockchainTxID,
			SellerAddress: in.SellerAddress,
			PaymentSlug:   slug,
			AmountFlow:    total,
		})
		if err != nil {
			return nil, err
		}
		if err := s.payments.SetCreateTx(ctx, p.ID.Hex(), txID, time.Now()); err != nil {
			return nil, err
		}
		p.BlockchainCreateTx = &txID
	}
	return p, nil
}

// Get returns a payment only to its owner.
func (s *Service) Get(ctx context.Context, sellerID, id string) (*models.Payment, error) {
	p, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.SellerID != sellerID {
		return nil, store.ErrNotFound
	}
	return p, nil
}

// GetBySlug resolves a public checkout page: active links only.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Payment, error) {
	return s.payments.FindActiveBySlug(ctx, slug)
}

func (s *Service) List(ctx context.Context, sellerID string, limit, offset int64) ([]models.Payment, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.payments.ListForSeller(ctx, sellerID, limit, offset)
}

// Deactivate turns a link off permanently, submitting the deactivation
// transaction first when the caller signed one.
func (s *Service) Deactivate(ctx context.Context, sellerID, id string, txID, sellerAddress *string) (*models.Payment, error) {
	p, err := s.Get(ctx, sellerID, id)
	if err != nil {
		return nil, err
	}

	var chainTx *string
	if txID != nil && *txID != "" {
		submitted, err := s.flow.SubmitDeactivatePayment(ctx, flow.TxPayload{
			TxID:          *txID,
			SellerAddress: sellerAddress,
			PaymentSlug:   p.PaymentLink,
		})
		if err != nil {
			return nil, err
		}
		chainTx = &submitted
	}
	return s.payments.Deactivate(ctx, id, chainTx, time.Now())
}

// RecordTransaction mirrors an on-chain event against a payment the seller
// owns. Payment-kind records are also reported to the access node.
func (s *Service) RecordTransaction(ctx context.Context, sellerID string, in RecordTxInput) (*models.Transaction, error) {
	p, err := s.Get(ctx, sellerID, in.PaymentID)
	if err != nil {
		return nil, err
	}
	return s.record(ctx, p, in)
}

// RecordPublicTransaction is the unauthenticated variant used by checkout
// pages: the owning seller comes from the payment itself.
func (s *Service) RecordPublicTransaction(ctx context.Context, in RecordTxInput) (*models.Transaction, error) {
	p, err := s.payments.FindByID(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}
	return s.record(ctx, p, in)
}

func (s *Service) record(ctx context.Context, p *models.Payment, in RecordTxInput) (*models.Transaction, error) {
	kind, ok := parseTxKind(in.Kind)
	if !ok {
		return nil, ErrInvalidTxKind
	}

	name := p.Name
	slug := p.PaymentLink
	t := &models.Transaction{
		SellerID:     p.SellerID,
		PaymentID:    p.ID.Hex(),
		TxID:         in.TxID,
		Kind:         kind,
		PayerAddress: in.PayerAddress,
		PaymentName:  &name,
		PaymentSlug:  &slug,
		CreatedAt:    time.Now(),
	}
	if err := s.transactions.Insert(ctx, t); err != nil {
		return nil, err
	}

	if kind == models.TxPayment {
		if _, err := s.flow.SubmitPayment(ctx, flow.TxPayload{
			TxID:         in.TxID,
			PayerAddress: in.PayerAddress,
			PaymentSlug:  slug,
			AmountFlow:   p.TotalFlow,
		}); err != nil {
			// The mirror record stands; chain reporting is best effort.
			s.log.Warn("flow payment submit failed", zap.Error(err), zap.String("tx_id", in.TxID))
		}
		s.sendReceipt(ctx, p, in.TxID)
	}
	return t, nil
}

// sendReceipt is best effort; a mail outage must not fail a checkout.
func (s *Service) sendReceipt(ctx context.Context, p *models.Payment, txID string) {
	if s.receipts == nil || s.sellers == nil {
		return
	}
	owner, err := s.sellers.FindByID(ctx, p.SellerID)
	if err != nil {
		s.log.Warn("receipt seller lookup failed", zap.Error(err), zap.String("payment_id", p.ID.Hex()))
		return
	}
	if err := s.receipts.SendPaymentReceipt(owner.Email, p.Name, p.TotalFlow, txID); err != nil {
		s.log.Warn("payment receipt send failed", zap.Error(err), zap.String("tx_id", txID))
	}
}

func (s *Service) ListTransactions(ctx context.Context, sellerID string, limit, offset int64) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 25
	}
	return s.transactions.ListForSeller(ctx, sellerID, limit, offset)
}

func (s *Service) ListPaymentTransactions(ctx context.Context, sellerID, paymentID string) ([]models.Transaction, error) {
	if _, err := s.Get(ctx, sellerID, paymentID); err != nil {
		return nil, err
	}
	return s.transactions.ListForPayment(ctx, paymentID)
}

func (s *Service) resolveAmount(in CreateInput) (float64, error) {
	if in.PriceFlow != nil && *in.PriceFlow > 0 {
		return round6(*in.PriceFlow), nil
	}
	if in.PriceUSD != nil && *in.PriceUSD > 0 {
		if s.cfg.FlowUSDRate <= 0 {
			return 0, ErrRateNotConfigured
		}
		return round6(*in.PriceUSD / s.cfg.FlowUSDRate), nil
	}
	return 0, ErrPriceRequired
}

const slugAttempts = 5

func (s *Service) resolveSlug(ctx context.Context, provided string) (string, error) {
	if provided != "" {
		slug := NormalizeSlug(provided)
		if slug == "" {
			return "", ErrInvalidSlug
		}
		taken, err := s.payments.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if taken {
			return "", ErrSlugTaken
		}
		return slug, nil
	}

	for i := 0; i < slugAttempts; i++ {
		candidate, err := credential.RandomToken(12)
		if err != nil {
			return "", err
		}
		candidate = strings.ToLower(candidate[:16])
		taken, err := s.payments.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrSlugExhausted
}

var slugJunk = regexp.MustCompile(`[^a-z0-9-]`)
var slugDashes = regexp.MustCompile(`-+`)

// NormalizeSlug lowercases, collapses anything unusual to single dashes,
// trims edge dashes, and caps the length at 64.
func NormalizeSlug(raw string) string {
	slug := strings.ToLower(strings.TrimSpace(raw))
	slug = slugJunk.ReplaceAllString(slug, "-")
	slug = slugDashes.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 64 {
		slug = slug[:64]
	}
	return slug
}

func parseTxKind(raw string) (models.TransactionKind, bool) {
	switch models.TransactionKind(strings.ToLower(strings.TrimSpace(raw))) {
	case models.TxCreatePayment:
		return models.TxCreatePayment, true
	case models.TxDeactivatePayment:
		return models.TxDeactivatePayment, true
	case models.TxPayment:
		return models.TxPayment, true
	}
	return "", false
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
