// Package seller owns the merchant account lifecycle: creation at signup,
// email verification, profile and password updates, and cascading deletion.
package seller

import (
	"context"
	"strings"
	"time"

	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/modules/auth/session"
	"github.com/walpay/core/internal/pkg/credential"
	"github.com/walpay/core/internal/store"
)

// CreateInput carries everything needed to open an unverified account.
type CreateInput struct {
	Email        string
	Password     string
	BusinessName string
	Country      string
	Address      *string
}

type Service struct {
	sellers        store.Sellers
	payments       store.Payments
	transactions   store.Transactions
	sessions       *session.Service
	hasher         *credential.Hasher
	defaultCountry string
}

func NewService(
	sellers store.Sellers,
	payments store.Payments,
	transactions store.Transactions,
	sessions *session.Service,
	hasher *credential.Hasher,
	defaultCountry string,
) *Service {
	return &Service{
		sellers:        sellers,
		payments:       payments,
		transactions:   transactions,
		sessions:       sessions,
		hasher:         hasher,
		defaultCountry: defaultCountry,
	}
}

// Create opens an unverified account. The email is lowercased before the
// uniqueness check; store.ErrDuplicate surfaces untouched.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Seller, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	country := in.Country
	if country == "" {
		country = s.defaultCountry
	}

	now := time.Now()
	seller := &models.Seller{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		BusinessName: in.BusinessName,
		Country:      country,
		Address:      in.Address,
		JoinedAt:     now,
		UpdatedAt:    now,
	}
	if err := s.sellers.Insert(ctx, seller); err != nil {
		return nil, err
	}
	return seller, nil
}

// FindByEmail looks up a live (non-deleted) seller.
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.Seller, error) {
	return s.sellers.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// FindByID looks up a live (non-deleted) seller.
func (s *Service) FindByID(ctx context.Context, id string) (*models.Seller, error) {
	return s.sellers.FindByID(ctx, id)
}

// VerifyPassword checks a plaintext password against the stored credential.
func (s *Service) VerifyPassword(seller *models.Seller, password string) bool {
	return credential.Verify(password, seller.PasswordHash)
}

// MarkVerified records first OTP-proven email ownership.
func (s *Service) MarkVerified(ctx context.Context, id string) (*models.Seller, error) {
	return s.sellers.MarkVerified(ctx, id, time.Now())
}

// UpdatePassword replaces the stored credential with a fresh hash.
func (s *Service) UpdatePassword(ctx context.Context, id, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.sellers.UpdatePassword(ctx, id, hash, time.Now())
}

// UpdateProfile applies an explicit optional-field patch. A nil field is
// absent; an empty patch returns the current record unchanged.
func (s *Service) UpdateProfile(ctx context.Context, id string, patch store.SellerPatch) (*models.Seller, error) {
	if patch.Empty() {
		return s.sellers.FindByID(ctx, id)
	}
	return s.sellers.UpdateProfile(ctx, id, patch, time.Now())
}

// Delete soft-deletes the account and cascades: payments and transactions
// are marked deleted, every session is revoked. The seller record itself is
// never physically removed.
func (s *Service) Delete(ctx context.Context, id string) error {
	now := time.Now()
	if err := s.sellers.SoftDelete(ctx, id, now); err != nil {
		return err
	}
	if _, err := s.payments.SoftDeleteForSeller(ctx, id, now); err != nil {
		return err
	}
	if _, err := s.transactions.SoftDeleteForSeller(ctx, id, now); err != nil {
		return err
	}
	_, err := s.sessions.RevokeAllForSeller(ctx, id)
	return err
}
