package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/store"
)

// Sellers returns the seller collection view of the store.
func (s *Store) Sellers() store.Sellers { return (*sellerView)(s) }

type sellerView Store

func (v *sellerView) Insert(ctx context.Context, seller *models.Seller) error {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	seller.Email = strings.ToLower(seller.Email)
	for _, existing := range s.sellers {
		if existing.Email == seller.Email {
			return store.ErrDuplicate
		}
	}
	seller.ID = newID()
	clone := *seller
	s.sellers = append(s.sellers, &clone)
	return nil
}

func (v *sellerView) FindByEmail(ctx context.Context, email string) (*models.Seller, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(email)
	for _, seller := range s.sellers {
		if seller.Email == email && seller.DeletedAt == nil {
			clone := *seller
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v *sellerView) FindByID(ctx context.Context, id string) (*models.Seller, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	seller := s.findSellerLocked(id)
	if seller == nil {
		return nil, store.ErrNotFound
	}
	clone := *seller
	return &clone, nil
}

func (v *sellerView) MarkVerified(ctx context.Context, id string, at time.Time) (*models.Seller, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	seller := s.findSellerLocked(id)
	if seller == nil {
		return nil, store.ErrNotFound
	}
	verified := at
	seller.VerifiedAt = &verified
	seller.UpdatedAt = at
	clone := *seller
	return &clone, nil
}

func (v *sellerView) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	seller := s.findSellerLocked(id)
	if seller == nil {
		return store.ErrNotFound
	}
	seller.PasswordHash = passwordHash
	seller.UpdatedAt = at
	return nil
}

func (v *sellerView) UpdateProfile(ctx context.Context, id string, patch store.SellerPatch, at time.Time) (*models.Seller, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	seller := s.findSellerLocked(id)
	if seller == nil {
		return nil, store.ErrNotFound
	}
	if !patch.Empty() {
		if patch.BusinessName != nil {
			seller.BusinessName = *patch.BusinessName
		}
		if patch.Country != nil {
			seller.Country = *patch.Country
		}
		if patch.Address != nil {
			addr := *patch.Address
			seller.Address = &addr
		}
		seller.UpdatedAt = at
	}
	clone := *seller
	return &clone, nil
}

func (v *sellerView) SoftDelete(ctx context.Context, id string, at time.Time) error {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	seller := s.findSellerLocked(id)
	if seller == nil {
		return store.ErrNotFound
	}
	deleted := at
	seller.DeletedAt = &deleted
	seller.UpdatedAt = at
	return nil
}

func (s *Store) findSellerLocked(id string) *models.Seller {
	for _, seller := range s.sellers {
		if seller.ID.Hex() == id && seller.DeletedAt == nil {
			return seller
		}
	}
	return nil
}
