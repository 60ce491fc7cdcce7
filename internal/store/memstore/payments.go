package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/store"
)

// Payments returns the payment collection view of the store.
func (s *Store) Payments() store.Payments { return (*paymentView)(s) }

type paymentView Store

func (v *paymentView) Insert(ctx context.Context, p *models.Payment) error {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.payments {
		if existing.PaymentLink == p.PaymentLink {
			return store.ErrDuplicate
		}
	}
	p.ID = newID()
	clone := *p
	s.payments = append(s.payments, &clone)
	return nil
}

func (v *paymentView) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findPaymentLocked(id)
	if p == nil {
		return nil, store.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (v *paymentView) FindActiveBySlug(ctx context.Context, slug string) (*models.Payment, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments {
		if p.PaymentLink == slug && p.Status == models.PaymentActive && p.DeletedAt == nil {
			clone := *p
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v *paymentView) SlugExists(ctx context.Context, slug string) (bool, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments {
		if p.PaymentLink == slug {
			return true, nil
		}
	}
	return false, nil
}

func (v *paymentView) SetCreateTx(ctx context.Context, id, txID string, at time.Time) error {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findPaymentLocked(id)
	if p == nil {
		return store.ErrNotFound
	}
	tx := txID
	p.BlockchainCreateTx = &tx
	p.UpdatedAt = at
	return nil
}

func (v *paymentView) Deactivate(ctx context.Context, id string, txID *string, at time.Time) (*models.Payment, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findPaymentLocked(id)
	if p == nil {
		return nil, store.ErrNotFound
	}
	p.Status = models.PaymentInactive
	p.BlockchainDeactivateTx = txID
	deactivated := at
	p.DeactivatedAt = &deactivated
	p.UpdatedAt = at
	clone := *p
	return &clone, nil
}

func (v *paymentView) ListForSeller(ctx context.Context, sellerID string, limit, offset int64) ([]models.Payment, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Payment
	for _, p := range s.payments {
		if p.SellerID == sellerID && p.DeletedAt == nil {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (v *paymentView) SoftDeleteForSeller(ctx context.Context, sellerID string, at time.Time) (int64, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, p := range s.payments {
		if p.SellerID == sellerID && p.DeletedAt == nil {
			deleted := at
			p.DeletedAt = &deleted
			p.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

func (s *Store) findPaymentLocked(id string) *models.Payment {
	for _, p := range s.payments {
		if p.ID.Hex() == id && p.DeletedAt == nil {
			return p
		}
	}
	return nil
}

func page[T any](in []T, limit, offset int64) []T {
	if offset >= int64(len(in)) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < int64(len(in)) {
		in = in[:limit]
	}
	return in
}
