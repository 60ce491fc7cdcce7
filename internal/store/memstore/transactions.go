package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/store"
)

// Transactions returns the transaction collection view of the store.
func (s *Store) Transactions() store.Transactions { return (*txView)(s) }

type txView Store

func (v *txView) Insert(ctx context.Context, t *models.Transaction) error {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = newID()
	clone := *t
	s.txs = append(s.txs, &clone)
	return nil
}

func (v *txView) ListForSeller(ctx context.Context, sellerID string, limit, offset int64) ([]models.Transaction, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Transaction
	for _, t := range s.txs {
		if t.SellerID == sellerID && t.DeletedAt == nil {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (v *txView) ListForPayment(ctx context.Context, paymentID string) ([]models.Transaction, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Transaction
	for _, t := range s.txs {
		if t.PaymentID == paymentID && t.DeletedAt == nil {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (v *txView) SoftDeleteForSeller(ctx context.Context, sellerID string, at time.Time) (int64, error) {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, t := range s.txs {
		if t.SellerID == sellerID && t.DeletedAt == nil {
			deleted := at
			t.DeletedAt = &deleted
			n++
		}
	}
	return n, nil
}
