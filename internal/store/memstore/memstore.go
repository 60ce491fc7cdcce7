// Package memstore implements the store contracts in process memory with the
// same conditional-update semantics as the Mongo implementation. It backs the
// service tests and can serve as a throwaway dev store.
package memstore

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/walpay/core/internal/models"
)

// Store holds all collections behind one mutex; every operation is atomic
// with respect to every other, which is exactly the guarantee the Mongo
// conditional updates provide per document.
type Store struct {
	mu sync.Mutex

	sellers  []*models.Seller
	otps     []*otpRecord
	sessions []*models.Session
	payments []*models.Payment
	txs      []*models.Transaction

	seq int64
}

type otpRecord struct {
	models.OtpChallenge
	seq int64
}

// New returns an empty store.
func New() *Store { return &Store{} }

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func newID() primitive.ObjectID { return primitive.NewObjectID() }
