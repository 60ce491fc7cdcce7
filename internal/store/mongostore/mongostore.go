// Package mongostore implements the store contracts on MongoDB. Conditional
// updates use FindOneAndUpdate with value-matching filters so rotation and
// consumption stay atomic even with multiple server processes on one store.
package mongostore

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/walpay/core/internal/store"
)

const (
	CollSellers      = "sellers"
	CollOtps         = "otps"
	CollSessions     = "sessions"
	CollPayments     = "payments"
	CollTransactions = "transactions"
)

// Store bundles the Mongo-backed implementations of every contract.
type Store struct {
	Sellers      *SellerStore
	Otps         *OtpStore
	Sessions     *SessionStore
	Payments     *PaymentStore
	Transactions *TransactionStore
}

// New wires all collection stores against one database handle.
func New(db *mongo.Database) *Store {
	return &Store{
		Sellers:      &SellerStore{coll: db.Collection(CollSellers)},
		Otps:         &OtpStore{coll: db.Collection(CollOtps)},
		Sessions:     &SessionStore{coll: db.Collection(CollSessions)},
		Payments:     &PaymentStore{coll: db.Collection(CollPayments)},
		Transactions: &TransactionStore{coll: db.Collection(CollTransactions)},
	}
}

// objectID parses a hex id; an unparseable id can never match a document.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, store.ErrNotFound
	}
	return oid, nil
}

func mapFindErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func mapInsertErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}
