package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/walpay/core/internal/models"
)

// TransactionStore implements store.Transactions on the transactions collection.
type TransactionStore struct {
	coll *mongo.Collection
}

func (s *TransactionStore) Insert(ctx context.Context, t *models.Transaction) error {
	res, err := s.coll.InsertOne(ctx, t)
	if err != nil {
		return mapInsertErr(err)
	}
	t.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *TransactionStore) ListForSeller(ctx context.Context, sellerID string, limit, offset int64) ([]models.Transaction, error) {
	cursor, err := s.coll.Find(ctx,
		bson.M{"sellerId": sellerID, "deletedAt": nil},
		options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip(offset).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	var txs []models.Transaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *TransactionStore) ListForPayment(ctx context.Context, paymentID string) ([]models.Transaction, error) {
	cursor, err := s.coll.Find(ctx,
		bson.M{"paymentId": paymentID, "deletedAt": nil},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	var txs []models.Transaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *TransactionStore) SoftDeleteForSeller(ctx context.Context, sellerID string, at time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"sellerId": sellerID, "deletedAt": nil},
		bson.M{"$set": bson.M{"deletedAt": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
