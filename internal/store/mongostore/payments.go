package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/store"
)

// PaymentStore implements store.Payments on the payments collection.
type PaymentStore struct {
	coll *mongo.Collection
}

func (s *PaymentStore) Insert(ctx context.Context, p *models.Payment) error {
	res, err := s.coll.InsertOne(ctx, p)
	if err != nil {
		return mapInsertErr(err)
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *PaymentStore) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var p models.Payment
	err = s.coll.FindOne(ctx, bson.M{"_id": oid, "deletedAt": nil}).Decode(&p)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &p, nil
}

func (s *PaymentStore) FindActiveBySlug(ctx context.Context, slug string) (*models.Payment, error) {
	var p models.Payment
	err := s.coll.FindOne(ctx, bson.M{
		"paymentLink": slug,
		"status":      models.PaymentActive,
		"deletedAt":   nil,
	}).Decode(&p)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &p, nil
}

func (s *PaymentStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"paymentLink": slug})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PaymentStore) SetCreateTx(ctx context.Context, id, txID string, at time.Time) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "deletedAt": nil},
		bson.M{"$set": bson.M{"blockchainCreateTx": txID, "updatedAt": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PaymentStore) Deactivate(ctx context.Context, id string, txID *string, at time.Time) (*models.Payment, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var p models.Payment
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "deletedAt": nil},
		bson.M{"$set": bson.M{
			"status":                 models.PaymentInactive,
			"blockchainDeactivateTx": txID,
			"deactivatedAt":          at,
			"updatedAt":              at,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &p, nil
}

func (s *PaymentStore) ListForSeller(ctx context.Context, sellerID string, limit, offset int64) ([]models.Payment, error) {
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
	var payments []models.Payment
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *PaymentStore) SoftDeleteForSeller(ctx context.Context, sellerID string, at time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"sellerId": sellerID, "deletedAt": nil},
		bson.M{"$set": bson.M{"deletedAt": at, "updatedAt": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
