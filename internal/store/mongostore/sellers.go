package mongostore

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/store"
)

// SellerStore implements store.Sellers on the sellers collection.
type SellerStore struct {
	coll *mongo.Collection
}

func (s *SellerStore) Insert(ctx context.Context, seller *models.Seller) error {
	seller.Email = strings.ToLower(seller.Email)
	res, err := s.coll.InsertOne(ctx, seller)
	if err != nil {
		return mapInsertErr(err)
	}
	seller.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *SellerStore) FindByEmail(ctx context.Context, email string) (*models.Seller, error) {
	var seller models.Seller
	err := s.coll.FindOne(ctx, bson.M{
		"email":     strings.ToLower(email),
		"deletedAt": nil,
	}).Decode(&seller)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &seller, nil
}

func (s *SellerStore) FindByID(ctx context.Context, id string) (*models.Seller, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var seller models.Seller
	err = s.coll.FindOne(ctx, bson.M{"_id": oid, "deletedAt": nil}).Decode(&seller)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &seller, nil
}

func (s *SellerStore) MarkVerified(ctx context.Context, id string, at time.Time) (*models.Seller, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var seller models.Seller
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "deletedAt": nil},
		bson.M{"$set": bson.M{"verifiedAt": at, "updatedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&seller)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &seller, nil
}

func (s *SellerStore) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "deletedAt": nil},
		bson.M{"$set": bson.M{"passwordHash": passwordHash, "updatedAt": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SellerStore) UpdateProfile(ctx context.Context, id string, patch store.SellerPatch, at time.Time) (*models.Seller, error) {
	if patch.Empty() {
		return s.FindByID(ctx, id)
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": at}
	if patch.BusinessName != nil {
		set["businessName"] = *patch.BusinessName
	}
	if patch.Country != nil {
		set["country"] = *patch.Country
	}
	if patch.Address != nil {
		set["address"] = *patch.Address
	}

	var seller models.Seller
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "deletedAt": nil},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&seller)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &seller, nil
}

func (s *SellerStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "deletedAt": nil},
		bson.M{"$set": bson.M{"deletedAt": at, "updatedAt": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
