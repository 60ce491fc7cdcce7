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

// SessionStore implements store.Sessions on the sessions collection.
type SessionStore struct {
	coll *mongo.Collection
}

func (s *SessionStore) Insert(ctx context.Context, sess *models.Session) error {
	res, err := s.coll.InsertOne(ctx, sess)
	if err != nil {
		return mapInsertErr(err)
	}
	sess.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *SessionStore) FindActiveByAccessHash(ctx context.Context, hash string, now time.Time) (*models.Session, error) {
	var sess models.Session
	err := s.coll.FindOne(ctx, bson.M{
		"accessTokenHash": hash,
		"revokedAt":       nil,
		"accessExpiresAt": bson.M{"$gt": now},
	}).Decode(&sess)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &sess, nil
}

// Rotate keys the update on the old refresh hash so two concurrent refreshes
// cannot both match: the first write removes the hash the filter needs.
func (s *SessionStore) Rotate(ctx context.Context, oldRefreshHash string, now time.Time, rot store.SessionRotation) (*models.Session, error) {
	var sess models.Session
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{
			"refreshTokenHash": oldRefreshHash,
			"revokedAt":        nil,
			"refreshExpiresAt": bson.M{"$gt": now},
			"sessionExpiresAt": bson.M{"$gt": now},
		},
		bson.M{
			"$set": bson.M{
				"accessTokenHash":  rot.AccessTokenHash,
				"refreshTokenHash": rot.RefreshTokenHash,
				"accessExpiresAt":  rot.AccessExpiresAt,
				"refreshExpiresAt": rot.RefreshExpiresAt,
				"updatedAt":        rot.UpdatedAt,
			},
			"$inc": bson.M{"rotationCount": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&sess)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &sess, nil
}

func (s *SessionStore) Revoke(ctx context.Context, id string, at time.Time) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "revokedAt": nil},
		bson.M{"$set": bson.M{"revokedAt": at, "updatedAt": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SessionStore) RevokeByAccessHash(ctx context.Context, hash string, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"accessTokenHash": hash, "revokedAt": nil},
		bson.M{"$set": bson.M{"revokedAt": at, "updatedAt": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SessionStore) RevokeAllForSeller(ctx context.Context, sellerID string, at time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"sellerId": sellerID, "revokedAt": nil},
		bson.M{"$set": bson.M{"revokedAt": at, "updatedAt": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
