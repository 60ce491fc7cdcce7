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
)

// OtpStore implements store.Otps on the otps collection.
type OtpStore struct {
	coll *mongo.Collection
}

func (s *OtpStore) Insert(ctx context.Context, c *models.OtpChallenge) error {
	c.Email = strings.ToLower(c.Email)
	res, err := s.coll.InsertOne(ctx, c)
	if err != nil {
		return mapInsertErr(err)
	}
	c.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *OtpStore) FindLatestUnconsumed(ctx context.Context, email string, purpose models.OtpPurpose) (*models.OtpChallenge, error) {
	var c models.OtpChallenge
	err := s.coll.FindOne(ctx,
		bson.M{
			"email":      strings.ToLower(email),
			"purpose":    purpose,
			"consumedAt": nil,
		},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	).Decode(&c)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &c, nil
}

func (s *OtpStore) Consume(ctx context.Context, id string, at time.Time) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, nil
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "consumedAt": nil},
		bson.M{"$set": bson.M{"consumedAt": at}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *OtpStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
