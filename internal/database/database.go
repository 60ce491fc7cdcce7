package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/walpay/core/internal/config"
	"github.com/walpay/core/internal/store/mongostore"
)

// Connect opens a MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context, cfg *config.AppConfig) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}
	return client, client.Database(cfg.Mongo.Name), nil
}

// EnsureIndexes creates the indexes the stores rely on. Safe to call on every
// startup; Mongo treats matching definitions as a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	specs := map[string][]mongo.IndexModel{
		mongostore.CollSellers: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "address", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
		},
		mongostore.CollOtps: {
			{
				Keys: bson.D{
					{Key: "email", Value: 1},
					{Key: "purpose", Value: 1},
					{Key: "expiresAt", Value: 1},
					{Key: "consumedAt", Value: 1},
				},
			},
			// TTL cleanup; the service still checks expiry itself since the
			// reaper only runs about once a minute.
			{
				Keys:    bson.D{{Key: "expiresAt", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0),
			},
		},
		mongostore.CollSessions: {
			{
				Keys: bson.D{
					{Key: "accessTokenHash", Value: 1},
					{Key: "revokedAt", Value: 1},
					{Key: "accessExpiresAt", Value: 1},
				},
			},
			{
				Keys: bson.D{{Key: "refreshTokenHash", Value: 1}},
			},
			{
				Keys: bson.D{{Key: "refreshExpiresAt", Value: 1}},
			},
		},
		mongostore.CollPayments: {
			{
				Keys: bson.D{
					{Key: "sellerId", Value: 1},
					{Key: "createdAt", Value: -1},
				},
			},
			{
				Keys:    bson.D{{Key: "paymentLink", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		mongostore.CollTransactions: {
			{
				Keys: bson.D{
					{Key: "paymentId", Value: 1},
					{Key: "createdAt", Value: -1},
				},
			},
			{
				Keys: bson.D{
					{Key: "sellerId", Value: 1},
					{Key: "createdAt", Value: -1},
				},
			},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes for %s: %w", coll, err)
		}
	}
	return nil
}
