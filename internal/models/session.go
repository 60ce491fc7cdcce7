package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is an access/refresh token pair. Raw tokens are never persisted,
// only their digests. SessionExpiresAt is the absolute ceiling computed once
// at creation; rotation never moves it.
type Session struct {
	ID               primitive.ObjectID `json:"id"                 bson:"_id,omitempty"`
	SellerID         string             `json:"seller_id"          bson:"sellerId"`
	AccessTokenHash  string             `json:"-"                  bson:"accessTokenHash"`
	RefreshTokenHash string             `json:"-"                  bson:"refreshTokenHash"`
	AccessExpiresAt  time.Time          `json:"access_expires_at"  bson:"accessExpiresAt"`
	RefreshExpiresAt time.Time          `json:"refresh_expires_at" bson:"refreshExpiresAt"`
	SessionExpiresAt time.Time          `json:"session_expires_at" bson:"sessionExpiresAt"`
	CreatedAt        time.Time          `json:"created_at"         bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updated_at"         bson:"updatedAt"`
	RevokedAt        *time.Time         `json:"revoked_at"         bson:"revokedAt"`
	RotationCount    int                `json:"rotation_count"     bson:"rotationCount"`
}
