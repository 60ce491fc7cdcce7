package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Seller is a merchant account. Email is stored lowercased and unique.
// PasswordHash is a self-describing PBKDF2 credential and never leaves the server.
type Seller struct {
	ID           primitive.ObjectID `json:"id"            bson:"_id,omitempty"`
	Email        string             `json:"email"         bson:"email"`
	PasswordHash string             `json:"-"             bson:"passwordHash"`
	BusinessName string             `json:"business_name" bson:"businessName"`
	Country      string             `json:"country"       bson:"country"`
	Address      *string            `json:"address"       bson:"address"`
	JoinedAt     time.Time          `json:"joined_at"     bson:"joinedAt"`
	UpdatedAt    time.Time          `json:"-"             bson:"updatedAt"`
	VerifiedAt   *time.Time         `json:"verified_at"   bson:"verifiedAt"`
	DeletedAt    *time.Time         `json:"-"             bson:"deletedAt"`
}

// Verified reports whether the seller has proven email ownership.
func (s *Seller) Verified() bool { return s != nil && s.VerifiedAt != nil }
