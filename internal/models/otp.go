package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OtpPurpose scopes a one-time passcode to a single use case.
type OtpPurpose string

const (
	OtpPurposeSignup OtpPurpose = "signup"
	OtpPurposeLogin  OtpPurpose = "login"
	OtpPurposeReset  OtpPurpose = "reset"
)

// ParseOtpPurpose validates a purpose tag coming from the outside world.
func ParseOtpPurpose(raw string) (OtpPurpose, bool) {
	switch OtpPurpose(strings.ToLower(strings.TrimSpace(raw))) {
	case OtpPurposeSignup:
		return OtpPurposeSignup, true
	case OtpPurposeLogin:
		return OtpPurposeLogin, true
	case OtpPurposeReset:
		return OtpPurposeReset, true
	}
	return "", false
}

// OtpChallenge is a proof-of-email-control record. Only the code digest is
// stored; superseded challenges stay around until the reaper purges them and
// are neutralized by recency ordering at verification time.
type OtpChallenge struct {
	ID         primitive.ObjectID `json:"id"          bson:"_id,omitempty"`
	Email      string             `json:"email"       bson:"email"`
	SellerID   string             `json:"seller_id"   bson:"sellerId"`
	Purpose    OtpPurpose         `json:"purpose"     bson:"purpose"`
	CodeHash   string             `json:"-"           bson:"codeHash"`
	CreatedAt  time.Time          `json:"created_at"  bson:"createdAt"`
	ExpiresAt  time.Time          `json:"expires_at"  bson:"expiresAt"`
	ConsumedAt *time.Time         `json:"consumed_at" bson:"consumedAt"`
}

// Expired reports whether the challenge is past its TTL at the given instant.
func (o *OtpChallenge) Expired(now time.Time) bool { return now.After(o.ExpiresAt) }
