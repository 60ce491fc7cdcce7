package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus is the lifecycle state of a payment link.
type PaymentStatus string

const (
	PaymentActive   PaymentStatus = "active"
	PaymentInactive PaymentStatus = "inactive"
)

// Payment is a merchant payment link priced in FLOW. The slug (PaymentLink)
// is globally unique and forms the public checkout URL.
type Payment struct {
	ID                     primitive.ObjectID `json:"id"                       bson:"_id,omitempty"`
	SellerID               string             `json:"seller_id"                bson:"sellerId"`
	Name                   string             `json:"name"                     bson:"name"`
	Image                  *string            `json:"image"                    bson:"image"`
	Description            *string            `json:"description"              bson:"description"`
	CustomSuccessMessage   string             `json:"custom_success_message"   bson:"customSuccessMessage"`
	RedirectURL            *string            `json:"redirect_url"             bson:"redirectUrl"`
	PriceFlow              float64            `json:"price_flow"               bson:"priceFlow"`
	PriceUSD               *float64           `json:"price_usd"                bson:"priceUSD"`
	FeeFlow                float64            `json:"fee_flow"                 bson:"feeFlow"`
	TotalFlow              float64            `json:"total_flow"               bson:"totalFlow"`
	PaymentLink            string             `json:"payment_link"             bson:"paymentLink"`
	Status                 PaymentStatus      `json:"status"                   bson:"status"`
	CreatedAt              time.Time          `json:"created_at"               bson:"createdAt"`
	UpdatedAt              time.Time          `json:"updated_at"               bson:"updatedAt"`
	DeactivatedAt          *time.Time         `json:"deactivated_at"           bson:"deactivatedAt"`
	DeletedAt              *time.Time         `json:"-"                        bson:"deletedAt"`
	BlockchainCreateTx     *string            `json:"blockchain_create_tx"     bson:"blockchainCreateTx"`
	BlockchainDeactivateTx *string            `json:"blockchain_deactivate_tx" bson:"blockchainDeactivateTx"`
}
