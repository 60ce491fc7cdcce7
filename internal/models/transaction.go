package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionKind tags the on-chain operation a record mirrors.
type TransactionKind string

const (
	TxCreatePayment     TransactionKind = "create_payment"
	TxDeactivatePayment TransactionKind = "deactivate_payment"
	TxPayment           TransactionKind = "payment"
)

// Transaction is a local mirror of a submitted Flow transaction.
type Transaction struct {
	ID           primitive.ObjectID `json:"id"            bson:"_id,omitempty"`
	SellerID     string             `json:"seller_id"     bson:"sellerId"`
	PaymentID    string             `json:"payment_id"    bson:"paymentId"`
	TxID         string             `json:"tx_id"         bson:"txId"`
	Kind         TransactionKind    `json:"kind"          bson:"kind"`
	PayerAddress *string            `json:"payer_address" bson:"payerAddress"`
	PaymentName  *string            `json:"payment_name"  bson:"paymentName"`
	PaymentSlug  *string            `json:"payment_slug"  bson:"paymentSlug"`
	CreatedAt    time.Time          `json:"created_at"    bson:"createdAt"`
	DeletedAt    *time.Time         `json:"-"             bson:"deletedAt"`
}
