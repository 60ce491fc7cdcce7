// Package flow is the boundary to the Flow blockchain. Transactions are
// constructed and signed client-side; this package only submits references
// to an access node and hands back transaction ids.
package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// TxPayload describes a submitted transaction reference.
type TxPayload struct {
	TxID          string  `json:"tx_id,omitempty"`
	SellerAddress *string `json:"seller_address,omitempty"`
	PayerAddress  *string `json:"payer_address,omitempty"`
	PaymentSlug   string  `json:"payment_slug,omitempty"`
	AmountFlow    float64 `json:"amount_flow,omitempty"`
}

// Submitter is the fixed call contract the payment module drives.
type Submitter interface {
	SubmitCreatePayment(ctx context.Context, p TxPayload) (string, error)
	SubmitDeactivatePayment(ctx context.Context, p TxPayload) (string, error)
	SubmitPayment(ctx context.Context, p TxPayload) (string, error)
}

// Client talks to a Flow access node over HTTP. With no endpoint configured
// it echoes the caller-supplied tx id (or a mock id), which keeps local
// development working without a chain.
type Client struct {
	endpoint string
	http     *http.Client
	log      *zap.Logger
}

func NewClient(endpoint string, log *zap.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
}

func (c *Client) SubmitCreatePayment(ctx context.Context, p TxPayload) (string, error) {
	return c.submit(ctx, "create_payment", "mock-create-tx", p)
}

func (c *Client) SubmitDeactivatePayment(ctx context.Context, p TxPayload) (string, error) {
	return c.submit(ctx, "deactivate_payment", "mock-deactivate-tx", p)
}

func (c *Client) SubmitPayment(ctx context.Context, p TxPayload) (string, error) {
	return c.submit(ctx, "payment", "mock-pay-tx", p)
}

func (c *Client) submit(ctx context.Context, op, mockID string, p TxPayload) (string, error) {
	if c.endpoint == "" {
		c.log.Info("flow submit (no access node configured)",
			zap.String("op", op), zap.String("tx_id", p.TxID))
		if p.TxID != "" {
			return p.TxID, nil
		}
		return mockID, nil
	}

	body, err := json.Marshal(map[string]interface{}{"op": op, "payload": p})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("flow submit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("flow submit: access node returned %d", resp.StatusCode)
	}

	var out struct {
		TxID string `json:"tx_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("flow submit: %w", err)
	}
	c.log.Info("flow tx submitted", zap.String("op", op), zap.String("tx_id", out.TxID))
	return out.TxID, nil
}
