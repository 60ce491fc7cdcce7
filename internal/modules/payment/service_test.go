package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/modules/flow"
	"github.com/walpay/core/internal/store"
	"github.com/walpay/core/internal/store/memstore"
)

type fakeSubmitter struct {
	creates     []flow.TxPayload
	deactivates []flow.TxPayload
	payments    []flow.TxPayload
}

func (f *fakeSubmitter) SubmitCreatePayment(ctx context.Context, p flow.TxPayload) (string, error) {
	f.creates = append(f.creates, p)
	return p.TxID, nil
}

func (f *fakeSubmitter) SubmitDeactivatePayment(ctx context.Context, p flow.TxPayload) (string, error) {
	f.deactivates = append(f.deactivates, p)
	return p.TxID, nil
}

func (f *fakeSubmitter) SubmitPayment(ctx context.Context, p flow.TxPayload) (string, error) {
	f.payments = append(f.payments, p)
	return p.TxID, nil
}

func newTestService(cfg Config) (*Service, *fakeSubmitter) {
	mem := memstore.New()
	sub := &fakeSubmitter{}
	return NewService(mem.Payments(), mem.Transactions(), sub, cfg, zap.NewNop()), sub
}

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func TestCreatePaymentFlowPricing(t *testing.T) {
	svc, _ := newTestService(Config{PlatformFeePercent: 2.5})
	ctx := context.Background()

	p, err := svc.Create(ctx, "seller-1", CreateInput{Name: "Coffee", PriceFlow: f64(10)})
	require.NoError(t, err)
	assert.Equal(t, 10.0, p.PriceFlow)
	assert.Equal(t, 0.25, p.FeeFlow)
	assert.Equal(t, 10.25, p.TotalFlow)
	assert.Equal(t, models.PaymentActive, p.Status)
	assert.NotEmpty(t, p.PaymentLink)
	assert.Equal(t, "Thank you for your purchase!", p.CustomSuccessMessage)
}

func TestCreatePaymentUsdConversion(t *testing.T) {
	// 1 FLOW = 0.50 USD, so $5 buys 10 FLOW.
	svc, _ := newTestService(Config{PlatformFeePercent: 0, FlowUSDRate: 0.5})
	ctx := context.Background()

	p, err := svc.Create(ctx, "seller-1", CreateInput{Name: "Coffee", PriceUSD: f64(5)})
	require.NoError(t, err)
	assert.Equal(t, 10.0, p.PriceFlow)
	assert.Equal(t, 10.0, p.TotalFlow)
	require.NotNil(t, p.PriceUSD)
	assert.Equal(t, 5.0, *p.PriceUSD)
}

func TestCreatePaymentPricingErrors(t *testing.T) {
	svc, _ := newTestService(Config{})
	ctx := context.Background()

	_, err := svc.Create(ctx, "seller-1", CreateInput{Name: "Coffee"})
	assert.ErrorIs(t, err, ErrPriceRequired)

	// USD pricing without a configured rate cannot be resolved.
	_, err = svc.Create(ctx, "seller-1", CreateInput{Name: "Coffee", PriceUSD: f64(5)})
	assert.ErrorIs(t, err, ErrRateNotConfigured)
}

func TestCreatePaymentSlugHandling(t *testing.T) {
	svc, _ := newTestService(Config{})
	ctx := context.Background()

	p, err := svc.Create(ctx, "seller-1", CreateInput{Name: "Coffee", PriceFlow: f64(1), Slug: "  My Coffee!! Link "})
	require.NoError(t, err)
	assert.Equal(t, "my-coffee-link", p.PaymentLink)

	_, err = svc.Create(ctx, "seller-1", CreateInput{Name: "Tea", PriceFlow: f64(1), Slug: "my coffee link"})
	assert.ErrorIs(t, err, ErrSlugTaken)

	_, err = svc.Create(ctx, "seller-1", CreateInput{Name: "Tea", PriceFlow: f64(1), Slug: "!!!"})
	assert.ErrorIs(t, err, ErrInvalidSlug)
}

func TestCreatePaymentSubmitsChainTx(t *testing.T) {
	svc, sub := newTestService(Config{})
	ctx := context.Background()

	p, err := svc.Create(ctx, "seller-1", CreateInput{
		Name: "Coffee", PriceFlow: f64(1),
		BlockchainTxID: str("tx-abc"), SellerAddress: str("0xseller"),
	})
	require.NoError(t, err)
	require.NotNil(t, p.BlockchainCreateTx)
	assert.Equal(t, "tx-abc", *p.BlockchainCreateTx)
	require.Len(t, sub.creates, 1)
	assert.Equal(t, p.PaymentLink, sub.creates[0].PaymentSlug)

	reloaded, err := svc.Get(ctx, "seller-1", p.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, reloaded.BlockchainCreateTx)
	assert.Equal(t, "tx-abc", *reloaded.BlockchainCreateTx)
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, _ := newTestService(Config{})
	ctx := context.Background()

	p, err := svc.Create(ctx, "seller-1", CreateInput{Name: "Coffee", PriceFlow: f64(1)})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "seller-2", p.ID.Hex())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeactivate(t *testing.T) {
	svc, sub := newTestService(Config{})
	ctx := context.Background()

	p, err := svc.Create(ctx, "seller-1", CreateInput{Name: "Coffee", PriceFlow: f64(1)})
	require.NoError(t, err)

	updated, err := svc.Deactivate(ctx, "seller-1", p.ID.Hex(), str("tx-off"), str("0xseller"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentInactive, updated.Status)
	require.NotNil(t, updated.BlockchainDeactivateTx)
	assert.Equal(t, "tx-off", *updated.BlockchainDeactivateTx)
	assert.NotNil(t, updated.DeactivatedAt)
	require.Len(t, sub.deactivates, 1)

	// The public checkout page only serves active links.
	_, err = svc.GetBySlug(ctx, p.PaymentLink)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetBySlug(t *testing.T) {
	svc, _ := newTestService(Config{})
	ctx := context.Background()

	p, err := svc.Create(ctx, "seller-1", CreateInput{Name: "Coffee", PriceFlow: f64(1), Slug: "coffee"})
	require.NoError(t, err)

	found, err := svc.GetBySlug(ctx, "coffee")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
}

func TestRecordTransaction(t *testing.T) {
	svc, sub := newTestService(Config{PlatformFeePercent: 2.5})
	ctx := context.Background()

	p, err := svc.Create(ctx, "seller-1", CreateInput{Name: "Coffee", PriceFlow: f64(10)})
	require.NoError(t, err)

	tx, err := svc.RecordTransaction(ctx, "seller-1", RecordTxInput{
		PaymentID: p.ID.Hex(), TxID: "tx-pay", Kind: "payment", PayerAddress: str("0xbuyer"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TxPayment, tx.Kind)
	require.NotNil(t, tx.PaymentSlug)
	assert.Equal(t, p.PaymentLink, *tx.PaymentSlug)
	require.Len(t, sub.payments, 1)
	assert.Equal(t, p.TotalFlow, sub.payments[0].AmountFlow)

	_, err = svc.RecordTransaction(ctx, "seller-1", RecordTxInput{
		PaymentID: p.ID.Hex(), TxID: "tx-x", Kind: "bogus",
	})
	assert.ErrorIs(t, err, ErrInvalidTxKind)

	_, err = svc.RecordTransaction(ctx, "seller-2", RecordTxInput{
		PaymentID: p.ID.Hex(), TxID: "tx-y", Kind: "payment",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)

	items, err := svc.ListPaymentTransactions(ctx, "seller-1", p.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, items, 1)

	all, err := svc.ListTransactions(ctx, "seller-1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRecordPublicTransaction(t *testing.T) {
	svc, _ := newTestService(Config{})
	ctx := context.Background()

	p, err := svc.Create(ctx, "seller-1", CreateInput{Name: "Coffee", PriceFlow: f64(1)})
	require.NoError(t, err)

	tx, err := svc.RecordPublicTransaction(ctx, RecordTxInput{
		PaymentID: p.ID.Hex(), TxID: "tx-anon", Kind: "payment", PayerAddress: str("0xbuyer"),
	})
	require.NoError(t, err)
	assert.Equal(t, "seller-1", tx.SellerID)
}

type fakeReceipts struct {
	emails  []string
	names   []string
	amounts []float64
	txIDs   []string
}

func (f *fakeReceipts) SendPaymentReceipt(email, paymentName string, amountFlow float64, txID string) error {
	f.emails = append(f.emails, email)
	f.names = append(f.names, paymentName)
	f.amounts = append(f.amounts, amountFlow)
	f.txIDs = append(f.txIDs, txID)
	return nil
}

func TestRecordPaymentSendsReceipt(t *testing.T) {
	mem := memstore.New()
	svc := NewService(mem.Payments(), mem.Transactions(), &fakeSubmitter{}, Config{PlatformFeePercent: 2}, zap.NewNop())
	receipts := &fakeReceipts{}
	svc.SetReceiptNotifier(receipts, mem.Sellers())
	ctx := context.Background()

	owner := &models.Seller{Email: "owner@shop.com", BusinessName: "Shop"}
	require.NoError(t, mem.Sellers().Insert(ctx, owner))

	p, err := svc.Create(ctx, owner.ID.Hex(), CreateInput{Name: "Coffee", PriceFlow: f64(10)})
	require.NoError(t, err)

	_, err = svc.RecordPublicTransaction(ctx, RecordTxInput{
		PaymentID: p.ID.Hex(), TxID: "tx-paid", Kind: "payment", PayerAddress: str("0xbuyer"),
	})
	require.NoError(t, err)

	require.Len(t, receipts.emails, 1)
	assert.Equal(t, "owner@shop.com", receipts.emails[0])
	assert.Equal(t, "Coffee", receipts.names[0])
	assert.Equal(t, p.TotalFlow, receipts.amounts[0])
	assert.Equal(t, "tx-paid", receipts.txIDs[0])

	// Lifecycle transactions are not purchases and stay silent.
	_, err = svc.RecordTransaction(ctx, owner.ID.Hex(), RecordTxInput{
		PaymentID: p.ID.Hex(), TxID: "tx-deact", Kind: "deactivate_payment",
	})
	require.NoError(t, err)
	assert.Len(t, receipts.emails, 1)
}

func TestNormalizeSlug(t *testing.T) {
	cases := map[string]string{
		"Simple":             "simple",
		"  spaced out  ":     "spaced-out",
		"UPPER_case&stuff":   "upper-case-stuff",
		"--edge--dashes--":   "edge-dashes",
		"multi   separators": "multi-separators",
		"!!!":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSlug(in), "input %q", in)
	}
}
