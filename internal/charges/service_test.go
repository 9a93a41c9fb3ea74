package charges

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/davidcastellano/ledgerpay-backend/internal/billing"
	"github.com/davidcastellano/ledgerpay-backend/internal/stripegateway"
	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
	pkgerrors "github.com/davidcastellano/ledgerpay-backend/pkg/errors"
)

type stubRepo struct {
	billing.Repository

	charges  map[string]*models.Charge
	invoices map[string]*models.Invoice
	created  int
	updated  int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		charges:  make(map[string]*models.Charge),
		invoices: make(map[string]*models.Invoice),
	}
}

func (s *stubRepo) WithTx(tx *gorm.DB) billing.Repository { return s }

func (s *stubRepo) CreateCharge(ctx context.Context, charge *models.Charge) error {
	if charge.ID == uuid.Nil {
		charge.ID = uuid.New()
	}
	s.charges[charge.StripeID] = charge
	s.created++
	return nil
}

func (s *stubRepo) UpdateCharge(ctx context.Context, charge *models.Charge) error {
	s.charges[charge.StripeID] = charge
	s.updated++
	return nil
}

func (s *stubRepo) FindChargeByStripeID(ctx context.Context, stripeID string) (*models.Charge, error) {
	return s.charges[stripeID], nil
}

func (s *stubRepo) FindInvoiceByStripeID(ctx context.Context, stripeID string) (*models.Invoice, error) {
	return s.invoices[stripeID], nil
}

type stubGateway struct {
	stripegateway.Gateway

	refundCalls  []int64
	captureCalls []string
	snapshot     *stripegateway.ChargeSnapshot
	refundErr    error
}

func (s *stubGateway) RefundCharge(ctx context.Context, id string, amountCents int64) (*stripegateway.ChargeSnapshot, error) {
	s.refundCalls = append(s.refundCalls, amountCents)
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	return s.snapshot, nil
}

func (s *stubGateway) CaptureCharge(ctx context.Context, id string) (*stripegateway.ChargeSnapshot, error) {
	s.captureCalls = append(s.captureCalls, id)
	return s.snapshot, nil
}

func seedCharge(repo *stubRepo, stripeID, amount, refunded string) *models.Charge {
	charge := &models.Charge{
		ID:             uuid.New(),
		CustomerID:     uuid.New(),
		StripeID:       stripeID,
		Amount:         decimal.RequireFromString(amount),
		AmountRefunded: decimal.RequireFromString(refunded),
		Currency:       "usd",
		Paid:           true,
		Captured:       true,
	}
	repo.charges[stripeID] = charge
	return charge
}

func TestCalculateRefundAmountClamps(t *testing.T) {
	charge := &models.Charge{
		Amount:         decimal.RequireFromString("500.00"),
		AmountRefunded: decimal.RequireFromString("0.00"),
	}

	if got := CalculateRefundAmount(charge, nil); got != 50000 {
		t.Fatalf("full refund expected 50000 cents, got %d", got)
	}

	over := decimal.RequireFromString("600.00")
	if got := CalculateRefundAmount(charge, &over); got != 50000 {
		t.Fatalf("over-refund must clamp to 50000 cents, got %d", got)
	}

	partial := decimal.RequireFromString("123.45")
	if got := CalculateRefundAmount(charge, &partial); got != 12345 {
		t.Fatalf("partial refund expected 12345 cents, got %d", got)
	}

	charge.AmountRefunded = decimal.RequireFromString("400.00")
	if got := CalculateRefundAmount(charge, &over); got != 10000 {
		t.Fatalf("remaining balance expected 10000 cents, got %d", got)
	}
}

func TestRefundSendsClampedAmountAndResyncs(t *testing.T) {
	repo := newStubRepo()
	charge := seedCharge(repo, "ch_1", "500.00", "0.00")
	gateway := &stubGateway{
		snapshot: &stripegateway.ChargeSnapshot{
			ID:                  "ch_1",
			AmountCents:         50000,
			AmountRefundedCents: 50000,
			Currency:            "usd",
			Paid:                true,
			Captured:            true,
			Created:             time.Now().Unix(),
		},
	}
	svc, err := NewService(ServiceParams{Repo: repo, Gateway: gateway})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	requested := decimal.RequireFromString("600.00")
	updated, err := svc.Refund(context.Background(), "ch_1", &requested)
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if len(gateway.refundCalls) != 1 || gateway.refundCalls[0] != 50000 {
		t.Fatalf("expected one remote refund of 50000 cents, got %v", gateway.refundCalls)
	}
	if !updated.Refunded {
		t.Fatalf("expected refunded flag after full refund")
	}
	if !updated.AmountRefunded.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("expected amount_refunded 500.00, got %s", updated.AmountRefunded)
	}
	if updated.ID != charge.ID {
		t.Fatalf("refund must update the existing row, not create a new one")
	}
	if repo.created != 0 {
		t.Fatalf("no new rows expected, created=%d", repo.created)
	}
}

func TestRefundMissingCharge(t *testing.T) {
	svc, _ := NewService(ServiceParams{Repo: newStubRepo(), Gateway: &stubGateway{}})
	_, err := svc.Refund(context.Background(), "ch_missing", nil)
	if err == nil {
		t.Fatal("expected error for unknown charge")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCaptureResyncsChargeRow(t *testing.T) {
	repo := newStubRepo()
	seedCharge(repo, "ch_auth", "20.00", "0.00")
	repo.charges["ch_auth"].Captured = false
	gateway := &stubGateway{
		snapshot: &stripegateway.ChargeSnapshot{
			ID:          "ch_auth",
			AmountCents: 2000,
			Currency:    "usd",
			Paid:        true,
			Captured:    true,
		},
	}
	svc, _ := NewService(ServiceParams{Repo: repo, Gateway: gateway})

	updated, err := svc.Capture(context.Background(), "ch_auth")
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if !updated.Captured {
		t.Fatalf("expected captured flag to be set")
	}
	if len(gateway.captureCalls) != 1 || gateway.captureCalls[0] != "ch_auth" {
		t.Fatalf("expected one remote capture call, got %v", gateway.captureCalls)
	}
}

func TestGetOrCreateUpsertsByStripeID(t *testing.T) {
	repo := newStubRepo()
	gateway := &stubGateway{}
	svc, _ := NewService(ServiceParams{Repo: repo, Gateway: gateway})
	customerID := uuid.New()

	first := &stripegateway.ChargeSnapshot{
		ID:          "ch_up",
		AmountCents: 1000,
		Currency:    "usd",
		Paid:        true,
	}
	charge, created, err := svc.GetOrCreateFromSnapshot(context.Background(), first, customerID)
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if !created {
		t.Fatalf("expected creation on first sync")
	}
	if charge.Refunded {
		t.Fatalf("no refund expected yet")
	}

	second := &stripegateway.ChargeSnapshot{
		ID:                  "ch_up",
		AmountCents:         1000,
		AmountRefundedCents: 250,
		Currency:            "usd",
		Paid:                true,
	}
	again, created, err := svc.GetOrCreateFromSnapshot(context.Background(), second, customerID)
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if created {
		t.Fatalf("second sync must update in place")
	}
	if len(repo.charges) != 1 {
		t.Fatalf("expected exactly one stored row, got %d", len(repo.charges))
	}
	if !again.Refunded {
		t.Fatalf("refunded flag must derive from amount_refunded > 0")
	}
	if !again.AmountRefunded.Equal(decimal.RequireFromString("2.50")) {
		t.Fatalf("expected amount_refunded 2.50, got %s", again.AmountRefunded)
	}
	if again.ID != charge.ID {
		t.Fatalf("row identity must be stable across syncs")
	}
}

func TestGetOrCreateLinksKnownInvoice(t *testing.T) {
	repo := newStubRepo()
	invoice := &models.Invoice{ID: uuid.New(), StripeID: "in_1"}
	repo.invoices["in_1"] = invoice
	svc, _ := NewService(ServiceParams{Repo: repo, Gateway: &stubGateway{}})

	snapshot := &stripegateway.ChargeSnapshot{
		ID:          "ch_inv",
		InvoiceID:   "in_1",
		AmountCents: 900,
		Currency:    "usd",
		Paid:        true,
	}
	charge, _, err := svc.GetOrCreateFromSnapshot(context.Background(), snapshot, uuid.New())
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if charge.InvoiceID == nil || *charge.InvoiceID != invoice.ID {
		t.Fatalf("expected charge linked to local invoice")
	}
}
