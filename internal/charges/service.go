package charges

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidcastellano/ledgerpay-backend/internal/billing"
	"github.com/davidcastellano/ledgerpay-backend/internal/stripegateway"
	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
	pkgerrors "github.com/davidcastellano/ledgerpay-backend/pkg/errors"
	"github.com/davidcastellano/ledgerpay-backend/pkg/logger"
	"github.com/davidcastellano/ledgerpay-backend/pkg/money"
)

// Service manages the local mirror of remote charges.
type Service interface {
	GetOrCreateFromSnapshot(ctx context.Context, snapshot *stripegateway.ChargeSnapshot, customerID uuid.UUID) (*models.Charge, bool, error)
	Refund(ctx context.Context, stripeChargeID string, requested *decimal.Decimal) (*models.Charge, error)
	Capture(ctx context.Context, stripeChargeID string) (*models.Charge, error)
}

// ServiceParams groups dependencies for the charge service.
type ServiceParams struct {
	Repo    billing.Repository
	Gateway stripegateway.Gateway
	Logger  *logger.Logger
}

type service struct {
	repo    billing.Repository
	gateway stripegateway.Gateway
	logg    *logger.Logger
}

// NewService builds a charge service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("billing repo required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("stripe gateway required")
	}
	return &service{
		repo:    params.Repo,
		gateway: params.Gateway,
		logg:    params.Logger,
	}, nil
}

// CalculateRefundAmount clamps the requested dollar amount to the remaining
// refundable balance and converts it to cents. A nil request refunds the full
// remaining balance.
func CalculateRefundAmount(charge *models.Charge, requested *decimal.Decimal) int64 {
	if charge == nil {
		return 0
	}
	remaining := charge.Amount.Sub(charge.AmountRefunded)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	if requested == nil || requested.GreaterThan(remaining) {
		return money.ToCents(remaining)
	}
	return money.ToCents(*requested)
}

// GetOrCreateFromSnapshot upserts the local row keyed by the remote charge
// id. The second return reports whether a new row was created.
func (s *service) GetOrCreateFromSnapshot(ctx context.Context, snapshot *stripegateway.ChargeSnapshot, customerID uuid.UUID) (*models.Charge, bool, error) {
	if snapshot == nil || strings.TrimSpace(snapshot.ID) == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeDependency, "charge snapshot is missing a remote id")
	}

	invoiceID, err := s.resolveInvoice(ctx, snapshot.InvoiceID)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.repo.FindChargeByStripeID(ctx, snapshot.ID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find charge")
	}
	if existing != nil {
		if err := UpdateChargeFromSnapshot(existing, snapshot, invoiceID); err != nil {
			return nil, false, err
		}
		if err := s.repo.UpdateCharge(ctx, existing); err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update charge")
		}
		return existing, false, nil
	}

	charge, err := BuildChargeFromSnapshot(snapshot, customerID, invoiceID)
	if err != nil {
		return nil, false, err
	}
	if err := s.repo.CreateCharge(ctx, charge); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create charge")
	}
	return charge, true, nil
}

// Refund issues a remote refund for at most the remaining refundable balance
// and folds the authoritative remote state back into the local row.
func (s *service) Refund(ctx context.Context, stripeChargeID string, requested *decimal.Decimal) (*models.Charge, error) {
	charge, err := s.findLocal(ctx, stripeChargeID)
	if err != nil {
		return nil, err
	}

	ctx = s.withChargeLogger(ctx, charge)
	refundCents := CalculateRefundAmount(charge, requested)
	snapshot, err := s.gateway.RefundCharge(ctx, charge.StripeID, refundCents)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund charge")
	}
	updated, _, err := s.GetOrCreateFromSnapshot(ctx, snapshot, charge.CustomerID)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("refunded %d cents on charge %s", refundCents, charge.StripeID))
	}
	return updated, nil
}

// Capture settles a previously authorized charge and re-syncs the local row.
func (s *service) Capture(ctx context.Context, stripeChargeID string) (*models.Charge, error) {
	charge, err := s.findLocal(ctx, stripeChargeID)
	if err != nil {
		return nil, err
	}

	ctx = s.withChargeLogger(ctx, charge)
	snapshot, err := s.gateway.CaptureCharge(ctx, charge.StripeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "capture charge")
	}
	updated, _, err := s.GetOrCreateFromSnapshot(ctx, snapshot, charge.CustomerID)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("captured charge %s", charge.StripeID))
	}
	return updated, nil
}

func (s *service) findLocal(ctx context.Context, stripeChargeID string) (*models.Charge, error) {
	id := strings.TrimSpace(stripeChargeID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge id is required")
	}
	charge, err := s.repo.FindChargeByStripeID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find charge")
	}
	if charge == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "charge not found")
	}
	return charge, nil
}

func (s *service) resolveInvoice(ctx context.Context, stripeInvoiceID string) (*uuid.UUID, error) {
	id := strings.TrimSpace(stripeInvoiceID)
	if id == "" {
		return nil, nil
	}
	invoice, err := s.repo.FindInvoiceByStripeID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find invoice")
	}
	if invoice == nil {
		return nil, nil
	}
	return &invoice.ID, nil
}

func (s *service) withChargeLogger(ctx context.Context, charge *models.Charge) context.Context {
	if s.logg == nil || charge == nil {
		return ctx
	}
	ctx = s.logg.WithStripeID(ctx, charge.StripeID)
	return s.logg.WithCustomerID(ctx, charge.CustomerID.String())
}
