package charges

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidcastellano/ledgerpay-backend/internal/stripegateway"
	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
	pkgerrors "github.com/davidcastellano/ledgerpay-backend/pkg/errors"
	"github.com/davidcastellano/ledgerpay-backend/pkg/money"
)

// BuildChargeFromSnapshot maps a remote charge into a new local row.
func BuildChargeFromSnapshot(snapshot *stripegateway.ChargeSnapshot, customerID uuid.UUID, invoiceID *uuid.UUID) (*models.Charge, error) {
	if snapshot == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "charge snapshot is nil")
	}
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	charge := &models.Charge{
		CustomerID: customerID,
		StripeID:   snapshot.ID,
	}
	applySnapshot(charge, snapshot, invoiceID)
	return charge, nil
}

// UpdateChargeFromSnapshot overwrites the mutable fields of an existing row
// with the remote snapshot's values.
func UpdateChargeFromSnapshot(target *models.Charge, snapshot *stripegateway.ChargeSnapshot, invoiceID *uuid.UUID) error {
	if target == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "target charge is nil")
	}
	if snapshot == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "charge snapshot is nil")
	}
	applySnapshot(target, snapshot, invoiceID)
	return nil
}

func applySnapshot(target *models.Charge, snapshot *stripegateway.ChargeSnapshot, invoiceID *uuid.UUID) {
	target.Amount = money.FromCents(snapshot.AmountCents)
	target.AmountRefunded = money.FromCents(snapshot.AmountRefundedCents)
	target.Paid = snapshot.Paid
	target.Disputed = snapshot.Disputed
	target.Refunded = snapshot.AmountRefundedCents > 0
	target.Captured = snapshot.Captured
	if currency := strings.TrimSpace(snapshot.Currency); currency != "" {
		target.Currency = currency
	}
	if description := strings.TrimSpace(snapshot.Description); description != "" {
		target.Description = &description
	}
	if snapshot.Created > 0 {
		created := time.Unix(snapshot.Created, 0).UTC()
		target.ChargeCreated = &created
	}
	if invoiceID != nil {
		target.InvoiceID = invoiceID
	}
}
