package customers

import (
	"github.com/google/uuid"

	"github.com/davidcastellano/ledgerpay-backend/internal/stripegateway"
	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
	pkgerrors "github.com/davidcastellano/ledgerpay-backend/pkg/errors"
	"github.com/davidcastellano/ledgerpay-backend/pkg/money"
)

// applyCardSnapshot copies the remote default card onto the customer row, or
// clears the card fields when the remote account has no active card.
func applyCardSnapshot(customer *models.Customer, card *stripegateway.CardSnapshot) {
	if card == nil {
		clearCardFields(customer)
		return
	}
	customer.CardFingerprint = card.Fingerprint
	customer.CardLast4 = card.Last4
	customer.CardKind = card.Kind
	customer.CardExpMonth = card.ExpMonth
	customer.CardExpYear = card.ExpYear
}

func clearCardFields(customer *models.Customer) {
	customer.CardFingerprint = ""
	customer.CardLast4 = ""
	customer.CardKind = ""
	customer.CardExpMonth = 0
	customer.CardExpYear = 0
}

// BuildInvoiceFromSnapshot maps a remote invoice into a new local row.
func BuildInvoiceFromSnapshot(snapshot *stripegateway.InvoiceSnapshot, customerID uuid.UUID) (*models.Invoice, error) {
	if snapshot == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "invoice snapshot is nil")
	}
	invoice := &models.Invoice{
		CustomerID: customerID,
		StripeID:   snapshot.ID,
	}
	applyInvoiceSnapshot(invoice, snapshot)
	return invoice, nil
}

// UpdateInvoiceFromSnapshot overwrites an existing row with remote values.
func UpdateInvoiceFromSnapshot(target *models.Invoice, snapshot *stripegateway.InvoiceSnapshot) error {
	if target == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "target invoice is nil")
	}
	if snapshot == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "invoice snapshot is nil")
	}
	applyInvoiceSnapshot(target, snapshot)
	return nil
}

func applyInvoiceSnapshot(target *models.Invoice, snapshot *stripegateway.InvoiceSnapshot) {
	target.Total = money.FromCents(snapshot.TotalCents)
	target.Paid = snapshot.Paid
	target.Attempted = snapshot.Attempted
	target.Closed = snapshot.Closed
	target.PeriodStart = epochPtr(snapshot.PeriodStart)
	target.PeriodEnd = epochPtr(snapshot.PeriodEnd)
	target.Date = epochPtr(snapshot.Date)
}
