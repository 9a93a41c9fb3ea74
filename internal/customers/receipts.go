package customers

import (
	"context"
	"fmt"

	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
	"github.com/davidcastellano/ledgerpay-backend/pkg/logger"
)

// Notifier dispatches a receipt for a settled charge. Outbound mail lives
// behind this boundary; the service only decides when a receipt is owed.
type Notifier interface {
	SendReceipt(ctx context.Context, customer *models.Customer, charge *models.Charge) error
}

type logNotifier struct {
	logg *logger.Logger
}

// NewLogNotifier returns a Notifier that records receipt dispatches in the
// application log.
func NewLogNotifier(logg *logger.Logger) Notifier {
	return &logNotifier{logg: logg}
}

func (n *logNotifier) SendReceipt(ctx context.Context, customer *models.Customer, charge *models.Charge) error {
	if n.logg == nil || customer == nil || charge == nil {
		return nil
	}
	ctx = n.logg.WithCustomerID(ctx, customer.ID.String())
	ctx = n.logg.WithStripeID(ctx, charge.StripeID)
	n.logg.Info(ctx, fmt.Sprintf("receipt queued for charge of %s %s", charge.Amount, charge.Currency))
	return nil
}
