package stripegateway

import "context"

// Gateway exposes the subset of Stripe interactions the billing services
// rely on. Implementations wrap every failure in *RemoteError.
type Gateway interface {
	CreateCustomer(ctx context.Context, email string) (*CustomerSnapshot, error)
	RetrieveCustomer(ctx context.Context, id string) (*CustomerSnapshot, error)
	DeleteCustomer(ctx context.Context, id string) error

	UpdateSubscription(ctx context.Context, params *SubscriptionParams) (*SubscriptionSnapshot, error)
	CancelSubscription(ctx context.Context, customerID string, atPeriodEnd bool) (*SubscriptionSnapshot, error)

	CreateCharge(ctx context.Context, params *ChargeParams) (*ChargeSnapshot, error)
	RetrieveCharge(ctx context.Context, id string) (*ChargeSnapshot, error)
	RefundCharge(ctx context.Context, id string, amountCents int64) (*ChargeSnapshot, error)
	CaptureCharge(ctx context.Context, id string) (*ChargeSnapshot, error)
	ListCharges(ctx context.Context, customerID string) ([]*ChargeSnapshot, error)

	CreateInvoice(ctx context.Context, customerID string) (*InvoiceSnapshot, error)
	RetrieveInvoice(ctx context.Context, id string) (*InvoiceSnapshot, error)
	RetryInvoice(ctx context.Context, invoiceID string) (*InvoiceSnapshot, error)
	ListInvoices(ctx context.Context, customerID string) ([]*InvoiceSnapshot, error)
	CreateInvoiceItem(ctx context.Context, params *InvoiceItemParams) (*InvoiceItemSnapshot, error)
}
