package stripegateway

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/charge"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/invoice"
	"github.com/stripe/stripe-go/v84/invoiceitem"
	"github.com/stripe/stripe-go/v84/refund"
	"github.com/stripe/stripe-go/v84/subscription"

	pkgstripe "github.com/davidcastellano/ledgerpay-backend/pkg/stripe"
)

type client struct{}

// NewClient wraps the shared Stripe client as a Gateway so the billing
// services can be tested against stubs.
func NewClient(api *pkgstripe.Client) Gateway {
	if api == nil {
		return nil
	}
	return &client{}
}

func (c *client) CreateCustomer(ctx context.Context, email string) (*CustomerSnapshot, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email = strings.TrimSpace(email); email != "" {
		params.Email = stripe.String(email)
	}
	cust, err := customer.New(params)
	if err != nil {
		return nil, remoteErr("create customer", err)
	}
	return convertCustomer(cust), nil
}

func (c *client) RetrieveCustomer(ctx context.Context, id string) (*CustomerSnapshot, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.AddExpand("default_source")
	params.AddExpand("subscriptions")
	cust, err := customer.Get(id, params)
	if err != nil {
		return nil, remoteErr("retrieve customer", err)
	}
	return convertCustomer(cust), nil
}

func (c *client) DeleteCustomer(ctx context.Context, id string) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if _, err := customer.Del(id, params); err != nil {
		return remoteErr("delete customer", err)
	}
	return nil
}

func (c *client) UpdateSubscription(ctx context.Context, params *SubscriptionParams) (*SubscriptionSnapshot, error) {
	current, err := c.currentSubscription(ctx, params.CustomerID)
	if err != nil {
		return nil, err
	}

	item := &stripe.SubscriptionItemsParams{
		Price: stripe.String(params.PlanID),
	}
	if params.Quantity > 0 {
		item.Quantity = stripe.Int64(int64(params.Quantity))
	}

	if current == nil {
		req := &stripe.SubscriptionParams{
			Customer: stripe.String(params.CustomerID),
			Items:    []*stripe.SubscriptionItemsParams{item},
		}
		req.Context = ctx
		if params.TrialEnd != nil {
			req.TrialEnd = stripe.Int64(params.TrialEnd.Unix())
		}
		sub, err := subscription.New(req)
		if err != nil {
			return nil, remoteErr("create subscription", err)
		}
		return convertSubscription(sub), nil
	}

	if len(current.Items.Data) > 0 {
		item.ID = stripe.String(current.Items.Data[0].ID)
	}
	req := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{item},
	}
	req.Context = ctx
	if params.TrialEnd != nil {
		req.TrialEnd = stripe.Int64(params.TrialEnd.Unix())
	}
	sub, err := subscription.Update(current.ID, req)
	if err != nil {
		return nil, remoteErr("update subscription", err)
	}
	return convertSubscription(sub), nil
}

func (c *client) CancelSubscription(ctx context.Context, customerID string, atPeriodEnd bool) (*SubscriptionSnapshot, error) {
	current, err := c.currentSubscription(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &RemoteError{Kind: KindNotFound, Op: "cancel subscription", Message: "customer has no subscription"}
	}
	if atPeriodEnd {
		req := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
		req.Context = ctx
		sub, err := subscription.Update(current.ID, req)
		if err != nil {
			return nil, remoteErr("cancel subscription", err)
		}
		return convertSubscription(sub), nil
	}
	req := &stripe.SubscriptionCancelParams{}
	req.Context = ctx
	sub, err := subscription.Cancel(current.ID, req)
	if err != nil {
		return nil, remoteErr("cancel subscription", err)
	}
	return convertSubscription(sub), nil
}

func (c *client) currentSubscription(ctx context.Context, customerID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	iter := subscription.List(params)
	for iter.Next() {
		return iter.Subscription(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, remoteErr("list subscriptions", err)
	}
	return nil, nil
}

func (c *client) CreateCharge(ctx context.Context, params *ChargeParams) (*ChargeSnapshot, error) {
	req := &stripe.ChargeParams{
		Amount:   stripe.Int64(params.AmountCents),
		Currency: stripe.String(params.Currency),
		Customer: stripe.String(params.CustomerID),
		Capture:  stripe.Bool(params.Capture),
	}
	req.Context = ctx
	if params.Description != "" {
		req.Description = stripe.String(params.Description)
	}
	if params.Destination != "" {
		req.TransferData = &stripe.ChargeTransferDataParams{
			Destination: stripe.String(params.Destination),
		}
	}
	ch, err := charge.New(req)
	if err != nil {
		return nil, remoteErr("create charge", err)
	}
	return convertCharge(ch), nil
}

func (c *client) RetrieveCharge(ctx context.Context, id string) (*ChargeSnapshot, error) {
	req := &stripe.ChargeParams{}
	req.Context = ctx
	ch, err := charge.Get(id, req)
	if err != nil {
		return nil, remoteErr("retrieve charge", err)
	}
	return convertCharge(ch), nil
}

func (c *client) RefundCharge(ctx context.Context, id string, amountCents int64) (*ChargeSnapshot, error) {
	req := &stripe.RefundParams{
		Charge: stripe.String(id),
		Amount: stripe.Int64(amountCents),
	}
	req.Context = ctx
	if _, err := refund.New(req); err != nil {
		return nil, remoteErr("refund charge", err)
	}
	return c.RetrieveCharge(ctx, id)
}

func (c *client) CaptureCharge(ctx context.Context, id string) (*ChargeSnapshot, error) {
	req := &stripe.ChargeCaptureParams{}
	req.Context = ctx
	ch, err := charge.Capture(id, req)
	if err != nil {
		return nil, remoteErr("capture charge", err)
	}
	return convertCharge(ch), nil
}

func (c *client) ListCharges(ctx context.Context, customerID string) ([]*ChargeSnapshot, error) {
	params := &stripe.ChargeListParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	var out []*ChargeSnapshot
	iter := charge.List(params)
	for iter.Next() {
		out = append(out, convertCharge(iter.Charge()))
	}
	if err := iter.Err(); err != nil {
		return nil, remoteErr("list charges", err)
	}
	return out, nil
}

func (c *client) CreateInvoice(ctx context.Context, customerID string) (*InvoiceSnapshot, error) {
	req := &stripe.InvoiceParams{
		Customer: stripe.String(customerID),
	}
	req.Context = ctx
	inv, err := invoice.New(req)
	if err != nil {
		return nil, remoteErr("create invoice", err)
	}
	return convertInvoice(inv), nil
}

func (c *client) RetrieveInvoice(ctx context.Context, id string) (*InvoiceSnapshot, error) {
	req := &stripe.InvoiceParams{}
	req.Context = ctx
	inv, err := invoice.Get(id, req)
	if err != nil {
		return nil, remoteErr("retrieve invoice", err)
	}
	return convertInvoice(inv), nil
}

func (c *client) RetryInvoice(ctx context.Context, invoiceID string) (*InvoiceSnapshot, error) {
	req := &stripe.InvoicePayParams{}
	req.Context = ctx
	inv, err := invoice.Pay(invoiceID, req)
	if err != nil {
		return nil, remoteErr("pay invoice", err)
	}
	return convertInvoice(inv), nil
}

func (c *client) ListInvoices(ctx context.Context, customerID string) ([]*InvoiceSnapshot, error) {
	params := &stripe.InvoiceListParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	var out []*InvoiceSnapshot
	iter := invoice.List(params)
	for iter.Next() {
		out = append(out, convertInvoice(iter.Invoice()))
	}
	if err := iter.Err(); err != nil {
		return nil, remoteErr("list invoices", err)
	}
	return out, nil
}

func (c *client) CreateInvoiceItem(ctx context.Context, params *InvoiceItemParams) (*InvoiceItemSnapshot, error) {
	req := &stripe.InvoiceItemParams{
		Customer: stripe.String(params.CustomerID),
		Amount:   stripe.Int64(params.AmountCents),
		Currency: stripe.String(params.Currency),
	}
	req.Context = ctx
	if params.Description != "" {
		req.Description = stripe.String(params.Description)
	}
	if params.InvoiceID != "" {
		req.Invoice = stripe.String(params.InvoiceID)
	}
	item, err := invoiceitem.New(req)
	if err != nil {
		return nil, remoteErr("create invoice item", err)
	}
	return convertInvoiceItem(item), nil
}

func convertCustomer(cust *stripe.Customer) *CustomerSnapshot {
	if cust == nil {
		return nil
	}
	snapshot := &CustomerSnapshot{
		ID:      cust.ID,
		Email:   cust.Email,
		Deleted: cust.Deleted,
	}
	if cust.DefaultSource != nil && cust.DefaultSource.Card != nil {
		card := cust.DefaultSource.Card
		snapshot.Card = &CardSnapshot{
			Fingerprint: card.Fingerprint,
			Last4:       card.Last4,
			Kind:        string(card.Brand),
			ExpMonth:    int(card.ExpMonth),
			ExpYear:     int(card.ExpYear),
		}
	}
	if cust.Subscriptions != nil && len(cust.Subscriptions.Data) > 0 {
		snapshot.Subscription = convertSubscription(cust.Subscriptions.Data[0])
	}
	return snapshot
}

func convertSubscription(sub *stripe.Subscription) *SubscriptionSnapshot {
	if sub == nil {
		return nil
	}
	snapshot := &SubscriptionSnapshot{
		ID:                sub.ID,
		Status:            string(sub.Status),
		Start:             sub.StartDate,
		TrialStart:        sub.TrialStart,
		TrialEnd:          sub.TrialEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CanceledAt:        sub.CanceledAt,
		Quantity:          1,
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		snapshot.CurrentPeriodStart = item.CurrentPeriodStart
		snapshot.CurrentPeriodEnd = item.CurrentPeriodEnd
		if item.Quantity > 0 {
			snapshot.Quantity = int(item.Quantity)
		}
		if item.Price != nil {
			snapshot.PlanID = item.Price.ID
			snapshot.AmountCents = item.Price.UnitAmount
		}
	}
	return snapshot
}

func convertCharge(ch *stripe.Charge) *ChargeSnapshot {
	if ch == nil {
		return nil
	}
	snapshot := &ChargeSnapshot{
		ID:                  ch.ID,
		AmountCents:         ch.Amount,
		AmountRefundedCents: ch.AmountRefunded,
		Currency:            string(ch.Currency),
		Paid:                ch.Paid,
		Refunded:            ch.Refunded,
		Captured:            ch.Captured,
		Disputed:            ch.Disputed,
		Description:         ch.Description,
		Created:             ch.Created,
	}
	if ch.Customer != nil {
		snapshot.CustomerID = ch.Customer.ID
	}
	if ch.PaymentMethodDetails != nil && ch.PaymentMethodDetails.Card != nil {
		snapshot.CardLast4 = ch.PaymentMethodDetails.Card.Last4
		snapshot.CardKind = string(ch.PaymentMethodDetails.Card.Brand)
	}
	return snapshot
}

func convertInvoice(inv *stripe.Invoice) *InvoiceSnapshot {
	if inv == nil {
		return nil
	}
	paid := inv.Status == stripe.InvoiceStatusPaid
	closed := paid || inv.Status == stripe.InvoiceStatusVoid || inv.Status == stripe.InvoiceStatusUncollectible
	snapshot := &InvoiceSnapshot{
		ID:          inv.ID,
		TotalCents:  inv.Total,
		Paid:        paid,
		Attempted:   inv.Attempted,
		Closed:      closed,
		PeriodStart: inv.PeriodStart,
		PeriodEnd:   inv.PeriodEnd,
		Date:        inv.Created,
	}
	if inv.Customer != nil {
		snapshot.CustomerID = inv.Customer.ID
	}
	snapshot.ChargeID = invoiceChargeID(inv)
	return snapshot
}

// invoiceChargeID pulls the settled charge id out of the invoice's payment
// list. Charges no longer carry their invoice, so the linkage is only
// visible from the invoice side.
func invoiceChargeID(inv *stripe.Invoice) string {
	if inv.Payments == nil {
		return ""
	}
	for _, payment := range inv.Payments.Data {
		if payment == nil || payment.Payment == nil {
			continue
		}
		if payment.Payment.Charge != nil {
			return payment.Payment.Charge.ID
		}
		if pi := payment.Payment.PaymentIntent; pi != nil && pi.LatestCharge != nil {
			return pi.LatestCharge.ID
		}
	}
	return ""
}

func convertInvoiceItem(item *stripe.InvoiceItem) *InvoiceItemSnapshot {
	if item == nil {
		return nil
	}
	snapshot := &InvoiceItemSnapshot{
		ID:          item.ID,
		AmountCents: item.Amount,
		Currency:    string(item.Currency),
		Description: item.Description,
	}
	if item.Customer != nil {
		snapshot.CustomerID = item.Customer.ID
	}
	if item.Invoice != nil {
		snapshot.InvoiceID = item.Invoice.ID
	}
	return snapshot
}
