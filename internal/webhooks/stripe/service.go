package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/davidcastellano/ledgerpay-backend/internal/billing"
	"github.com/davidcastellano/ledgerpay-backend/internal/customers"
	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
	pkgerrors "github.com/davidcastellano/ledgerpay-backend/pkg/errors"
	"github.com/davidcastellano/ledgerpay-backend/pkg/logger"
	"github.com/davidcastellano/ledgerpay-backend/pkg/money"
)

// ServiceParams groups dependencies for the webhook service.
type ServiceParams struct {
	BillingRepo billing.Repository
	Customers   customers.Service
	Logger      *logger.Logger
}

// Service maps incoming Stripe events onto the customer sync surface. Events
// for accounts that have no local mirror are logged and dropped; the webhook
// never creates customers on its own.
type Service struct {
	billingRepo billing.Repository
	customers   customers.Service
	logg        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.BillingRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "billing repo required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer service required")
	}
	return &Service{
		billingRepo: params.BillingRepo,
		customers:   params.Customers,
		logg:        params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCustomerUpdated, stripe.EventTypeCustomerDeleted:
		return s.syncCustomer(ctx, event.GetObjectValue("id"))

	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		if sub.Customer == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "subscription event missing customer")
		}
		return s.withLocalCustomer(ctx, sub.Customer.ID, func(customerID uuid.UUID) error {
			_, err := s.customers.SyncCurrentSubscription(ctx, customerID)
			return err
		})

	case stripe.EventTypeChargeSucceeded,
		stripe.EventTypeChargeCaptured,
		stripe.EventTypeChargeRefunded,
		stripe.EventTypeChargeUpdated:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode charge event")
		}
		if charge.Customer == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "charge event missing customer")
		}
		return s.withLocalCustomer(ctx, charge.Customer.ID, func(customerID uuid.UUID) error {
			_, err := s.customers.RecordCharge(ctx, customerID, charge.ID)
			return err
		})

	case stripe.EventTypeInvoicePaid,
		stripe.EventTypeInvoicePaymentFailed,
		stripe.EventTypeInvoiceUpdated:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode invoice event")
		}
		if invoice.Customer == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "invoice event missing customer")
		}
		return s.withLocalCustomer(ctx, invoice.Customer.ID, func(customerID uuid.UUID) error {
			return s.customers.RecordInvoice(ctx, customerID, invoice.ID)
		})

	case stripe.EventTypePlanCreated, stripe.EventTypePlanUpdated:
		var plan stripe.Plan
		if err := json.Unmarshal(event.Data.Raw, &plan); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode plan event")
		}
		return s.upsertPlan(ctx, &plan)

	default:
		return nil
	}
}

// upsertPlan mirrors the remote plan into the local catalog so subscription
// reconciliation can resolve it by stripe plan id.
func (s *Service) upsertPlan(ctx context.Context, plan *stripe.Plan) error {
	if plan.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan event missing id")
	}
	name := plan.Nickname
	if name == "" {
		name = plan.ID
	}
	existing, err := s.billingRepo.FindBillingPlanByStripeID(ctx, plan.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find billing plan")
	}
	if existing == nil {
		row := &models.BillingPlan{
			ID:           plan.ID,
			Name:         name,
			StripePlanID: plan.ID,
			PriceAmount:  money.FromCents(plan.Amount),
			CurrencyCode: string(plan.Currency),
			TrialDays:    int(plan.TrialPeriodDays),
		}
		if err := s.billingRepo.CreateBillingPlan(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create billing plan")
		}
		return nil
	}
	existing.Name = name
	existing.PriceAmount = money.FromCents(plan.Amount)
	existing.CurrencyCode = string(plan.Currency)
	existing.TrialDays = int(plan.TrialPeriodDays)
	if err := s.billingRepo.UpdateBillingPlan(ctx, existing); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update billing plan")
	}
	return nil
}

func (s *Service) syncCustomer(ctx context.Context, stripeID string) error {
	if stripeID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer event missing id")
	}
	err := s.customers.SyncByStripeID(ctx, stripeID)
	if err != nil && pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
		if s.logg != nil {
			s.logg.Warn(ctx, "event for unknown customer "+stripeID)
		}
		return nil
	}
	return err
}

func (s *Service) withLocalCustomer(ctx context.Context, stripeID string, fn func(uuid.UUID) error) error {
	customer, err := s.billingRepo.FindCustomerByStripeID(ctx, stripeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find customer")
	}
	if customer == nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "event for unknown customer "+stripeID)
		}
		return nil
	}
	return fn(customer.ID)
}
