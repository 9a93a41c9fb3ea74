package customers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/davidcastellano/ledgerpay-backend/internal/billing"
	"github.com/davidcastellano/ledgerpay-backend/internal/charges"
	"github.com/davidcastellano/ledgerpay-backend/internal/stripegateway"
	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
	pkgerrors "github.com/davidcastellano/ledgerpay-backend/pkg/errors"
	"github.com/davidcastellano/ledgerpay-backend/pkg/logger"
	"github.com/davidcastellano/ledgerpay-backend/pkg/money"
)

type subscriberRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TrialPolicy maps a subscriber onto a trial length in days. Zero means no
// trial for that subscriber.
type TrialPolicy func(subscriber *models.User) int

// Service is the façade over the customer mirror: account lifecycle, billing
// operations, and the sync passes that fold remote state back in.
type Service interface {
	Create(ctx context.Context, subscriberID uuid.UUID) (*models.Customer, error)
	Purge(ctx context.Context, customerID uuid.UUID) error
	Delete(ctx context.Context, customerID uuid.UUID) error
	CanCharge(ctx context.Context, customerID uuid.UUID) (bool, error)

	Charge(ctx context.Context, customerID uuid.UUID, input ChargeInput) (*models.Charge, error)
	AddInvoiceItem(ctx context.Context, customerID uuid.UUID, input InvoiceItemInput) (*stripegateway.InvoiceItemSnapshot, error)
	Subscribe(ctx context.Context, customerID uuid.UUID, input SubscribeInput) error
	CancelSubscription(ctx context.Context, customerID uuid.UUID, atPeriodEnd bool) (*models.CurrentSubscription, error)
	SendInvoice(ctx context.Context, customerID uuid.UUID) (bool, error)
	RetryUnpaidInvoices(ctx context.Context, customerID uuid.UUID) error
	RecordCharge(ctx context.Context, customerID uuid.UUID, remoteChargeID string) (*models.Charge, error)
	RecordInvoice(ctx context.Context, customerID uuid.UUID, remoteInvoiceID string) error

	Sync(ctx context.Context, customerID uuid.UUID) error
	SyncByStripeID(ctx context.Context, stripeID string) error
	SyncInvoices(ctx context.Context, customerID uuid.UUID) error
	SyncCharges(ctx context.Context, customerID uuid.UUID) error
	SyncCurrentSubscription(ctx context.Context, customerID uuid.UUID) (*models.CurrentSubscription, error)
}

// ServiceParams groups dependencies for the customer service.
type ServiceParams struct {
	Repo              billing.Repository
	SubscriberRepo    subscriberRepository
	Gateway           stripegateway.Gateway
	Charges           charges.Service
	Logger            *logger.Logger
	TransactionRunner txRunner
	Receipts          Notifier

	DefaultPlanID    string
	DefaultTrialDays int
	DefaultCurrency  string
	TrialPolicy      TrialPolicy
}

// ChargeInput captures a direct charge request. Amount is decimal dollars;
// zero-value Capture and SendReceipt default to true.
type ChargeInput struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	Capture     *bool
	Destination string
	SendReceipt *bool
}

type InvoiceItemInput struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	InvoiceID   string
}

// SubscribeInput configures a subscription start or plan change. TrialDays
// nil falls through to the trial policy, then the configured default.
type SubscribeInput struct {
	PlanID            string
	Quantity          int
	TrialDays         *int
	ChargeImmediately *bool
}

type service struct {
	repo        billing.Repository
	subscribers subscriberRepository
	gateway     stripegateway.Gateway
	charges     charges.Service
	logg        *logger.Logger
	txRunner    txRunner
	receipts    Notifier

	defaultPlanID    string
	defaultTrialDays int
	defaultCurrency  string
	trialPolicy      TrialPolicy
}

// NewService builds a customer service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("billing repo required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("stripe gateway required")
	}
	if params.Charges == nil {
		return nil, fmt.Errorf("charge service required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	currency := strings.TrimSpace(strings.ToLower(params.DefaultCurrency))
	if currency == "" {
		currency = "usd"
	}
	return &service{
		repo:             params.Repo,
		subscribers:      params.SubscriberRepo,
		gateway:          params.Gateway,
		charges:          params.Charges,
		logg:             params.Logger,
		txRunner:         params.TransactionRunner,
		receipts:         params.Receipts,
		defaultPlanID:    strings.TrimSpace(params.DefaultPlanID),
		defaultTrialDays: params.DefaultTrialDays,
		defaultCurrency:  currency,
		trialPolicy:      params.TrialPolicy,
	}, nil
}

// Create provisions the remote account for a subscriber and persists the
// local mirror. When a default plan is configured the subscriber is signed up
// for it immediately.
func (s *service) Create(ctx context.Context, subscriberID uuid.UUID) (*models.Customer, error) {
	if subscriberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscriber id is required")
	}
	if s.subscribers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriber repo not configured")
	}
	subscriber, err := s.subscribers.FindByID(ctx, subscriberID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find subscriber")
	}
	if subscriber == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscriber not found")
	}

	existing, err := s.repo.FindCustomerBySubscriberID(ctx, subscriberID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find customer")
	}
	if existing != nil {
		return existing, nil
	}

	snapshot, err := s.gateway.CreateCustomer(ctx, subscriber.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create remote customer")
	}

	customer := &models.Customer{
		SubscriberID: &subscriber.ID,
		StripeID:     snapshot.ID,
	}
	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create customer")
	}
	if s.logg != nil {
		ctx = s.logg.WithStripeID(ctx, customer.StripeID)
		s.logg.Info(ctx, "customer created")
	}

	if s.defaultPlanID != "" {
		if err := s.Subscribe(ctx, customer.ID, SubscribeInput{PlanID: s.defaultPlanID}); err != nil {
			return nil, err
		}
	}
	return customer, nil
}

// Purge detaches the customer from its subscriber: the remote account is
// deleted best-effort, then the subscriber reference and card fields are
// cleared in one transaction. The row and its stripe_id survive so charge
// history keeps a valid parent.
//
// A remote not-found means the account is already gone and is treated as
// consistent; any other remote error aborts before local state is touched.
func (s *service) Purge(ctx context.Context, customerID uuid.UUID) error {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	return s.purge(ctx, customer)
}

func (s *service) purge(ctx context.Context, customer *models.Customer) error {
	if err := s.gateway.DeleteCustomer(ctx, customer.StripeID); err != nil {
		if !stripegateway.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete remote customer")
		}
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("remote customer %s already deleted", customer.StripeID))
		}
	}

	customer.SubscriberID = nil
	clearCardFields(customer)
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).UpdateCustomer(ctx, customer)
	})
}

// Delete purges the customer and deactivates the subscriber record itself.
func (s *service) Delete(ctx context.Context, customerID uuid.UUID) error {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	subscriberID := customer.SubscriberID
	if err := s.purge(ctx, customer); err != nil {
		return err
	}
	if subscriberID != nil && s.subscribers != nil {
		if err := s.subscribers.Deactivate(ctx, *subscriberID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate subscriber")
		}
	}
	return nil
}

// CanCharge reports whether the customer has a subscriber and a card on file.
func (s *service) CanCharge(ctx context.Context, customerID uuid.UUID) (bool, error) {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return false, err
	}
	return customer.SubscriberID != nil && customer.CardFingerprint != "", nil
}

// Charge creates a remote charge in integer cents, then re-fetches the
// authoritative snapshot and upserts the local row from it.
func (s *service) Charge(ctx context.Context, customerID uuid.UUID, input ChargeInput) (*models.Charge, error) {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "you must supply a decimal value representing dollars")
	}

	destination := strings.TrimSpace(input.Destination)
	if destination == "" {
		account, err := s.repo.FindDefaultAccount(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find default account")
		}
		if account != nil {
			destination = account.StripeID
		}
	}

	snapshot, err := s.gateway.CreateCharge(ctx, &stripegateway.ChargeParams{
		CustomerID:  customer.StripeID,
		AmountCents: money.ToCents(input.Amount),
		Currency:    s.currencyOrDefault(input.Currency),
		Description: strings.TrimSpace(input.Description),
		Capture:     boolOrTrue(input.Capture),
		Destination: destination,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create remote charge")
	}

	charge, err := s.recordChargeByID(ctx, customer, snapshot.ID)
	if err != nil {
		return nil, err
	}

	if boolOrTrue(input.SendReceipt) && !charge.Disputed && s.receipts != nil {
		if err := s.receipts.SendReceipt(ctx, customer, charge); err != nil && s.logg != nil {
			s.logg.Error(ctx, "send receipt", err)
		}
	}
	return charge, nil
}

// AddInvoiceItem creates a pending line item on the customer's next invoice.
func (s *service) AddInvoiceItem(ctx context.Context, customerID uuid.UUID, input InvoiceItemInput) (*stripegateway.InvoiceItemSnapshot, error) {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "you must supply a decimal value representing dollars")
	}
	item, err := s.gateway.CreateInvoiceItem(ctx, &stripegateway.InvoiceItemParams{
		CustomerID:  customer.StripeID,
		AmountCents: money.ToCents(input.Amount),
		Currency:    s.currencyOrDefault(input.Currency),
		Description: strings.TrimSpace(input.Description),
		InvoiceID:   strings.TrimSpace(input.InvoiceID),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice item")
	}
	return item, nil
}

// Subscribe points the remote subscription at the requested plan. Trial
// length resolves as explicit input, then the trial policy, then the
// configured default. The local snapshot is always re-synced afterward, and
// an invoice is cut immediately unless suppressed.
func (s *service) Subscribe(ctx context.Context, customerID uuid.UUID, input SubscribeInput) error {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return err
	}

	planID := strings.TrimSpace(input.PlanID)
	if planID == "" {
		planID = s.defaultPlanID
	}
	if planID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	plan, err := s.repo.FindBillingPlanByID(ctx, planID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find billing plan")
	}
	if plan == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "billing plan not found")
	}

	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	trialEnd := s.resolveTrialEnd(ctx, customer, input.TrialDays)
	if _, err := s.gateway.UpdateSubscription(ctx, &stripegateway.SubscriptionParams{
		CustomerID: customer.StripeID,
		PlanID:     plan.StripePlanID,
		Quantity:   quantity,
		TrialEnd:   trialEnd,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update remote subscription")
	}

	if _, err := s.SyncCurrentSubscription(ctx, customer.ID); err != nil {
		return err
	}

	if boolOrTrue(input.ChargeImmediately) {
		if _, err := s.SendInvoice(ctx, customer.ID); err != nil {
			return err
		}
	}
	return nil
}

// CancelSubscription cancels the remote subscription and folds the resulting
// state into the local record.
func (s *service) CancelSubscription(ctx context.Context, customerID uuid.UUID, atPeriodEnd bool) (*models.CurrentSubscription, error) {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.gateway.CancelSubscription(ctx, customer.StripeID, atPeriodEnd)
	if err != nil {
		if stripegateway.IsNotFound(err) {
			// Nothing live remotely; make sure the local record agrees.
			return s.reconcileCurrentSubscription(ctx, customer, nil)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel remote subscription")
	}
	return s.reconcileCurrentSubscription(ctx, customer, snapshot)
}

// SendInvoice cuts an invoice for any pending line items. The boolean
// contract is deliberate: a remote failure of any kind is a normal false,
// not an error. Local persistence failures still propagate.
func (s *service) SendInvoice(ctx context.Context, customerID uuid.UUID) (bool, error) {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return false, err
	}
	snapshot, err := s.gateway.CreateInvoice(ctx, customer.StripeID)
	if err != nil {
		// Any remote failure, not just "nothing to invoice", folds to
		// false: callers treat the bool as "was an invoice raised".
		if s.logg != nil && !stripegateway.IsNothingToInvoice(err) {
			s.logg.Warn(ctx, fmt.Sprintf("remote invoice creation failed for %s: %v", customer.StripeID, err))
		}
		return false, nil
	}
	if err := s.upsertInvoice(ctx, customer, snapshot); err != nil {
		return false, err
	}
	return true, nil
}

// RetryUnpaidInvoices re-syncs invoices, then retries payment on each unpaid
// one. An "already paid" response races with Stripe's own collection and is
// swallowed per invoice; any other remote error halts the remaining retries.
func (s *service) RetryUnpaidInvoices(ctx context.Context, customerID uuid.UUID) error {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	if err := s.syncInvoices(ctx, customer); err != nil {
		return err
	}
	unpaid, err := s.repo.ListUnpaidInvoices(ctx, customer.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list unpaid invoices")
	}
	for i := range unpaid {
		invoice := &unpaid[i]
		snapshot, err := s.gateway.RetryInvoice(ctx, invoice.StripeID)
		if err != nil {
			if stripegateway.IsAlreadyPaid(err) {
				if s.logg != nil {
					s.logg.Warn(ctx, fmt.Sprintf("invoice %s already paid", invoice.StripeID))
				}
				continue
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retry invoice")
		}
		if err := s.upsertInvoice(ctx, customer, snapshot); err != nil {
			return err
		}
	}
	return nil
}

// RecordCharge fetches the remote charge by id and upserts it locally.
func (s *service) RecordCharge(ctx context.Context, customerID uuid.UUID, remoteChargeID string) (*models.Charge, error) {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.recordChargeByID(ctx, customer, remoteChargeID)
}

// RecordInvoice re-fetches a single remote invoice and upserts it, the
// invoice-side analogue of RecordCharge.
func (s *service) RecordInvoice(ctx context.Context, customerID uuid.UUID, remoteInvoiceID string) error {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(remoteInvoiceID)
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "remote invoice id is required")
	}
	snapshot, err := s.gateway.RetrieveInvoice(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve remote invoice")
	}
	return s.upsertInvoice(ctx, customer, snapshot)
}

// Sync pulls the remote account snapshot. A remotely deleted account purges
// the local record; otherwise the card fields are replaced from the active
// remote card (or cleared when none is on file), the subscription is
// reconciled, and the invoice and charge mirrors are refreshed.
func (s *service) Sync(ctx context.Context, customerID uuid.UUID) error {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	return s.sync(ctx, customer)
}

// SyncByStripeID is the webhook entry point: it resolves the local mirror by
// remote id and runs a full account sync.
func (s *service) SyncByStripeID(ctx context.Context, stripeID string) error {
	customer, err := s.repo.FindCustomerByStripeID(ctx, strings.TrimSpace(stripeID))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find customer")
	}
	if customer == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return s.sync(ctx, customer)
}

func (s *service) sync(ctx context.Context, customer *models.Customer) error {
	snapshot, err := s.gateway.RetrieveCustomer(ctx, customer.StripeID)
	if err != nil {
		if stripegateway.IsNotFound(err) {
			return s.purge(ctx, customer)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve remote customer")
	}
	if snapshot.Deleted {
		return s.purge(ctx, customer)
	}

	applyCardSnapshot(customer, snapshot.Card)
	if err := s.repo.UpdateCustomer(ctx, customer); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update customer")
	}

	if _, err := s.reconcileCurrentSubscription(ctx, customer, snapshot.Subscription); err != nil {
		return err
	}
	if err := s.syncInvoices(ctx, customer); err != nil {
		return err
	}
	return s.syncCharges(ctx, customer)
}

// SyncInvoices lists the customer's remote invoices and upserts each one.
func (s *service) SyncInvoices(ctx context.Context, customerID uuid.UUID) error {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	return s.syncInvoices(ctx, customer)
}

func (s *service) syncInvoices(ctx context.Context, customer *models.Customer) error {
	snapshots, err := s.gateway.ListInvoices(ctx, customer.StripeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list remote invoices")
	}
	var errs error
	for _, snapshot := range snapshots {
		if err := s.upsertInvoice(ctx, customer, snapshot); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// SyncCharges lists the customer's remote charges and upserts each one.
// Receipts are never sent from a bulk sync.
func (s *service) SyncCharges(ctx context.Context, customerID uuid.UUID) error {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	return s.syncCharges(ctx, customer)
}

func (s *service) syncCharges(ctx context.Context, customer *models.Customer) error {
	snapshots, err := s.gateway.ListCharges(ctx, customer.StripeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list remote charges")
	}
	var errs error
	for _, snapshot := range snapshots {
		if _, _, err := s.charges.GetOrCreateFromSnapshot(ctx, snapshot, customer.ID); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// SyncCurrentSubscription re-reads the remote subscription and reconciles
// the local snapshot (see reconcileCurrentSubscription).
func (s *service) SyncCurrentSubscription(ctx context.Context, customerID uuid.UUID) (*models.CurrentSubscription, error) {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.gateway.RetrieveCustomer(ctx, customer.StripeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve remote customer")
	}
	return s.reconcileCurrentSubscription(ctx, customer, snapshot.Subscription)
}

func (s *service) findCustomer(ctx context.Context, customerID uuid.UUID) (*models.Customer, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	customer, err := s.repo.FindCustomerByID(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find customer")
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return customer, nil
}

func (s *service) recordChargeByID(ctx context.Context, customer *models.Customer, remoteChargeID string) (*models.Charge, error) {
	id := strings.TrimSpace(remoteChargeID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "remote charge id is required")
	}
	snapshot, err := s.gateway.RetrieveCharge(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve remote charge")
	}
	charge, _, err := s.charges.GetOrCreateFromSnapshot(ctx, snapshot, customer.ID)
	return charge, err
}

func (s *service) upsertInvoice(ctx context.Context, customer *models.Customer, snapshot *stripegateway.InvoiceSnapshot) error {
	if snapshot == nil || strings.TrimSpace(snapshot.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, "invoice snapshot is missing a remote id")
	}
	existing, err := s.repo.FindInvoiceByStripeID(ctx, snapshot.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find invoice")
	}
	if existing != nil {
		if err := UpdateInvoiceFromSnapshot(existing, snapshot); err != nil {
			return err
		}
		if err := s.repo.UpdateInvoice(ctx, existing); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update invoice")
		}
		return s.linkInvoiceCharge(ctx, customer, snapshot)
	}
	invoice, err := BuildInvoiceFromSnapshot(snapshot, customer.ID)
	if err != nil {
		return err
	}
	if err := s.repo.CreateInvoice(ctx, invoice); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create invoice")
	}
	return s.linkInvoiceCharge(ctx, customer, snapshot)
}

// linkInvoiceCharge upserts the charge that settled an invoice. The remote
// charge object does not name its invoice, so the id learned from the
// invoice's payment list is stamped onto the snapshot before the upsert.
func (s *service) linkInvoiceCharge(ctx context.Context, customer *models.Customer, snapshot *stripegateway.InvoiceSnapshot) error {
	chargeID := strings.TrimSpace(snapshot.ChargeID)
	if chargeID == "" {
		return nil
	}
	chargeSnapshot, err := s.gateway.RetrieveCharge(ctx, chargeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve invoice charge")
	}
	if chargeSnapshot == nil {
		return nil
	}
	chargeSnapshot.InvoiceID = snapshot.ID
	_, _, err = s.charges.GetOrCreateFromSnapshot(ctx, chargeSnapshot, customer.ID)
	return err
}

func (s *service) resolveTrialEnd(ctx context.Context, customer *models.Customer, explicit *int) *time.Time {
	days := 0
	switch {
	case explicit != nil:
		days = *explicit
	case s.trialPolicy != nil && customer.SubscriberID != nil && s.subscribers != nil:
		subscriber, err := s.subscribers.FindByID(ctx, *customer.SubscriberID)
		if err == nil && subscriber != nil {
			days = s.trialPolicy(subscriber)
		}
	default:
		days = s.defaultTrialDays
	}
	if days <= 0 {
		return nil
	}
	end := time.Now().UTC().Add(time.Duration(days) * 24 * time.Hour)
	return &end
}

func (s *service) currencyOrDefault(currency string) string {
	if trimmed := strings.TrimSpace(strings.ToLower(currency)); trimmed != "" {
		return trimmed
	}
	return s.defaultCurrency
}

func boolOrTrue(value *bool) bool {
	return value == nil || *value
}
