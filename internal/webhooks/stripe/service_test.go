package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/davidcastellano/ledgerpay-backend/internal/billing"
	"github.com/davidcastellano/ledgerpay-backend/internal/customers"
	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
	pkgerrors "github.com/davidcastellano/ledgerpay-backend/pkg/errors"
)

type stubBillingRepo struct {
	billing.Repository

	customer *models.Customer
	plans    map[string]*models.BillingPlan
}

func (r *stubBillingRepo) FindCustomerByStripeID(ctx context.Context, stripeID string) (*models.Customer, error) {
	if r.customer != nil && r.customer.StripeID == stripeID {
		return r.customer, nil
	}
	return nil, nil
}

func (r *stubBillingRepo) FindBillingPlanByStripeID(ctx context.Context, stripePlanID string) (*models.BillingPlan, error) {
	return r.plans[stripePlanID], nil
}

func (r *stubBillingRepo) CreateBillingPlan(ctx context.Context, plan *models.BillingPlan) error {
	if r.plans == nil {
		r.plans = make(map[string]*models.BillingPlan)
	}
	r.plans[plan.StripePlanID] = plan
	return nil
}

func (r *stubBillingRepo) UpdateBillingPlan(ctx context.Context, plan *models.BillingPlan) error {
	r.plans[plan.StripePlanID] = plan
	return nil
}

type stubCustomers struct {
	customers.Service

	syncedStripeIDs  []string
	syncedSubs       []uuid.UUID
	recordedCharges  []string
	recordedInvoices []string
	syncByStripeErr  error
}

func (s *stubCustomers) SyncByStripeID(ctx context.Context, stripeID string) error {
	s.syncedStripeIDs = append(s.syncedStripeIDs, stripeID)
	return s.syncByStripeErr
}

func (s *stubCustomers) SyncCurrentSubscription(ctx context.Context, customerID uuid.UUID) (*models.CurrentSubscription, error) {
	s.syncedSubs = append(s.syncedSubs, customerID)
	return nil, nil
}

func (s *stubCustomers) RecordInvoice(ctx context.Context, customerID uuid.UUID, remoteInvoiceID string) error {
	s.recordedInvoices = append(s.recordedInvoices, remoteInvoiceID)
	return nil
}

func (s *stubCustomers) RecordCharge(ctx context.Context, customerID uuid.UUID, remoteChargeID string) (*models.Charge, error) {
	s.recordedCharges = append(s.recordedCharges, remoteChargeID)
	return &models.Charge{ID: uuid.New(), CustomerID: customerID, StripeID: remoteChargeID}, nil
}

func newWebhookService(t *testing.T, repo *stubBillingRepo, svc *stubCustomers) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{BillingRepo: repo, Customers: svc})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return service
}

func eventWithRaw(eventType stripe.EventType, object any) *stripe.Event {
	raw, _ := json.Marshal(object)
	return &stripe.Event{Type: eventType, Data: &stripe.EventData{Raw: raw, Object: toObjectMap(raw)}}
}

func toObjectMap(raw []byte) map[string]interface{} {
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return out
}

func TestHandleCustomerUpdatedSyncsByStripeID(t *testing.T) {
	svc := &stubCustomers{}
	service := newWebhookService(t, &stubBillingRepo{}, svc)

	event := eventWithRaw(stripe.EventTypeCustomerUpdated, map[string]string{"id": "cus_hook"})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(svc.syncedStripeIDs) != 1 || svc.syncedStripeIDs[0] != "cus_hook" {
		t.Fatalf("expected sync for cus_hook, got %v", svc.syncedStripeIDs)
	}
}

func TestHandleCustomerEventForUnknownCustomerIsDropped(t *testing.T) {
	svc := &stubCustomers{syncByStripeErr: pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")}
	service := newWebhookService(t, &stubBillingRepo{}, svc)

	event := eventWithRaw(stripe.EventTypeCustomerDeleted, map[string]string{"id": "cus_unknown"})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unknown customers must be dropped, got %v", err)
	}
}

func TestHandleSubscriptionEventSyncsCurrentSubscription(t *testing.T) {
	customer := &models.Customer{ID: uuid.New(), StripeID: "cus_sub"}
	svc := &stubCustomers{}
	service := newWebhookService(t, &stubBillingRepo{customer: customer}, svc)

	event := eventWithRaw(stripe.EventTypeCustomerSubscriptionUpdated, &stripe.Subscription{
		ID:       "sub_hook",
		Customer: &stripe.Customer{ID: "cus_sub"},
	})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(svc.syncedSubs) != 1 || svc.syncedSubs[0] != customer.ID {
		t.Fatalf("expected subscription sync for %s, got %v", customer.ID, svc.syncedSubs)
	}
}

func TestHandleChargeEventRecordsCharge(t *testing.T) {
	customer := &models.Customer{ID: uuid.New(), StripeID: "cus_charge"}
	svc := &stubCustomers{}
	service := newWebhookService(t, &stubBillingRepo{customer: customer}, svc)

	event := eventWithRaw(stripe.EventTypeChargeSucceeded, &stripe.Charge{
		ID:       "ch_hook",
		Customer: &stripe.Customer{ID: "cus_charge"},
	})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(svc.recordedCharges) != 1 || svc.recordedCharges[0] != "ch_hook" {
		t.Fatalf("expected charge recorded, got %v", svc.recordedCharges)
	}
}

func TestHandleChargeEventForUnknownCustomerIsDropped(t *testing.T) {
	svc := &stubCustomers{}
	service := newWebhookService(t, &stubBillingRepo{}, svc)

	event := eventWithRaw(stripe.EventTypeChargeSucceeded, &stripe.Charge{
		ID:       "ch_orphan",
		Customer: &stripe.Customer{ID: "cus_orphan"},
	})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unknown customers must be dropped, got %v", err)
	}
	if len(svc.recordedCharges) != 0 {
		t.Fatalf("no charge must be recorded for unknown customers")
	}
}

func TestHandleInvoiceEventRecordsInvoice(t *testing.T) {
	customer := &models.Customer{ID: uuid.New(), StripeID: "cus_inv"}
	svc := &stubCustomers{}
	service := newWebhookService(t, &stubBillingRepo{customer: customer}, svc)

	event := eventWithRaw(stripe.EventTypeInvoicePaid, &stripe.Invoice{
		ID:       "in_hook",
		Customer: &stripe.Customer{ID: "cus_inv"},
	})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(svc.recordedInvoices) != 1 || svc.recordedInvoices[0] != "in_hook" {
		t.Fatalf("expected invoice in_hook recorded, got %v", svc.recordedInvoices)
	}
}

func TestHandlePlanEventUpsertsCatalog(t *testing.T) {
	repo := &stubBillingRepo{}
	svc := &stubCustomers{}
	service := newWebhookService(t, repo, svc)

	event := eventWithRaw(stripe.EventTypePlanCreated, &stripe.Plan{
		ID:              "plan_gold",
		Nickname:        "Gold",
		Amount:          2999,
		Currency:        stripe.CurrencyUSD,
		TrialPeriodDays: 14,
	})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	created := repo.plans["plan_gold"]
	if created == nil {
		t.Fatalf("plan row missing after create event")
	}
	if created.Name != "Gold" || created.TrialDays != 14 {
		t.Fatalf("unexpected plan row %+v", created)
	}
	if !created.PriceAmount.Equal(decimal.RequireFromString("29.99")) {
		t.Fatalf("expected 29.99, got %s", created.PriceAmount)
	}

	update := eventWithRaw(stripe.EventTypePlanUpdated, &stripe.Plan{
		ID:       "plan_gold",
		Nickname: "Gold Annual",
		Amount:   29900,
		Currency: stripe.CurrencyUSD,
	})
	if err := service.HandleEvent(context.Background(), update); err != nil {
		t.Fatalf("handle update: %v", err)
	}
	updated := repo.plans["plan_gold"]
	if updated.Name != "Gold Annual" || !updated.PriceAmount.Equal(decimal.RequireFromString("299.00")) {
		t.Fatalf("unexpected updated plan %+v", updated)
	}
}

func TestHandleUnrelatedEventIsIgnored(t *testing.T) {
	svc := &stubCustomers{}
	service := newWebhookService(t, &stubBillingRepo{}, svc)

	event := eventWithRaw(stripe.EventType("payout.paid"), map[string]string{"id": "po_x"})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unrelated events are ignored, got %v", err)
	}
	if len(svc.syncedStripeIDs)+len(svc.syncedSubs)+len(svc.recordedCharges)+len(svc.recordedInvoices) != 0 {
		t.Fatalf("no sync expected for unrelated events")
	}
}
