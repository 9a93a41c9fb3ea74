package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/davidcastellano/ledgerpay-backend/api/responses"
	"github.com/davidcastellano/ledgerpay-backend/api/validators"
	"github.com/davidcastellano/ledgerpay-backend/internal/customers"
	"github.com/davidcastellano/ledgerpay-backend/internal/stripegateway"
	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
	pkgerrors "github.com/davidcastellano/ledgerpay-backend/pkg/errors"
	"github.com/davidcastellano/ledgerpay-backend/pkg/logger"
	"github.com/davidcastellano/ledgerpay-backend/pkg/money"
)

// CustomerService describes the customer operations used by the HTTP layer.
type CustomerService interface {
	Create(ctx context.Context, subscriberID uuid.UUID) (*models.Customer, error)
	Purge(ctx context.Context, customerID uuid.UUID) error
	Charge(ctx context.Context, customerID uuid.UUID, input customers.ChargeInput) (*models.Charge, error)
	AddInvoiceItem(ctx context.Context, customerID uuid.UUID, input customers.InvoiceItemInput) (*stripegateway.InvoiceItemSnapshot, error)
	Subscribe(ctx context.Context, customerID uuid.UUID, input customers.SubscribeInput) error
	CancelSubscription(ctx context.Context, customerID uuid.UUID, atPeriodEnd bool) (*models.CurrentSubscription, error)
	SendInvoice(ctx context.Context, customerID uuid.UUID) (bool, error)
	RetryUnpaidInvoices(ctx context.Context, customerID uuid.UUID) error
	Sync(ctx context.Context, customerID uuid.UUID) error
}

// BillingReadService describes the read-only mirror queries used by the HTTP layer.
type BillingReadService interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	GetCurrentSubscription(ctx context.Context, customerID uuid.UUID) (*models.CurrentSubscription, error)
	ListCharges(ctx context.Context, customerID uuid.UUID) ([]models.Charge, error)
	ListInvoices(ctx context.Context, customerID uuid.UUID) ([]models.Invoice, error)
}

type customerCreateRequest struct {
	SubscriberID string `json:"subscriber_id" validate:"required,uuid"`
}

type customerChargeRequest struct {
	Amount      string `json:"amount" validate:"required"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Capture     *bool  `json:"capture"`
	Destination string `json:"destination"`
	SendReceipt *bool  `json:"send_receipt"`
}

type customerSubscribeRequest struct {
	PlanID            string `json:"plan_id"`
	Quantity          int    `json:"quantity"`
	TrialDays         *int   `json:"trial_days"`
	ChargeImmediately *bool  `json:"charge_immediately"`
}

type invoiceItemRequest struct {
	Amount      string `json:"amount" validate:"required"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	InvoiceID   string `json:"invoice_id"`
}

type customerResponse struct {
	ID              string  `json:"id"`
	SubscriberID    *string `json:"subscriber_id"`
	StripeID        string  `json:"stripe_id"`
	CardFingerprint string  `json:"card_fingerprint,omitempty"`
	CardLast4       string  `json:"card_last_4,omitempty"`
	CardKind        string  `json:"card_kind,omitempty"`
	CardExpMonth    int     `json:"card_exp_month,omitempty"`
	CardExpYear     int     `json:"card_exp_year,omitempty"`
	Purged          bool    `json:"purged"`
	CreatedAt       string  `json:"created_at"`
}

type chargeResponse struct {
	ID             string  `json:"id"`
	CustomerID     string  `json:"customer_id"`
	StripeID       string  `json:"stripe_id"`
	InvoiceID      *string `json:"invoice_id,omitempty"`
	Amount         string  `json:"amount"`
	AmountRefunded string  `json:"amount_refunded"`
	Currency       string  `json:"currency"`
	Paid           bool    `json:"paid"`
	Disputed       bool    `json:"disputed"`
	Refunded       bool    `json:"refunded"`
	Captured       bool    `json:"captured"`
	Description    *string `json:"description,omitempty"`
	ChargeCreated  *string `json:"charge_created,omitempty"`
}

type invoiceResponse struct {
	ID          string  `json:"id"`
	CustomerID  string  `json:"customer_id"`
	StripeID    string  `json:"stripe_id"`
	Total       string  `json:"total"`
	Paid        bool    `json:"paid"`
	Attempted   bool    `json:"attempted"`
	Closed      bool    `json:"closed"`
	PeriodStart *string `json:"period_start,omitempty"`
	PeriodEnd   *string `json:"period_end,omitempty"`
	Date        *string `json:"date,omitempty"`
}

type subscriptionResponse struct {
	ID                 string  `json:"id"`
	CustomerID         string  `json:"customer_id"`
	PlanID             string  `json:"plan_id"`
	Quantity           int     `json:"quantity"`
	Amount             string  `json:"amount"`
	Status             string  `json:"status"`
	Start              *string `json:"start,omitempty"`
	CurrentPeriodStart *string `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *string `json:"current_period_end,omitempty"`
	TrialStart         *string `json:"trial_start,omitempty"`
	TrialEnd           *string `json:"trial_end,omitempty"`
	CancelAtPeriodEnd  bool    `json:"cancel_at_period_end"`
	CanceledAt         *string `json:"canceled_at,omitempty"`
}

func CustomerCreate(svc CustomerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var payload customerCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		subscriberID, err := uuid.Parse(payload.SubscriberID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid subscriber id"))
			return
		}
		customer, err := svc.Create(ctx, subscriberID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, customerToResponse(customer))
	}
}

func CustomerDetail(svc BillingReadService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := customerIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		customer, err := svc.GetCustomer(ctx, customerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if customer == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found"))
			return
		}
		responses.WriteSuccess(w, customerToResponse(customer))
	}
}

func CustomerPurge(svc CustomerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := customerIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Purge(ctx, customerID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "purged"})
	}
}

func CustomerCharge(svc CustomerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := customerIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload customerChargeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		amount, err := money.ParseAmount(payload.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		charge, err := svc.Charge(ctx, customerID, customers.ChargeInput{
			Amount:      amount,
			Currency:    payload.Currency,
			Description: validators.SanitizeString(payload.Description, 500),
			Capture:     payload.Capture,
			Destination: payload.Destination,
			SendReceipt: payload.SendReceipt,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, chargeToResponse(charge))
	}
}

func CustomerCharges(svc BillingReadService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := customerIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		charges, err := svc.ListCharges(ctx, customerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := make([]chargeResponse, 0, len(charges))
		for i := range charges {
			out = append(out, chargeToResponse(&charges[i]))
		}
		responses.WriteSuccess(w, map[string]any{"charges": out})
	}
}

func CustomerInvoices(svc BillingReadService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := customerIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		invoices, err := svc.ListInvoices(ctx, customerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := make([]invoiceResponse, 0, len(invoices))
		for i := range invoices {
			out = append(out, invoiceToResponse(&invoices[i]))
		}
		responses.WriteSuccess(w, map[string]any{"invoices": out})
	}
}

func CustomerSubscribe(svc CustomerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := customerIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload customerSubscribeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Subscribe(ctx, customerID, customers.SubscribeInput{
			PlanID:            payload.PlanID,
			Quantity:          payload.Quantity,
			TrialDays:         payload.TrialDays,
			ChargeImmediately: payload.ChargeImmediately,
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "subscribed"})
	}
}

func CustomerSubscriptionDetail(svc BillingReadService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := customerIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		sub, err := svc.GetCurrentSubscription(ctx, customerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if sub == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found"))
			return
		}
		responses.WriteSuccess(w, subscriptionToResponse(sub))
	}
}

func CustomerCancelSubscription(svc CustomerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := customerIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		atPeriodEnd := false
		if raw := strings.TrimSpace(r.URL.Query().Get("at_period_end")); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid at_period_end flag"))
				return
			}
			atPeriodEnd = parsed
		}
		sub, err := svc.CancelSubscription(ctx, customerID, atPeriodEnd)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if sub == nil {
			responses.WriteSuccess(w, map[string]string{"status": "canceled"})
			return
		}
		responses.WriteSuccess(w, subscriptionToResponse(sub))
	}
}

func CustomerAddInvoiceItem(svc CustomerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := customerIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload invoiceItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		amount, err := money.ParseAmount(payload.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		item, err := svc.AddInvoiceItem(ctx, customerID, customers.InvoiceItemInput{
			Amount:      amount,
			Currency:    payload.Currency,
			Description: validators.SanitizeString(payload.Description, 500),
			InvoiceID:   payload.InvoiceID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":           item.ID,
			"amount_cents": item.AmountCents,
			"currency":     item.Currency,
			"description":  item.Description,
		})
	}
}

func CustomerSendInvoice(svc CustomerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := customerIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		invoiced, err := svc.SendInvoice(ctx, customerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"invoiced": invoiced})
	}
}

func CustomerRetryInvoices(svc CustomerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := customerIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.RetryUnpaidInvoices(ctx, customerID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "retried"})
	}
}

func CustomerSync(svc CustomerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := customerIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Sync(ctx, customerID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "synced"})
	}
}

func customerIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "customerId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id")
	}
	return id, nil
}

func customerToResponse(customer *models.Customer) customerResponse {
	var subscriberID *string
	if customer.SubscriberID != nil {
		value := customer.SubscriberID.String()
		subscriberID = &value
	}
	return customerResponse{
		ID:              customer.ID.String(),
		SubscriberID:    subscriberID,
		StripeID:        customer.StripeID,
		CardFingerprint: customer.CardFingerprint,
		CardLast4:       customer.CardLast4,
		CardKind:        customer.CardKind,
		CardExpMonth:    customer.CardExpMonth,
		CardExpYear:     customer.CardExpYear,
		Purged:          customer.Purged(),
		CreatedAt:       customer.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func chargeToResponse(charge *models.Charge) chargeResponse {
	var invoiceID *string
	if charge.InvoiceID != nil {
		value := charge.InvoiceID.String()
		invoiceID = &value
	}
	return chargeResponse{
		ID:             charge.ID.String(),
		CustomerID:     charge.CustomerID.String(),
		StripeID:       charge.StripeID,
		InvoiceID:      invoiceID,
		Amount:         charge.Amount.StringFixed(2),
		AmountRefunded: charge.AmountRefunded.StringFixed(2),
		Currency:       charge.Currency,
		Paid:           charge.Paid,
		Disputed:       charge.Disputed,
		Refunded:       charge.Refunded,
		Captured:       charge.Captured,
		Description:    charge.Description,
		ChargeCreated:  formatTimePtr(charge.ChargeCreated),
	}
}

func invoiceToResponse(invoice *models.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:          invoice.ID.String(),
		CustomerID:  invoice.CustomerID.String(),
		StripeID:    invoice.StripeID,
		Total:       invoice.Total.StringFixed(2),
		Paid:        invoice.Paid,
		Attempted:   invoice.Attempted,
		Closed:      invoice.Closed,
		PeriodStart: formatTimePtr(invoice.PeriodStart),
		PeriodEnd:   formatTimePtr(invoice.PeriodEnd),
		Date:        formatTimePtr(invoice.Date),
	}
}

func subscriptionToResponse(sub *models.CurrentSubscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                 sub.ID.String(),
		CustomerID:         sub.CustomerID.String(),
		PlanID:             sub.PlanID,
		Quantity:           sub.Quantity,
		Amount:             sub.Amount.StringFixed(2),
		Status:             string(sub.Status),
		Start:              formatTimePtr(sub.Start),
		CurrentPeriodStart: formatTimePtr(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   formatTimePtr(sub.CurrentPeriodEnd),
		TrialStart:         formatTimePtr(sub.TrialStart),
		TrialEnd:           formatTimePtr(sub.TrialEnd),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CanceledAt:         formatTimePtr(sub.CanceledAt),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := t.UTC().Format(time.RFC3339)
	return &value
}
