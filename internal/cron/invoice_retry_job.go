package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/davidcastellano/ledgerpay-backend/internal/billing"
	"github.com/davidcastellano/ledgerpay-backend/pkg/logger"
)

type invoiceRetrier interface {
	RetryUnpaidInvoices(ctx context.Context, customerID uuid.UUID) error
}

// InvoiceRetryJobParams configures the unpaid-invoice retry cron job.
type InvoiceRetryJobParams struct {
	Logger      *logger.Logger
	BillingRepo billing.Repository
	Customers   invoiceRetrier
	Limit       int
	Lookback    time.Duration
}

// NewInvoiceRetryJob builds the job that walks recently active customers and
// retries payment on their open invoices.
func NewInvoiceRetryJob(params InvoiceRetryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.BillingRepo == nil {
		return nil, fmt.Errorf("billing repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer service required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultReconcileLimit
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultReconcileLookback
	}
	return &invoiceRetryJob{
		logg:        params.Logger,
		billingRepo: params.BillingRepo,
		customers:   params.Customers,
		limit:       limit,
		lookback:    lookback,
	}, nil
}

type invoiceRetryJob struct {
	logg        *logger.Logger
	billingRepo billing.Repository
	customers   invoiceRetrier
	limit       int
	lookback    time.Duration
}

func (j *invoiceRetryJob) Name() string { return "invoice-retry" }

func (j *invoiceRetryJob) Run(ctx context.Context) error {
	candidates, err := j.billingRepo.ListCustomersForReconciliation(ctx, j.limit, j.lookback)
	if err != nil {
		return fmt.Errorf("list customers for invoice retry: %w", err)
	}

	var errs error
	retried := 0
	for i := range candidates {
		customer := &candidates[i]
		if customer.Purged() {
			continue
		}
		logCtx := j.logg.WithStripeID(ctx, customer.StripeID)
		if err := j.customers.RetryUnpaidInvoices(logCtx, customer.ID); err != nil {
			j.logg.Error(logCtx, "invoice retry failed", err)
			errs = multierr.Append(errs, err)
			continue
		}
		retried++
	}

	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(candidates),
		"retried":    retried,
	})
	j.logg.Info(reportCtx, "invoice retry loop complete")
	return errs
}
