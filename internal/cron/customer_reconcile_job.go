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

const (
	defaultReconcileLimit    = 250
	defaultReconcileLookback = 7 * 24 * time.Hour
)

type customerSyncer interface {
	Sync(ctx context.Context, customerID uuid.UUID) error
}

// CustomerReconcileJobParams configures the customer sync cron job.
type CustomerReconcileJobParams struct {
	Logger      *logger.Logger
	BillingRepo billing.Repository
	Customers   customerSyncer
	Limit       int
	Lookback    time.Duration
}

// NewCustomerReconcileJob builds the job that re-pulls remote account state
// for every active or recently touched customer.
func NewCustomerReconcileJob(params CustomerReconcileJobParams) (Job, error) {
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
	return &customerReconcileJob{
		logg:        params.Logger,
		billingRepo: params.BillingRepo,
		customers:   params.Customers,
		limit:       limit,
		lookback:    lookback,
	}, nil
}

type customerReconcileJob struct {
	logg        *logger.Logger
	billingRepo billing.Repository
	customers   customerSyncer
	limit       int
	lookback    time.Duration
}

func (j *customerReconcileJob) Name() string { return "customer-reconcile" }

func (j *customerReconcileJob) Run(ctx context.Context) error {
	candidates, err := j.billingRepo.ListCustomersForReconciliation(ctx, j.limit, j.lookback)
	if err != nil {
		return fmt.Errorf("list customers for reconciliation: %w", err)
	}

	var errs error
	synced := 0
	for i := range candidates {
		customer := &candidates[i]
		logCtx := j.logg.WithStripeID(ctx, customer.StripeID)
		if err := j.customers.Sync(logCtx, customer.ID); err != nil {
			j.logg.Error(logCtx, "customer sync failed", err)
			errs = multierr.Append(errs, err)
			continue
		}
		synced++
	}

	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(candidates),
		"synced":     synced,
	})
	j.logg.Info(reportCtx, "customer reconcile loop complete")
	return errs
}
