package customers

import (
	"context"
	"strings"
	"time"

	"github.com/davidcastellano/ledgerpay-backend/internal/stripegateway"
	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
	"github.com/davidcastellano/ledgerpay-backend/pkg/enums"
	pkgerrors "github.com/davidcastellano/ledgerpay-backend/pkg/errors"
	"github.com/davidcastellano/ledgerpay-backend/pkg/money"
)

// reconcileCurrentSubscription folds a remote subscription snapshot (or its
// absence) into the customer's local CurrentSubscription row.
//
// A nil snapshot cancels a non-canceled local record in place rather than
// deleting it, so the last known subscription stays visible. A present
// snapshot replaces every local field wholesale; nothing stale survives a
// sync.
func (s *service) reconcileCurrentSubscription(ctx context.Context, customer *models.Customer, snapshot *stripegateway.SubscriptionSnapshot) (*models.CurrentSubscription, error) {
	local, err := s.repo.FindCurrentSubscription(ctx, customer.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find current subscription")
	}

	if snapshot == nil {
		if local == nil {
			return nil, nil
		}
		if local.Status == enums.SubscriptionStatusCanceled {
			return local, nil
		}
		now := time.Now().UTC()
		local.Status = enums.SubscriptionStatusCanceled
		local.CanceledAt = &now
		if err := s.repo.UpdateCurrentSubscription(ctx, local); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel current subscription")
		}
		return local, nil
	}

	target := local
	created := false
	if target == nil {
		target = &models.CurrentSubscription{CustomerID: customer.ID}
		created = true
	}
	if err := applySubscriptionSnapshot(target, snapshot, s.resolvePlanID(ctx, snapshot.PlanID)); err != nil {
		return nil, err
	}

	if created {
		err = s.repo.CreateCurrentSubscription(ctx, target)
	} else {
		err = s.repo.UpdateCurrentSubscription(ctx, target)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist current subscription")
	}
	return target, nil
}

// resolvePlanID maps the remote plan id onto the local catalog; unknown plans
// keep the remote id so the sync still lands.
func (s *service) resolvePlanID(ctx context.Context, stripePlanID string) string {
	plan, err := s.repo.FindBillingPlanByStripeID(ctx, stripePlanID)
	if err != nil || plan == nil {
		return stripePlanID
	}
	return plan.ID
}

func applySubscriptionSnapshot(target *models.CurrentSubscription, snapshot *stripegateway.SubscriptionSnapshot, planID string) error {
	status, err := enums.ParseSubscriptionStatus(strings.ToLower(strings.TrimSpace(snapshot.Status)))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid subscription status")
	}

	quantity := snapshot.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	target.PlanID = planID
	target.Quantity = quantity
	target.Amount = money.FromCents(snapshot.AmountCents)
	target.Status = status
	target.Start = epochPtr(snapshot.Start)
	target.CurrentPeriodStart = epochPtr(snapshot.CurrentPeriodStart)
	target.CurrentPeriodEnd = epochPtr(snapshot.CurrentPeriodEnd)
	target.TrialStart = epochPtr(snapshot.TrialStart)
	target.TrialEnd = epochPtr(snapshot.TrialEnd)
	target.CancelAtPeriodEnd = snapshot.CancelAtPeriodEnd

	// A snapshot flagged cancel-at-period-end is treated as already
	// canceled as of the period start.
	switch {
	case snapshot.CancelAtPeriodEnd:
		target.CanceledAt = epochPtr(snapshot.CurrentPeriodStart)
	case snapshot.CanceledAt > 0:
		target.CanceledAt = epochPtr(snapshot.CanceledAt)
	default:
		target.CanceledAt = nil
	}
	return nil
}

func epochPtr(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
