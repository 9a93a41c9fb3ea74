package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/davidcastellano/ledgerpay-backend/internal/billing"
	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
	"github.com/davidcastellano/ledgerpay-backend/pkg/logger"
)

type stubCandidateRepo struct {
	billing.Repository

	candidates []models.Customer
	gotLimit   int
	gotWindow  time.Duration
}

func (r *stubCandidateRepo) ListCustomersForReconciliation(ctx context.Context, limit int, lookback time.Duration) ([]models.Customer, error) {
	r.gotLimit = limit
	r.gotWindow = lookback
	return r.candidates, nil
}

type stubSyncer struct {
	synced  []uuid.UUID
	failFor uuid.UUID
}

func (s *stubSyncer) Sync(ctx context.Context, customerID uuid.UUID) error {
	s.synced = append(s.synced, customerID)
	if customerID == s.failFor {
		return errors.New("remote unavailable")
	}
	return nil
}

func seedCandidates(n int) []models.Customer {
	out := make([]models.Customer, n)
	for i := range out {
		subscriber := uuid.New()
		id := uuid.New()
		out[i] = models.Customer{ID: id, SubscriberID: &subscriber, StripeID: "cus_" + id.String()[:8]}
	}
	return out
}

func TestCustomerReconcileJobSyncsAllCandidates(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	repo := &stubCandidateRepo{candidates: seedCandidates(3)}
	syncer := &stubSyncer{}

	job, err := NewCustomerReconcileJob(CustomerReconcileJobParams{
		Logger:      logg,
		BillingRepo: repo,
		Customers:   syncer,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(syncer.synced) != 3 {
		t.Fatalf("expected 3 syncs, got %d", len(syncer.synced))
	}
	if repo.gotLimit != defaultReconcileLimit || repo.gotWindow != defaultReconcileLookback {
		t.Fatalf("expected defaults applied, got limit=%d lookback=%s", repo.gotLimit, repo.gotWindow)
	}
}

func TestCustomerReconcileJobContinuesPastFailures(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	candidates := seedCandidates(3)
	repo := &stubCandidateRepo{candidates: candidates}
	syncer := &stubSyncer{failFor: candidates[0].ID}

	job, err := NewCustomerReconcileJob(CustomerReconcileJobParams{
		Logger:      logg,
		BillingRepo: repo,
		Customers:   syncer,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	runErr := job.Run(context.Background())
	if runErr == nil {
		t.Fatal("expected aggregated error")
	}
	if len(syncer.synced) != 3 {
		t.Fatalf("a failing customer must not stop the loop, got %d syncs", len(syncer.synced))
	}
}
