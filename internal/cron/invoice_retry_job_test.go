package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/davidcastellano/ledgerpay-backend/pkg/logger"
)

type stubRetrier struct {
	retried []uuid.UUID
	failFor uuid.UUID
}

func (s *stubRetrier) RetryUnpaidInvoices(ctx context.Context, customerID uuid.UUID) error {
	s.retried = append(s.retried, customerID)
	if customerID == s.failFor {
		return errors.New("card declined")
	}
	return nil
}

func TestInvoiceRetryJobSkipsPurgedCustomers(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	candidates := seedCandidates(2)
	purged := seedCandidates(1)
	purged[0].SubscriberID = nil
	repo := &stubCandidateRepo{candidates: append(candidates, purged...)}
	retrier := &stubRetrier{}

	job, err := NewInvoiceRetryJob(InvoiceRetryJobParams{
		Logger:      logg,
		BillingRepo: repo,
		Customers:   retrier,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(retrier.retried) != 2 {
		t.Fatalf("purged customers must be skipped, got %d retries", len(retrier.retried))
	}
}

func TestInvoiceRetryJobAggregatesFailures(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	candidates := seedCandidates(3)
	repo := &stubCandidateRepo{candidates: candidates}
	retrier := &stubRetrier{failFor: candidates[1].ID}

	job, err := NewInvoiceRetryJob(InvoiceRetryJobParams{
		Logger:      logg,
		BillingRepo: repo,
		Customers:   retrier,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	runErr := job.Run(context.Background())
	if runErr == nil {
		t.Fatal("expected aggregated error")
	}
	if len(retrier.retried) != 3 {
		t.Fatalf("one failing customer must not stop the loop, got %d", len(retrier.retried))
	}
}
