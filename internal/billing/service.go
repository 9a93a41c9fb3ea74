package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
)

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Repo Repository
}

// Service exposes the read side of the billing tables to the API layer.
type Service struct {
	repo Repository
}

// NewService builds a billing service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return s.repo.FindCustomerByID(ctx, id)
}

func (s *Service) GetCurrentSubscription(ctx context.Context, customerID uuid.UUID) (*models.CurrentSubscription, error) {
	return s.repo.FindCurrentSubscription(ctx, customerID)
}

func (s *Service) ListCharges(ctx context.Context, customerID uuid.UUID) ([]models.Charge, error) {
	return s.repo.ListChargesByCustomer(ctx, customerID)
}

func (s *Service) ListInvoices(ctx context.Context, customerID uuid.UUID) ([]models.Invoice, error) {
	return s.repo.ListInvoicesByCustomer(ctx, customerID)
}

func (s *Service) ListPlans(ctx context.Context) ([]models.BillingPlan, error) {
	return s.repo.ListBillingPlans(ctx)
}

func (s *Service) GetPlan(ctx context.Context, id string) (*models.BillingPlan, error) {
	return s.repo.FindBillingPlanByID(ctx, id)
}

func (s *Service) GetDefaultPlan(ctx context.Context) (*models.BillingPlan, error) {
	return s.repo.FindDefaultBillingPlan(ctx)
}

func (s *Service) GetDefaultAccount(ctx context.Context) (*models.Account, error) {
	return s.repo.FindDefaultAccount(ctx)
}
