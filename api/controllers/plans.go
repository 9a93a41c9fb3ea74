package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/davidcastellano/ledgerpay-backend/api/responses"
	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
	pkgerrors "github.com/davidcastellano/ledgerpay-backend/pkg/errors"
	"github.com/davidcastellano/ledgerpay-backend/pkg/logger"
)

// PlanService describes the billing plan queries used by the HTTP layer.
type PlanService interface {
	ListPlans(ctx context.Context) ([]models.BillingPlan, error)
	GetDefaultPlan(ctx context.Context) (*models.BillingPlan, error)
	GetPlan(ctx context.Context, id string) (*models.BillingPlan, error)
}

type planResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	StripePlanID string `json:"stripe_plan_id"`
	PriceAmount  string `json:"price_amount"`
	CurrencyCode string `json:"currency_code"`
	TrialDays    int    `json:"trial_days"`
	IsDefault    bool   `json:"is_default"`
	CreatedAt    string `json:"created_at"`
}

func PlansList(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		plans, err := svc.ListPlans(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := make([]planResponse, 0, len(plans))
		for i := range plans {
			out = append(out, planToResponse(&plans[i]))
		}
		responses.WriteSuccess(w, map[string]any{"plans": out})
	}
}

func PlanDetail(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		planID := strings.TrimSpace(chi.URLParam(r, "planId"))
		if planID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required"))
			return
		}
		plan, err := svc.GetPlan(ctx, planID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if plan == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "billing plan not found"))
			return
		}
		responses.WriteSuccess(w, planToResponse(plan))
	}
}

func DefaultPlan(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		plan, err := svc.GetDefaultPlan(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if plan == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no default plan configured"))
			return
		}
		responses.WriteSuccess(w, planToResponse(plan))
	}
}

func planToResponse(plan *models.BillingPlan) planResponse {
	return planResponse{
		ID:           plan.ID,
		Name:         plan.Name,
		StripePlanID: plan.StripePlanID,
		PriceAmount:  plan.PriceAmount.StringFixed(2),
		CurrencyCode: plan.CurrencyCode,
		TrialDays:    plan.TrialDays,
		IsDefault:    plan.IsDefault,
		CreatedAt:    plan.CreatedAt.UTC().Format(time.RFC3339),
	}
}
