package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
)

type fakePlanService struct {
	plans       []models.BillingPlan
	defaultPlan *models.BillingPlan
}

func (f *fakePlanService) ListPlans(ctx context.Context) ([]models.BillingPlan, error) {
	return f.plans, nil
}

func (f *fakePlanService) GetDefaultPlan(ctx context.Context) (*models.BillingPlan, error) {
	return f.defaultPlan, nil
}

func (f *fakePlanService) GetPlan(ctx context.Context, id string) (*models.BillingPlan, error) {
	for i := range f.plans {
		if f.plans[i].ID == id {
			return &f.plans[i], nil
		}
	}
	return nil, nil
}

func goldPlan() models.BillingPlan {
	return models.BillingPlan{
		ID:           "gold",
		Name:         "Gold",
		StripePlanID: "price_gold",
		PriceAmount:  decimal.RequireFromString("29.99"),
		CurrencyCode: "usd",
		TrialDays:    14,
		IsDefault:    true,
	}
}

func TestPlansListReturnsCatalog(t *testing.T) {
	svc := &fakePlanService{plans: []models.BillingPlan{goldPlan()}}
	handler := PlansList(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Data struct {
			Plans []planResponse `json:"plans"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(envelope.Data.Plans) != 1 || envelope.Data.Plans[0].ID != "gold" {
		t.Fatalf("expected gold plan in catalog, got %+v", envelope.Data.Plans)
	}
	if envelope.Data.Plans[0].PriceAmount != "29.99" {
		t.Fatalf("expected price 29.99, got %q", envelope.Data.Plans[0].PriceAmount)
	}
}

func TestPlanDetail(t *testing.T) {
	svc := &fakePlanService{plans: []models.BillingPlan{goldPlan()}}
	handler := PlanDetail(svc, nil)

	rc := chi.NewRouteContext()
	rc.URLParams.Add("planId", "gold")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/plans/gold", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rc = chi.NewRouteContext()
	rc.URLParams.Add("planId", "missing")
	req = httptest.NewRequest(http.MethodGet, "/api/v1/plans/missing", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown plan, got %d", rec.Code)
	}
}

func TestDefaultPlan(t *testing.T) {
	plan := goldPlan()
	svc := &fakePlanService{defaultPlan: &plan}
	handler := DefaultPlan(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans/default", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	svc.defaultPlan = nil
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans/default", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when no default plan configured, got %d", rec.Code)
	}
}
