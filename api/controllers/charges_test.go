package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
)

type fakeChargeService struct {
	refundID     string
	refundAmount *decimal.Decimal
	refundCalls  int
	captureID    string
}

func (f *fakeChargeService) Refund(ctx context.Context, stripeChargeID string, requested *decimal.Decimal) (*models.Charge, error) {
	f.refundCalls++
	f.refundID = stripeChargeID
	f.refundAmount = requested
	return &models.Charge{
		ID:             uuid.New(),
		CustomerID:     uuid.New(),
		StripeID:       stripeChargeID,
		Amount:         decimal.RequireFromString("20.00"),
		AmountRefunded: decimal.RequireFromString("5.00"),
	}, nil
}

func (f *fakeChargeService) Capture(ctx context.Context, stripeChargeID string) (*models.Charge, error) {
	f.captureID = stripeChargeID
	return &models.Charge{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		StripeID:   stripeChargeID,
		Captured:   true,
	}, nil
}

func withChargeID(r *http.Request, id string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("chargeId", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func TestChargeRefundWithoutBodyRefundsInFull(t *testing.T) {
	svc := &fakeChargeService{}
	handler := ChargeRefund(svc, nil)

	req := withChargeID(httptest.NewRequest(http.MethodPost, "/api/v1/charges/ch_1/refund", nil), "ch_1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.refundID != "ch_1" {
		t.Fatalf("expected refund for ch_1, got %q", svc.refundID)
	}
	if svc.refundAmount != nil {
		t.Fatalf("expected nil amount for a full refund, got %s", svc.refundAmount)
	}
}

func TestChargeRefundWithAmount(t *testing.T) {
	svc := &fakeChargeService{}
	handler := ChargeRefund(svc, nil)

	req := withChargeID(httptest.NewRequest(http.MethodPost, "/api/v1/charges/ch_2/refund", strings.NewReader(`{"amount":"5.00"}`)), "ch_2")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.refundAmount == nil || !svc.refundAmount.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("expected requested amount 5.00, got %v", svc.refundAmount)
	}
}

func TestChargeRefundRejectsBadAmount(t *testing.T) {
	svc := &fakeChargeService{}
	handler := ChargeRefund(svc, nil)

	req := withChargeID(httptest.NewRequest(http.MethodPost, "/api/v1/charges/ch_3/refund", strings.NewReader(`{"amount":"five"}`)), "ch_3")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.refundCalls != 0 {
		t.Fatalf("service should not be called for a malformed amount")
	}
}

func TestChargeCapture(t *testing.T) {
	svc := &fakeChargeService{}
	handler := ChargeCapture(svc, nil)

	req := withChargeID(httptest.NewRequest(http.MethodPost, "/api/v1/charges/ch_4/capture", nil), "ch_4")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.captureID != "ch_4" {
		t.Fatalf("expected capture for ch_4, got %q", svc.captureID)
	}
}
