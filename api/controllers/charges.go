package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/davidcastellano/ledgerpay-backend/api/responses"
	"github.com/davidcastellano/ledgerpay-backend/api/validators"
	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
	pkgerrors "github.com/davidcastellano/ledgerpay-backend/pkg/errors"
	"github.com/davidcastellano/ledgerpay-backend/pkg/logger"
	"github.com/davidcastellano/ledgerpay-backend/pkg/money"
)

// ChargeService describes the charge operations used by the HTTP layer.
type ChargeService interface {
	Refund(ctx context.Context, stripeChargeID string, requested *decimal.Decimal) (*models.Charge, error)
	Capture(ctx context.Context, stripeChargeID string) (*models.Charge, error)
}

type chargeRefundRequest struct {
	Amount string `json:"amount"`
}

func ChargeRefund(svc ChargeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		stripeID, err := chargeIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var requested *decimal.Decimal
		if r.ContentLength > 0 {
			var payload chargeRefundRequest
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if strings.TrimSpace(payload.Amount) != "" {
				amount, err := money.ParseAmount(payload.Amount)
				if err != nil {
					responses.WriteError(ctx, logg, w, err)
					return
				}
				requested = &amount
			}
		}

		charge, err := svc.Refund(ctx, stripeID, requested)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, chargeToResponse(charge))
	}
}

func ChargeCapture(svc ChargeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		stripeID, err := chargeIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		charge, err := svc.Capture(ctx, stripeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, chargeToResponse(charge))
	}
}

func chargeIDParam(r *http.Request) (string, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "chargeId"))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "charge id is required")
	}
	return raw, nil
}
