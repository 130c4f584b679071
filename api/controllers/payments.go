package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/businesssadigital-oss/backendpay/api/responses"
	"github.com/businesssadigital-oss/backendpay/api/validators"
	pkgerrors "github.com/businesssadigital-oss/backendpay/pkg/errors"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
	"github.com/businesssadigital-oss/backendpay/pkg/payments"
)

type chargilyCheckoutRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description,omitempty"`
	SuccessURL  string          `json:"successUrl,omitempty"`
	FailureURL  string          `json:"failureUrl,omitempty"`
}

// ChargilyCheckout creates a hosted checkout session. Catalog amounts are in
// USD; the client converts them to whole dinars.
func ChargilyCheckout(client *payments.ChargilyClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "chargily is not configured"))
			return
		}

		var payload chargilyCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := client.CreateCheckout(r.Context(), payments.CheckoutRequest{
			Amount:      payload.Amount,
			Description: payload.Description,
			SuccessURL:  payload.SuccessURL,
			FailureURL:  payload.FailureURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

type paypalCreateOrderRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description,omitempty"`
}

// PayPalCreateOrder proxies order creation and returns PayPal's response
// verbatim so the frontend SDK can drive the approval flow.
func PayPalCreateOrder(client *payments.PayPalClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "paypal is not configured"))
			return
		}

		var payload paypalCreateOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		raw, err := client.CreateOrder(r.Context(), payload.Amount, payload.Description)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(raw)
	}
}

type paypalCaptureRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

func PayPalCaptureOrder(client *payments.PayPalClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "paypal is not configured"))
			return
		}

		var payload paypalCaptureRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		raw, err := client.CaptureOrder(r.Context(), payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(raw)
	}
}
