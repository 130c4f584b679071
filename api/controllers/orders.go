package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/businesssadigital-oss/backendpay/api/responses"
	"github.com/businesssadigital-oss/backendpay/api/validators"
	fulfillsvc "github.com/businesssadigital-oss/backendpay/internal/fulfillment"
	ordersvc "github.com/businesssadigital-oss/backendpay/internal/orders"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
)

func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListOrders(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type placeOrderRequest struct {
	UserID        string           `json:"userId" validate:"required"`
	Items         []placeOrderItem `json:"items" validate:"required,min=1,dive"`
	Total         decimal.Decimal  `json:"total" validate:"required"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
}

type placeOrderItem struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Name      string `json:"name,omitempty"`
}

// OrderPlace is the cart checkout path. The whole cart is fulfilled in one
// transaction or rejected.
func OrderPlace(svc fulfillsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]fulfillsvc.ItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, fulfillsvc.ItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Name:      item.Name,
			})
		}

		order, err := svc.PlaceOrder(r.Context(), fulfillsvc.PlaceOrderInput{
			UserID:        payload.UserID,
			Items:         items,
			Total:         payload.Total,
			PaymentMethod: payload.PaymentMethod,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

type confirmOrderRequest struct {
	ProductID string `json:"productId" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// OrderConfirm is the single-product path used after an external payment
// succeeded.
func OrderConfirm(svc fulfillsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload confirmOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ConfirmOrder(r.Context(), fulfillsvc.ConfirmOrderInput{
			ProductID: payload.ProductID,
			UserID:    payload.UserID,
			Quantity:  payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func OrderAttachPayPal(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.AttachPayPalOrderID(r.Context(),
			chi.URLParam(r, "orderId"), chi.URLParam(r, "paypalOrderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
