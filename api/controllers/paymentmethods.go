package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/businesssadigital-oss/backendpay/api/responses"
	"github.com/businesssadigital-oss/backendpay/api/validators"
	methodsvc "github.com/businesssadigital-oss/backendpay/internal/paymentmethods"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
)

func PaymentMethodList(svc methodsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListMethods(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type updateMethodRequest struct {
	Name        *string `json:"name,omitempty"`
	Type        *string `json:"type,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
	Description *string `json:"description,omitempty"`
}

func PaymentMethodUpdate(svc methodsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload updateMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := svc.UpdateMethod(r.Context(), chi.URLParam(r, "methodId"), methodsvc.UpdateInput{
			Name:        payload.Name,
			Type:        payload.Type,
			IsActive:    payload.IsActive,
			Description: payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, method)
	}
}
