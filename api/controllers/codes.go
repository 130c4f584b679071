package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/businesssadigital-oss/backendpay/api/responses"
	"github.com/businesssadigital-oss/backendpay/api/validators"
	codesvc "github.com/businesssadigital-oss/backendpay/internal/codes"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
)

func CodeList(svc codesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := codesvc.ListFilter{
			ProductID: strings.TrimSpace(r.URL.Query().Get("productId")),
			Status:    enums.CodeStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
		}
		rows, err := svc.ListCodes(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type bulkAddCodesRequest struct {
	ProductID string   `json:"productId" validate:"required"`
	Codes     []string `json:"codes" validate:"required,min=1"`
}

// CodeBulkAdd stores new code values, skipping duplicates rather than
// failing the batch.
func CodeBulkAdd(svc codesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload bulkAddCodesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddCodes(r.Context(), payload.ProductID, payload.Codes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type markSoldRequest struct {
	Status  string `json:"status,omitempty" validate:"omitempty,oneof=sold"`
	SoldTo  string `json:"soldTo,omitempty"`
	OrderID string `json:"orderId,omitempty"`
}

// CodeMarkSold updates a code. The only writable transition is to sold, so a
// status other than "sold" is rejected up front.
func CodeMarkSold(svc codesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload markSoldRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := svc.MarkSold(r.Context(), chi.URLParam(r, "codeId"), codesvc.MarkSoldInput{
			SoldTo:  payload.SoldTo,
			OrderID: payload.OrderID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, code)
	}
}

func CodeDelete(svc codesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteCode(r.Context(), chi.URLParam(r, "codeId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func CodeStats(svc codesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context(), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
