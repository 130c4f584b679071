package controllers

import (
	"net/http"
	"strings"

	"github.com/businesssadigital-oss/backendpay/api/responses"
	"github.com/businesssadigital-oss/backendpay/api/validators"
	reviewsvc "github.com/businesssadigital-oss/backendpay/internal/reviews"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
)

func ReviewList(svc reviewsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := strings.TrimSpace(r.URL.Query().Get("productId"))
		rows, err := svc.ListReviews(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type addReviewRequest struct {
	ProductID string  `json:"productId" validate:"required"`
	UserID    string  `json:"userId" validate:"required"`
	UserName  string  `json:"userName,omitempty"`
	Rating    float64 `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   string  `json:"comment,omitempty"`
}

func ReviewCreate(svc reviewsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addReviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		review, err := svc.AddReview(r.Context(), reviewsvc.AddReviewInput{
			ProductID: payload.ProductID,
			UserID:    payload.UserID,
			UserName:  payload.UserName,
			Rating:    payload.Rating,
			Comment:   payload.Comment,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, review)
	}
}
