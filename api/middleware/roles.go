package middleware

import (
	"net/http"

	"github.com/businesssadigital-oss/backendpay/api/responses"
	pkgerrors "github.com/businesssadigital-oss/backendpay/pkg/errors"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
)

func RequireRole(role string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != role {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
