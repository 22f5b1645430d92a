package middleware

import (
	"net/http"

	"github.com/agroisync/backend/internal/contextkeys"
	"github.com/agroisync/backend/internal/domain"
	"github.com/agroisync/backend/internal/handler"
	"github.com/agroisync/backend/internal/service"
)

// AdminOnly lets through callers whose token e-mail matches the configured
// administrator. Must be used AFTER Auth.
func AdminOnly(authSvc *service.AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, _ := r.Context().Value(contextkeys.UserEmail).(string)
			if !authSvc.IsAdmin(email) {
				handler.WriteError(w, http.StatusForbidden, domain.CodeForbidden, "Acesso restrito ao administrador")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
