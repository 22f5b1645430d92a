package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/agroisync/backend/internal/contextkeys"
	"github.com/agroisync/backend/internal/domain"
	"github.com/agroisync/backend/internal/handler"
	"github.com/agroisync/backend/internal/service"
)

// Auth creates a JWT authentication middleware.
func Auth(authSvc *service.AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
				handler.WriteError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "Token de autorização não fornecido")
				return
			}

			id, err := authSvc.VerifyToken(strings.TrimSpace(parts[1]))
			if err != nil {
				handler.Error(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), contextkeys.UserID, id.Subject)
			ctx = context.WithValue(ctx, contextkeys.UserEmail, id.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
