package middleware

import (
	"context"
	"net/http"

	"github.com/agroisync/backend/internal/contextkeys"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID propagates an incoming X-Request-ID or assigns a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), contextkeys.RequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the id assigned by RequestID, if any.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextkeys.RequestID).(string)
	return id
}
