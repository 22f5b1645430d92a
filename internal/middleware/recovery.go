package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/agroisync/backend/internal/domain"
	"github.com/agroisync/backend/internal/handler"
	log "github.com/sirupsen/logrus"
)

// Recovery catches panics and returns a 500 error instead of crashing the server.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				log.WithFields(log.Fields{
					"panic":      err,
					"path":       r.URL.Path,
					"request_id": GetRequestID(r.Context()),
				}).Errorf("panic recovered\n%s", debug.Stack())
				handler.WriteError(w, http.StatusInternalServerError, domain.CodeInternal, "Erro interno do servidor")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
