package middleware

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Logger logs each HTTP request with method, path, status, and duration.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		entry := log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.status,
			"duration":   time.Since(start).Round(time.Millisecond).String(),
			"request_id": GetRequestID(r.Context()),
		})
		switch {
		case ww.status >= http.StatusInternalServerError:
			entry.Error("request")
		case ww.status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}
