package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agroisync/backend/internal/contextkeys"
	"github.com/agroisync/backend/internal/domain"
	"github.com/agroisync/backend/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "middleware-test-secret"
	adminEmail = "admin@agroisync.com"
)

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, _ := r.Context().Value(contextkeys.UserID).(string)
		email, _ := r.Context().Value(contextkeys.UserEmail).(string)
		w.Write([]byte(sub + "|" + email))
	})
}

func TestAuth(t *testing.T) {
	authSvc := service.NewAuthService(testSecret, "", adminEmail)
	h := Auth(authSvc)(echoIdentity())

	valid, err := authSvc.IssueToken("sub-1", "user@example.com", time.Hour)
	require.NoError(t, err)
	expired, err := authSvc.IssueToken("sub-1", "user@example.com", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, domain.CodeUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, domain.CodeUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, domain.CodeUnauthorized},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized, domain.CodeInvalidToken},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, domain.CodeInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer "+valid)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "sub-1|user@example.com", rec.Body.String())
	})
}

func TestAdminOnly(t *testing.T) {
	authSvc := service.NewAuthService(testSecret, "", adminEmail)
	h := AdminOnly(authSvc)(echoIdentity())

	for email, want := range map[string]int{
		"":                    http.StatusForbidden,
		"user@example.com":    http.StatusForbidden,
		"ADMIN@agroisync.com": http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := context.WithValue(req.Context(), contextkeys.UserID, "sub")
		ctx = context.WithValue(ctx, contextkeys.UserEmail, email)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req.WithContext(ctx))
		assert.Equal(t, want, rec.Code, email)
		if want == http.StatusForbidden {
			assert.Equal(t, domain.CodeForbidden, errorCode(t, rec))
		}
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, domain.CodeInternal, errorCode(t, rec))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestLogger(t *testing.T) {
	hook := test.NewGlobal()
	logrus.SetLevel(logrus.InfoLevel)

	h := RequestID(Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	req := httptest.NewRequest(http.MethodPost, "/api/shipments", nil)
	req.Header.Set("X-Request-ID", "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, http.StatusTeapot, entry.Data["status"])
	assert.Equal(t, "/api/shipments", entry.Data["path"])
	assert.Equal(t, "req-1", entry.Data["request_id"])
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewRateLimiter(ctx, 0.001, 2).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/verification/send", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, call("203.0.113.7").Code)
	assert.Equal(t, http.StatusNoContent, call("203.0.113.7").Code)
	rec := call("203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, domain.CodeRateLimited, errorCode(t, rec))
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, call("198.51.100.2").Code, "buckets are per client")
}

func TestExtractClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", extractClientIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")
	assert.Equal(t, "198.51.100.9", extractClientIP(req))

	req.Header.Set("X-Real-IP", "203.0.113.5")
	assert.Equal(t, "203.0.113.5", extractClientIP(req))
}
