package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResendAgainst(t *testing.T, srv *httptest.Server) *ResendEmail {
	t.Helper()
	s, err := NewResendEmail("re_test", "AgroSync <no-reply@agroisync.com>")
	require.NoError(t, err)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	s.client.BaseURL = base
	return s
}

func TestResendEmail_Send(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"em_1"}`))
	}))
	defer srv.Close()

	id, err := newResendAgainst(t, srv).Send(context.Background(), Message{
		To: "maria@example.com", Subject: "Código", Body: "Seu código: 123456",
	})
	require.NoError(t, err)
	assert.Equal(t, "em_1", id)
	assert.Equal(t, []interface{}{"maria@example.com"}, got["to"])
	assert.Equal(t, "Código", got["subject"])
}

func TestResendEmail_SendHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newResendAgainst(t, srv).Send(ctx, Message{To: "maria@example.com", Subject: "x", Body: "y"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
