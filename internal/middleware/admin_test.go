package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubAdmin struct {
	enabled bool
}

func (s stubAdmin) Enabled() bool { return s.enabled }

func (s stubAdmin) Authenticate(username, password string) bool {
	return username == "admin" && password == "letmein"
}

type countingThrottle struct {
	limit    int
	failures map[string]int
}

func (c *countingThrottle) Blocked(ctx context.Context, key string) (bool, time.Time) {
	return c.failures[key] >= c.limit, time.Now().Add(30 * time.Second)
}

func (c *countingThrottle) RecordFailure(ctx context.Context, key string) int {
	c.failures[key]++
	return c.failures[key]
}

func serveAdmin(m *AdminAuthMiddleware, user, pass string) *httptest.ResponseRecorder {
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/sessions/x", nil)
	req.RemoteAddr = "192.0.2.7:51000"
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAdminAuthMiddleware(t *testing.T) {
	t.Run("disabled without a password hash", func(t *testing.T) {
		m := NewAdminAuthMiddleware(stubAdmin{enabled: false}, nil)
		rec := serveAdmin(m, "admin", "letmein")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("accepts valid credentials", func(t *testing.T) {
		throttle := &countingThrottle{limit: 3, failures: map[string]int{}}
		m := NewAdminAuthMiddleware(stubAdmin{enabled: true}, throttle)

		rec := serveAdmin(m, "admin", "letmein")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, throttle.failures)
	})

	t.Run("challenges bad credentials and counts them", func(t *testing.T) {
		throttle := &countingThrottle{limit: 3, failures: map[string]int{}}
		m := NewAdminAuthMiddleware(stubAdmin{enabled: true}, throttle)

		rec := serveAdmin(m, "admin", "nope")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, adminRealm, rec.Header().Get("WWW-Authenticate"))

		rec = serveAdmin(m, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, 2, throttle.failures["192.0.2.7"])
	})

	t.Run("blocks after repeated failures even with the right password", func(t *testing.T) {
		throttle := &countingThrottle{limit: 2, failures: map[string]int{}}
		m := NewAdminAuthMiddleware(stubAdmin{enabled: true}, throttle)

		serveAdmin(m, "admin", "a")
		serveAdmin(m, "admin", "b")

		rec := serveAdmin(m, "admin", "letmein")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")
	})
}
