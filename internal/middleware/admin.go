package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/interview-server-go/internal/audit"
	apperrors "github.com/openclaw/interview-server-go/internal/errors"
)

const adminRealm = `Basic realm="interview-admin"`

type AdminAuthenticator interface {
	Enabled() bool
	Authenticate(username, password string) bool
}

type FailureThrottle interface {
	Blocked(ctx context.Context, key string) (bool, time.Time)
	RecordFailure(ctx context.Context, key string) int
}

// AdminAuthMiddleware guards reviewer routes with HTTP Basic credentials.
// Callers with too many recent failures are refused before the password is
// checked.
type AdminAuthMiddleware struct {
	auth     AdminAuthenticator
	throttle FailureThrottle
}

func NewAdminAuthMiddleware(auth AdminAuthenticator, throttle FailureThrottle) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{auth: auth, throttle: throttle}
}

func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.auth.Enabled() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "Admin not configured",
			})
			return
		}

		ip := clientIP(r)
		if m.throttle != nil {
			if blocked, resetAt := m.throttle.Blocked(r.Context(), ip); blocked {
				audit.LogFromRequest(r, audit.Event{Type: audit.EventRateLimitExceed, Actor: "admin"})
				retry := int(time.Until(resetAt).Seconds())
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				writeError(w, apperrors.RateLimitExceeded())
				return
			}
		}

		username, password, ok := r.BasicAuth()
		if !ok || !m.auth.Authenticate(username, password) {
			failures := 0
			if m.throttle != nil {
				failures = m.throttle.RecordFailure(r.Context(), ip)
			}
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAdminAuthFail,
				Actor:   username,
				Details: map[string]interface{}{"failures": failures},
			})
			log.Warn().Str("ip", ip).Msg("admin authentication failed")

			w.Header().Set("WWW-Authenticate", adminRealm)
			writeError(w, apperrors.Unauthorized("Invalid admin credentials"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP expects chi's RealIP to have already rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
