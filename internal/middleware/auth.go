package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/interview-server-go/internal/audit"
	apperrors "github.com/openclaw/interview-server-go/internal/errors"
	"github.com/openclaw/interview-server-go/internal/token"
)

type contextKey string

const ClaimsContextKey contextKey = "sessionClaims"

// SessionIDParam is the chi URL parameter every candidate route is scoped by.
const SessionIDParam = "sessionID"

func GetClaims(ctx context.Context) *token.Claims {
	if claims, ok := ctx.Value(ClaimsContextKey).(*token.Claims); ok {
		return claims
	}
	return nil
}

type TokenParser interface {
	Parse(tokenString string) (*token.Claims, error)
}

// SessionAuthMiddleware admits a candidate only to the session its token was
// issued for.
type SessionAuthMiddleware struct {
	tokens TokenParser
}

func NewSessionAuthMiddleware(tokens TokenParser) *SessionAuthMiddleware {
	return &SessionAuthMiddleware{tokens: tokens}
}

func (m *SessionAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractToken(r)
		if raw == "" {
			writeError(w, apperrors.Unauthorized("Missing session token"))
			return
		}

		claims, err := m.tokens.Parse(raw)
		if err != nil {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"reason": err.Error()},
			})
			if errors.Is(err, token.ErrExpired) {
				writeError(w, apperrors.TokenExpired())
				return
			}
			writeError(w, apperrors.InvalidToken("Invalid session token"))
			return
		}

		if sessionID := chi.URLParam(r, SessionIDParam); sessionID != "" && sessionID != claims.SessionID {
			log.Warn().
				Str("tokenSession", claims.SessionID).
				Str("pathSession", sessionID).
				Msg("session token used for another session")
			writeError(w, apperrors.Forbidden("Token does not grant access to this session"))
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
