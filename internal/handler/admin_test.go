package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/openclaw/interview-server-go/internal/errors"
	"github.com/openclaw/interview-server-go/internal/model"
	"github.com/openclaw/interview-server-go/internal/proctor"
	"github.com/openclaw/interview-server-go/internal/service"
)

func TestAdminHandler(t *testing.T) {
	reviewer := &mockReviewer{}
	events := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := NewAdminHandler(reviewer, passthrough, events).Routes()

	t.Run("detail", func(t *testing.T) {
		category := "Good Fit"
		reviewer.On("Detail", mock.Anything, "sess-1").Return(&service.SessionDetail{
			Session:   &model.Session{ID: "sess-1", Status: model.SessionStatusCompleted, ScoreCategory: &category},
			Turns:     []service.TurnView{{Turn: model.Turn{Idx: 1}, Section: "introduction"}},
			Risk:      &proctor.Assessment{RiskLevel: proctor.LevelLow, Flags: []string{}},
			Breakdown: "Strong performance",
		}, nil).Once()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/sess-1/", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"section":"introduction"`)
		assert.Contains(t, rec.Body.String(), `"breakdown":"Strong performance"`)
	})

	t.Run("risk", func(t *testing.T) {
		reviewer.On("Risk", mock.Anything, "sess-1").
			Return(&proctor.Assessment{RiskScore: 70, RiskLevel: proctor.LevelHigh, Flags: []string{}}, nil).Once()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/sess-1/risk", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"risk_score":70`)
		assert.Contains(t, rec.Body.String(), `"shouldFlag":true`)
	})

	t.Run("abandon", func(t *testing.T) {
		ended := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		reviewer.On("Abandon", mock.Anything, "sess-1").
			Return(&model.Session{ID: "sess-1", Status: model.SessionStatusAbandoned, EndedAt: &ended}, nil).Once()
		reviewer.On("Abandon", mock.Anything, "sess-2").
			Return(nil, apperrors.SessionNotActive("completed")).Once()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/sess-1/abandon", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"abandoned"`)

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/sess-2/abandon", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "SESSION_NOT_ACTIVE")
	})

	t.Run("not found", func(t *testing.T) {
		reviewer.On("Detail", mock.Anything, "nope").Return(nil, apperrors.NotFound("Session")).Once()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/nope/", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("events are delegated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/sess-1/events", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	reviewer.AssertExpectations(t)
}

func TestAdminHandler_RequiresAuth(t *testing.T) {
	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	reviewer := &mockReviewer{}
	h := NewAdminHandler(reviewer, deny, http.NotFoundHandler()).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/sess-1/abandon", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	reviewer.AssertNotCalled(t, "Abandon", mock.Anything, mock.Anything)
}
