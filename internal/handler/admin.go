package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openclaw/interview-server-go/internal/audit"
	"github.com/openclaw/interview-server-go/internal/middleware"
	"github.com/openclaw/interview-server-go/internal/model"
	"github.com/openclaw/interview-server-go/internal/proctor"
	"github.com/openclaw/interview-server-go/internal/service"
)

type SessionReviewer interface {
	Detail(ctx context.Context, id string) (*service.SessionDetail, error)
	Risk(ctx context.Context, id string) (*proctor.Assessment, error)
	Abandon(ctx context.Context, id string) (*model.Session, error)
}

type AdminHandler struct {
	reviewer SessionReviewer
	auth     func(http.Handler) http.Handler
	events   http.Handler
}

func NewAdminHandler(reviewer SessionReviewer, auth func(http.Handler) http.Handler, events http.Handler) *AdminHandler {
	return &AdminHandler{
		reviewer: reviewer,
		auth:     auth,
		events:   events,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/sessions/{"+middleware.SessionIDParam+"}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Get("/risk", h.GetRisk)
			r.Get("/events", h.events.ServeHTTP)
			r.Post("/abandon", h.Abandon)
		})
	})

	return r
}

// GET /admin/sessions/{sessionID}
func (h *AdminHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	detail, err := h.reviewer.Detail(r.Context(), chi.URLParam(r, middleware.SessionIDParam))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// GET /admin/sessions/{sessionID}/risk
func (h *AdminHandler) GetRisk(w http.ResponseWriter, r *http.Request) {
	risk, err := h.reviewer.Risk(r.Context(), chi.URLParam(r, middleware.SessionIDParam))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"risk":       risk,
		"shouldFlag": risk.ShouldFlag(),
	})
}

// POST /admin/sessions/{sessionID}/abandon
func (h *AdminHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, middleware.SessionIDParam)

	session, err := h.reviewer.Abandon(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	username, _, _ := r.BasicAuth()
	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventSessionAbandon,
		SessionID: sessionID,
		Actor:     username,
	})

	writeJSON(w, http.StatusOK, session)
}
