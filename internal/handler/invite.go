package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openclaw/interview-server-go/internal/service"
)

type InviteLookup interface {
	Lookup(ctx context.Context, code string) (*service.InviteInfo, error)
}

type InviteHandler struct {
	invites InviteLookup
}

func NewInviteHandler(invites InviteLookup) *InviteHandler {
	return &InviteHandler{invites: invites}
}

func (h *InviteHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{code}", h.Get)
	return r
}

// GET /v1/invites/{code}
func (h *InviteHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.invites.Lookup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
