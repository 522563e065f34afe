package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/openclaw/interview-server-go/internal/errors"
	"github.com/openclaw/interview-server-go/internal/middleware"
	"github.com/openclaw/interview-server-go/internal/proctor"
	"github.com/openclaw/interview-server-go/internal/service"
)

const multipartMemory = 8 << 20

type Interviewer interface {
	StartSession(ctx context.Context, inviteCode string) (*service.StartResult, error)
	SubmitAnswer(ctx context.Context, params service.SubmitAnswerParams) (*service.SubmitResult, error)
	HandleTimeout(ctx context.Context, sessionID string, turnIdx int) (*service.TimeoutResult, error)
}

type EventRecorder interface {
	RecordEvent(ctx context.Context, params service.RecordEventParams) (*proctor.Assessment, error)
}

type SessionHandler struct {
	interviews Interviewer
	proctor    EventRecorder
	auth       func(http.Handler) http.Handler
	proctorRL  func(http.Handler) http.Handler
}

func NewSessionHandler(
	interviews Interviewer,
	proctor EventRecorder,
	auth func(http.Handler) http.Handler,
	proctorRateLimit func(http.Handler) http.Handler,
) *SessionHandler {
	return &SessionHandler{
		interviews: interviews,
		proctor:    proctor,
		auth:       auth,
		proctorRL:  proctorRateLimit,
	}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/start", h.Start)

	r.Route("/{"+middleware.SessionIDParam+"}", func(r chi.Router) {
		r.Use(h.auth)
		r.Post("/speech", h.Speech)
		r.Post("/timeout", h.Timeout)
		r.With(h.proctorRL).Post("/proctor", h.Proctor)
	})

	return r
}

// POST /v1/sessions/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteCode string `json:"inviteCode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.interviews.StartSession(r.Context(), req.InviteCode)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// POST /v1/sessions/{sessionID}/speech
func (h *SessionHandler) Speech(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, middleware.SessionIDParam)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, apperrors.PayloadTooLarge(maxErr.Limit))
			return
		}
		writeError(w, apperrors.ValidationError("Expected multipart form data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	turnIdx, err := strconv.Atoi(r.FormValue("turn_idx"))
	if err != nil {
		writeError(w, apperrors.InvalidInput("turn_idx", "must be an integer"))
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, apperrors.MissingRequired("audio"))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to read uploaded audio")
		writeError(w, apperrors.ValidationError("Could not read audio upload"))
		return
	}

	result, err := h.interviews.SubmitAnswer(r.Context(), service.SubmitAnswerParams{
		SessionID: sessionID,
		TurnIdx:   turnIdx,
		Question:  r.FormValue("question"),
		Audio:     audio,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /v1/sessions/{sessionID}/timeout
func (h *SessionHandler) Timeout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TurnIdx int `json:"turnIdx"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.interviews.HandleTimeout(r.Context(), chi.URLParam(r, middleware.SessionIDParam), req.TurnIdx)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /v1/sessions/{sessionID}/proctor
func (h *SessionHandler) Proctor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type    string         `json:"type"`
		Present *bool          `json:"present"`
		Details map[string]any `json:"details"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	assessment, err := h.proctor.RecordEvent(r.Context(), service.RecordEventParams{
		SessionID: chi.URLParam(r, middleware.SessionIDParam),
		Type:      req.Type,
		Present:   req.Present,
		Details:   req.Details,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"risk":      assessment.RiskScore,
		"riskLevel": assessment.RiskLevel,
	})
}
