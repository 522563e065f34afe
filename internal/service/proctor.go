package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/openclaw/interview-server-go/internal/errors"
	"github.com/openclaw/interview-server-go/internal/metrics"
	"github.com/openclaw/interview-server-go/internal/model"
	"github.com/openclaw/interview-server-go/internal/proctor"
	"github.com/openclaw/interview-server-go/internal/repository"
	"github.com/openclaw/interview-server-go/internal/sse"
)

const maxEventTypeLength = 64

type RecordEventParams struct {
	SessionID string
	Type      string
	Present   *bool
	Details   map[string]any
}

// ProctorService appends integrity events and recomputes session risk from
// the full event log on every read.
type ProctorService struct {
	sessionRepo repository.SessionRepository
	eventRepo   repository.ProctorEventRepository
	publisher   EventPublisher
}

func NewProctorService(
	sessionRepo repository.SessionRepository,
	eventRepo repository.ProctorEventRepository,
	publisher EventPublisher,
) *ProctorService {
	return &ProctorService{
		sessionRepo: sessionRepo,
		eventRepo:   eventRepo,
		publisher:   publisher,
	}
}

// RecordEvent appends one event. The returned assessment includes it.
func (s *ProctorService) RecordEvent(ctx context.Context, params RecordEventParams) (*proctor.Assessment, error) {
	eventType := strings.TrimSpace(params.Type)
	if eventType == "" {
		return nil, apperrors.MissingRequired("type")
	}
	if len(eventType) > maxEventTypeLength {
		return nil, apperrors.InvalidInput("type", "too long")
	}

	session, err := s.sessionRepo.FindByID(ctx, params.SessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}

	payload := make(map[string]any, len(params.Details)+1)
	for k, v := range params.Details {
		payload[k] = v
	}
	if params.Present != nil {
		payload["present"] = *params.Present
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.InvalidInput("details", "not serializable")
	}
	rawPayload := json.RawMessage(raw)

	typ := model.ProctorEventType(eventType)
	event, err := s.eventRepo.Create(ctx, model.CreateProctorEventParams{
		SessionID: session.ID,
		EventType: typ,
		Severity:  proctor.SeverityFor(typ),
		Payload:   &rawPayload,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	assessment, err := s.Assess(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	metrics.ProctorEvent(eventType)
	log.Debug().
		Str("sessionId", session.ID).
		Str("type", eventType).
		Int("risk", assessment.RiskScore).
		Msg("proctor event recorded")

	publish(ctx, s.publisher, session.ID, sse.EventProctor, map[string]any{
		"event":      event,
		"riskScore":  assessment.RiskScore,
		"riskLevel":  assessment.RiskLevel,
		"shouldFlag": assessment.ShouldFlag(),
	})

	return assessment, nil
}

// Assess folds the persisted event log; there is no stored running risk.
func (s *ProctorService) Assess(ctx context.Context, sessionID string) (*proctor.Assessment, error) {
	events, err := s.eventRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	a := proctor.Assess(events)
	return &a, nil
}
