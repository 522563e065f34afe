package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/openclaw/interview-server-go/internal/errors"
	"github.com/openclaw/interview-server-go/internal/model"
	"github.com/openclaw/interview-server-go/internal/proctor"
	"github.com/openclaw/interview-server-go/internal/repository"
	"github.com/openclaw/interview-server-go/internal/scoring"
	"github.com/openclaw/interview-server-go/internal/sse"
	"github.com/openclaw/interview-server-go/internal/structure"
	"github.com/openclaw/interview-server-go/internal/util"
)

type TurnView struct {
	model.Turn
	Section  string `json:"section"`
	Progress string `json:"sectionProgress"`
}

type SessionDetail struct {
	Session   *model.Session      `json:"session"`
	Turns     []TurnView          `json:"turns"`
	Risk      *proctor.Assessment `json:"risk"`
	Flagged   bool                `json:"flagged"`
	Breakdown string              `json:"breakdown,omitempty"`
}

type AdminService struct {
	sessionRepo   repository.SessionRepository
	turnRepo      repository.TurnRepository
	proctor       *ProctorService
	structure     *structure.Structure
	publisher     EventPublisher
	adminUsername string
	passwordHash  string
	now           func() time.Time
}

func NewAdminService(
	sessionRepo repository.SessionRepository,
	turnRepo repository.TurnRepository,
	proctorService *ProctorService,
	st *structure.Structure,
	publisher EventPublisher,
	adminUsername, passwordHash string,
) *AdminService {
	return &AdminService{
		sessionRepo:   sessionRepo,
		turnRepo:      turnRepo,
		proctor:       proctorService,
		structure:     st,
		publisher:     publisher,
		adminUsername: adminUsername,
		passwordHash:  passwordHash,
		now:           time.Now,
	}
}

// Enabled reports whether an admin password is configured at all.
func (s *AdminService) Enabled() bool {
	return s.passwordHash != ""
}

func (s *AdminService) Authenticate(username, password string) bool {
	if !s.Enabled() {
		return false
	}
	userOK := util.ConstantTimeEqual(username, s.adminUsername)
	passOK := util.CheckPasswordHash(password, s.passwordHash)
	return userOK && passOK
}

func (s *AdminService) findSession(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	return session, nil
}

func (s *AdminService) Detail(ctx context.Context, id string) (*SessionDetail, error) {
	session, err := s.findSession(ctx, id)
	if err != nil {
		return nil, err
	}

	turns, err := s.turnRepo.ListBySession(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	views := make([]TurnView, 0, len(turns))
	for _, t := range turns {
		info := s.structure.SectionInfo(t.Idx)
		views = append(views, TurnView{Turn: t, Section: info.Name, Progress: info.Progress})
	}

	risk, err := s.proctor.Assess(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &SessionDetail{
		Session: session,
		Turns:   views,
		Risk:    risk,
		Flagged: risk.ShouldFlag(),
	}
	if session.ScoreCategory != nil {
		detail.Breakdown = scoring.Breakdown(scoring.Category(*session.ScoreCategory))
	}
	return detail, nil
}

func (s *AdminService) Risk(ctx context.Context, id string) (*proctor.Assessment, error) {
	if _, err := s.findSession(ctx, id); err != nil {
		return nil, err
	}
	return s.proctor.Assess(ctx, id)
}

// Abandon ends a started session without scoring it.
func (s *AdminService) Abandon(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.findSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusStarted {
		return nil, apperrors.SessionNotActive(string(session.Status))
	}

	now := s.now().UTC()
	ok, err := s.sessionRepo.Abandon(ctx, id, now)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if !ok {
		return nil, apperrors.SessionNotActive("no longer started")
	}

	session.Status = model.SessionStatusAbandoned
	session.EndedAt = &now

	log.Info().Str("sessionId", id).Msg("session abandoned")
	publish(ctx, s.publisher, id, sse.EventSessionAbandoned, map[string]any{"endedAt": now})

	return session, nil
}
