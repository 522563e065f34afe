package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/openclaw/interview-server-go/internal/errors"
	"github.com/openclaw/interview-server-go/internal/repository"
	"github.com/openclaw/interview-server-go/internal/util"
)

type InviteInfo struct {
	InviteID      string    `json:"inviteId"`
	CandidateName string    `json:"candidateName"`
	JobTitle      string    `json:"jobTitle"`
	WindowStart   time.Time `json:"windowStart"`
	WindowEnd     time.Time `json:"windowEnd"`
	AnswerSeconds int       `json:"answerSeconds"`
	MaxQuestions  int       `json:"maxQuestions"`
}

// InviteService lets a candidate check an invite before starting.
type InviteService struct {
	inviteRepo    repository.InviteRepository
	profileRepo   repository.ProfileRepository
	answerSeconds int
	maxQuestions  int
	now           func() time.Time
}

func NewInviteService(
	inviteRepo repository.InviteRepository,
	profileRepo repository.ProfileRepository,
	answerSeconds, maxQuestions int,
) *InviteService {
	return &InviteService{
		inviteRepo:    inviteRepo,
		profileRepo:   profileRepo,
		answerSeconds: answerSeconds,
		maxQuestions:  maxQuestions,
		now:           time.Now,
	}
}

func (s *InviteService) Lookup(ctx context.Context, code string) (*InviteInfo, error) {
	if code == "" {
		return nil, apperrors.MissingRequired("code")
	}

	invite, err := s.inviteRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if invite == nil {
		log.Debug().Str("code", util.MaskCode(code)).Msg("invite lookup missed")
		return nil, apperrors.NotFound("Invite")
	}
	if err := ensureInviteUsable(ctx, s.inviteRepo, invite, s.now().UTC()); err != nil {
		return nil, err
	}

	info := &InviteInfo{
		InviteID:      invite.ID,
		WindowStart:   invite.CreatedAt,
		WindowEnd:     invite.ExpiresAt,
		AnswerSeconds: s.answerSeconds,
		MaxQuestions:  s.maxQuestions,
	}

	job, err := s.profileRepo.FindJob(ctx, invite.JobID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if job != nil {
		info.JobTitle = job.Title
	}
	candidate, err := s.profileRepo.FindCandidate(ctx, invite.CandidateID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if candidate != nil {
		info.CandidateName = candidate.Name
	}
	return info, nil
}
