package handler

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/openclaw/interview-server-go/internal/model"
	"github.com/openclaw/interview-server-go/internal/proctor"
	"github.com/openclaw/interview-server-go/internal/service"
)

type mockInterviewer struct {
	mock.Mock
}

func (m *mockInterviewer) StartSession(ctx context.Context, inviteCode string) (*service.StartResult, error) {
	args := m.Called(ctx, inviteCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StartResult), args.Error(1)
}

func (m *mockInterviewer) SubmitAnswer(ctx context.Context, params service.SubmitAnswerParams) (*service.SubmitResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitResult), args.Error(1)
}

func (m *mockInterviewer) HandleTimeout(ctx context.Context, sessionID string, turnIdx int) (*service.TimeoutResult, error) {
	args := m.Called(ctx, sessionID, turnIdx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TimeoutResult), args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordEvent(ctx context.Context, params service.RecordEventParams) (*proctor.Assessment, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*proctor.Assessment), args.Error(1)
}

type mockReviewer struct {
	mock.Mock
}

func (m *mockReviewer) Detail(ctx context.Context, id string) (*service.SessionDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SessionDetail), args.Error(1)
}

func (m *mockReviewer) Risk(ctx context.Context, id string) (*proctor.Assessment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*proctor.Assessment), args.Error(1)
}

func (m *mockReviewer) Abandon(ctx context.Context, id string) (*model.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

type mockInvites struct {
	mock.Mock
}

func (m *mockInvites) Lookup(ctx context.Context, code string) (*service.InviteInfo, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InviteInfo), args.Error(1)
}

// passthrough stands in for auth and rate-limit middleware.
func passthrough(next http.Handler) http.Handler { return next }
