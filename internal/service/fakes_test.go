package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/interview-server-go/internal/database"
	apperrors "github.com/openclaw/interview-server-go/internal/errors"
	"github.com/openclaw/interview-server-go/internal/evaluator"
	"github.com/openclaw/interview-server-go/internal/model"
	"github.com/openclaw/interview-server-go/internal/repository"
	"github.com/openclaw/interview-server-go/internal/sse"
	"github.com/openclaw/interview-server-go/internal/storage"
)

// memStore is an in-memory stand-in for postgres. WithTx snapshots the
// whole store and restores it when fn fails.
type memStore struct {
	mu         sync.Mutex
	seq        int
	invites    map[string]model.Invite
	sessions   map[string]model.Session
	turns      map[string]model.Turn
	events     []model.ProctorEvent
	jobs       map[string]model.Job
	candidates map[string]model.Candidate

	failTurnCreate error
}

func newMemStore() *memStore {
	return &memStore{
		invites:    map[string]model.Invite{},
		sessions:   map[string]model.Session{},
		turns:      map[string]model.Turn{},
		jobs:       map[string]model.Job{},
		candidates: map[string]model.Candidate{},
	}
}

type memSnapshot struct {
	invites  map[string]model.Invite
	sessions map[string]model.Session
	turns    map[string]model.Turn
	events   []model.ProctorEvent
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) WithTx(ctx context.Context, fn database.TxFunc) error {
	s.mu.Lock()
	snap := memSnapshot{
		invites:  copyMap(s.invites),
		sessions: copyMap(s.sessions),
		turns:    copyMap(s.turns),
		events:   append([]model.ProctorEvent(nil), s.events...),
	}
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.invites, s.sessions, s.turns, s.events = snap.invites, snap.sessions, snap.turns, snap.events
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) addInvite(code string, status model.InviteStatus, expiresAt time.Time) model.Invite {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := model.Job{ID: s.nextID("job"), Title: "Backend Engineer", Description: "Go, PostgreSQL, distributed systems"}
	resume := "Built payment services in Go"
	cand := model.Candidate{ID: s.nextID("cand"), Name: "Sam Lee", Email: "sam@example.com", ResumeText: &resume}
	s.jobs[job.ID] = job
	s.candidates[cand.ID] = cand

	inv := model.Invite{
		ID:          s.nextID("inv"),
		CandidateID: cand.ID,
		JobID:       job.ID,
		Code:        code,
		Status:      status,
		ExpiresAt:   expiresAt,
	}
	s.invites[inv.ID] = inv
	return inv
}

func (s *memStore) invite(id string) model.Invite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invites[id]
}

func (s *memStore) session(id string) model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *memStore) sessionTurns(sessionID string) []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTurnsLocked(sessionID)
}

func (s *memStore) listTurnsLocked(sessionID string) []model.Turn {
	var out []model.Turn
	for _, t := range s.turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Idx < out[j].Idx })
	return out
}

func (s *memStore) putTurn(t model.Turn) model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = s.nextID("turn")
	}
	s.turns[t.ID] = t
	return t
}

func (s *memStore) setSessionStatus(id string, status model.SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	sess.Status = status
	s.sessions[id] = sess
}

func (s *memStore) addEvent(sessionID string, typ model.ProctorEventType, sev model.Severity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, model.ProctorEvent{ID: s.nextID("evt"), SessionID: sessionID, EventType: typ, Severity: sev})
}

// invite repository

type memInviteRepo struct{ s *memStore }

func (r memInviteRepo) WithTx(*sqlx.Tx) repository.InviteRepository { return r }

func (r memInviteRepo) FindByID(ctx context.Context, id string) (*model.Invite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invites[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r memInviteRepo) FindByCode(ctx context.Context, code string) (*model.Invite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invites {
		if inv.Code == code {
			found := inv
			return &found, nil
		}
	}
	return nil, nil
}

func (r memInviteRepo) MarkUsed(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invites[id]
	if !ok || inv.Status != model.InviteStatusPending {
		return false, nil
	}
	inv.Status = model.InviteStatusUsed
	r.s.invites[id] = inv
	return true, nil
}

func (r memInviteRepo) MarkExpired(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if inv, ok := r.s.invites[id]; ok && inv.Status == model.InviteStatusPending {
		inv.Status = model.InviteStatusExpired
		r.s.invites[id] = inv
	}
	return nil
}

func (r memInviteRepo) ExpireOverdue(ctx context.Context) (int64, error) {
	return 0, errors.New("not used")
}

// session repository

type memSessionRepo struct{ s *memStore }

func (r memSessionRepo) WithTx(*sqlx.Tx) repository.SessionRepository { return r }

func (r memSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (r memSessionRepo) FindByInviteID(ctx context.Context, inviteID string) (*model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sess := range r.s.sessions {
		if sess.InviteID == inviteID {
			found := sess
			return &found, nil
		}
	}
	return nil, nil
}

func (r memSessionRepo) Create(ctx context.Context, inviteID string, startedAt time.Time) (*model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess := model.Session{
		ID:        r.s.nextID("sess"),
		InviteID:  inviteID,
		Status:    model.SessionStatusStarted,
		StartedAt: startedAt,
	}
	r.s.sessions[sess.ID] = sess
	return &sess, nil
}

func (r memSessionRepo) Complete(ctx context.Context, id string, params model.CompleteSessionParams) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok || sess.Status != model.SessionStatusStarted {
		return false, nil
	}
	ended := params.EndedAt
	sess.Status = model.SessionStatusCompleted
	sess.EndedAt = &ended
	sess.Score = params.Score
	sess.ScoreCategory = params.ScoreCategory
	if params.Metadata != nil {
		sess.Metadata = params.Metadata
	}
	r.s.sessions[id] = sess
	return true, nil
}

func (r memSessionRepo) Abandon(ctx context.Context, id string, endedAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok || sess.Status != model.SessionStatusStarted {
		return false, nil
	}
	sess.Status = model.SessionStatusAbandoned
	sess.EndedAt = &endedAt
	r.s.sessions[id] = sess
	return true, nil
}

// turn repository

type memTurnRepo struct{ s *memStore }

func (r memTurnRepo) WithTx(*sqlx.Tx) repository.TurnRepository { return r }

func (r memTurnRepo) FindBySessionAndIdx(ctx context.Context, sessionID string, idx int) (*model.Turn, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.turns {
		if t.SessionID == sessionID && t.Idx == idx {
			found := t
			return &found, nil
		}
	}
	return nil, nil
}

func (r memTurnRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Turn, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.listTurnsLocked(sessionID), nil
}

func (r memTurnRepo) ListHistory(ctx context.Context, sessionID string, beforeIdx int, limit int) ([]model.Turn, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Turn
	for _, t := range r.s.listTurnsLocked(sessionID) {
		if t.Idx < beforeIdx && t.AnswerText != nil {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r memTurnRepo) Create(ctx context.Context, params model.CreateTurnParams) (*model.Turn, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failTurnCreate != nil {
		return nil, r.s.failTurnCreate
	}
	for _, t := range r.s.turns {
		if t.SessionID == params.SessionID && t.Idx == params.Idx {
			return nil, errors.New("duplicate turn")
		}
	}
	t := model.Turn{
		ID:        r.s.nextID("turn"),
		SessionID: params.SessionID,
		Idx:       params.Idx,
		Prompt:    params.Prompt,
		StartTime: params.StartTime,
		Deadline:  params.Deadline,
		Status:    params.Status,
	}
	r.s.turns[t.ID] = t
	return &t, nil
}

func (r memTurnRepo) Answer(ctx context.Context, id string, params model.AnswerTurnParams) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.turns[id]
	if !ok || t.SubmittedAt != nil {
		return false, nil
	}
	at := params.SubmittedAt
	answer := params.AnswerText
	t.Status = params.Status
	t.SubmittedAt = &at
	t.AnswerText = &answer
	t.AudioURL = params.AudioURL
	t.Scores = params.Scores
	t.FollowupReason = params.FollowupReason
	r.s.turns[id] = t
	return true, nil
}

func (r memTurnRepo) MarkTimeout(ctx context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.turns[id]
	if !ok || t.SubmittedAt != nil {
		return false, nil
	}
	answer := model.TimeoutAnswer
	t.Status = model.TurnStatusTimeout
	t.SubmittedAt = &at
	t.AnswerText = &answer
	r.s.turns[id] = t
	return true, nil
}

// proctor event repository

type memEventRepo struct{ s *memStore }

func (r memEventRepo) WithTx(*sqlx.Tx) repository.ProctorEventRepository { return r }

func (r memEventRepo) Create(ctx context.Context, params model.CreateProctorEventParams) (*model.ProctorEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e := model.ProctorEvent{
		ID:        r.s.nextID("evt"),
		SessionID: params.SessionID,
		EventType: params.EventType,
		Severity:  params.Severity,
		Payload:   params.Payload,
	}
	r.s.events = append(r.s.events, e)
	return &e, nil
}

func (r memEventRepo) ListBySession(ctx context.Context, sessionID string) ([]model.ProctorEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ProctorEvent
	for _, e := range r.s.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

// profile repository

type memProfileRepo struct{ s *memStore }

func (r memProfileRepo) FindJob(ctx context.Context, id string) (*model.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (r memProfileRepo) FindCandidate(ctx context.Context, id string) (*model.Candidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.candidates[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// collaborators

type mockEvaluator struct {
	mock.Mock
}

func (m *mockEvaluator) Evaluate(ctx context.Context, req evaluator.Request) (*evaluator.Evaluation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*evaluator.Evaluation), args.Error(1)
}

type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.text
}

type fakeAudio struct {
	mu      sync.Mutex
	saved   []string
	removed []string
	err     error
}

func (f *fakeAudio) Save(sessionID string, turnIdx int, data []byte) (storage.StoredAudio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return storage.StoredAudio{}, f.err
	}
	name := fmt.Sprintf("session_%s_turn_%d_%d.webm", sessionID, turnIdx, len(f.saved))
	f.saved = append(f.saved, name)
	return storage.StoredAudio{Filename: name, URL: storage.URLPrefix + name}, nil
}

func (f *fakeAudio) Remove(filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, filename)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []sse.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, sessionID string, event sse.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// payload decodes the data of the i-th published event.
func (p *recordingPublisher) payload(t *testing.T, i int) map[string]any {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.Greater(t, len(p.events), i)
	var out map[string]any
	require.NoError(t, json.Unmarshal(p.events[i].Data, &out))
	return out
}

type heldLocker struct{}

func (heldLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	return nil, apperrors.SubmissionInProgress()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
