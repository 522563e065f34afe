package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/interview-server-go/internal/audit"
	"github.com/openclaw/interview-server-go/internal/config"
	apperrors "github.com/openclaw/interview-server-go/internal/errors"
	"github.com/openclaw/interview-server-go/internal/evaluator"
	"github.com/openclaw/interview-server-go/internal/metrics"
	"github.com/openclaw/interview-server-go/internal/model"
	"github.com/openclaw/interview-server-go/internal/proctor"
	"github.com/openclaw/interview-server-go/internal/repository"
	"github.com/openclaw/interview-server-go/internal/scoring"
	"github.com/openclaw/interview-server-go/internal/sse"
	"github.com/openclaw/interview-server-go/internal/structure"
	"github.com/openclaw/interview-server-go/internal/token"
	"github.com/openclaw/interview-server-go/internal/transcribe"
	"github.com/openclaw/interview-server-go/internal/util"
)

const (
	reasonTranscriptionFailed = "Audio transcription failed"
	reasonEvaluated           = "Generated based on candidate response"
	reasonEvaluationFailed    = "Evaluation error - fallback response"

	audioRetryPrompt     = "I'm sorry, there was an issue with the audio. Could you please try answering again?"
	evaluationFailPrompt = "Thank you for your answer. Let's continue with the next topic."
	defaultNextPrompt    = "Thank you for your response."
	timeoutNextPrompt    = "Let's move on to another question. Can you tell me about a challenging project you've worked on?"
	technologyFallback   = "Let's discuss programming fundamentals. Can you explain the difference between arrays and linked lists?"
	genericFallback      = "Let's continue with the next question. Can you tell me more about your experience?"

	placeholderScore    = 3.0
	evaluationFailScore = 5.0
)

type outcomeKind int

const (
	outcomeEvaluated outcomeKind = iota
	outcomeUnscored
	outcomeTranscriptionFailed
	outcomeEvaluationFailed
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeEvaluated:
		return "evaluated"
	case outcomeUnscored:
		return "unscored"
	case outcomeTranscriptionFailed:
		return "transcription_failed"
	case outcomeEvaluationFailed:
		return "evaluation_failed"
	}
	return "unknown"
}

// answerOutcome is what the orchestrator persists for one submitted answer.
// evaluation is the raw or substituted evaluation; storedScore is the value
// written to the turn and may differ from evaluation.Score.
type answerOutcome struct {
	kind        outcomeKind
	evaluation  evaluator.Evaluation
	storedScore *float64
	reason      string
}

func (o answerOutcome) nextPrompt() string {
	if o.evaluation.Followup == "" {
		return defaultNextPrompt
	}
	return o.evaluation.Followup
}

type InterviewDeps struct {
	DB          TxRunner
	Invites     repository.InviteRepository
	Sessions    repository.SessionRepository
	Turns       repository.TurnRepository
	Events      repository.ProctorEventRepository
	Profiles    repository.ProfileRepository
	Structure   *structure.Structure
	Transcriber transcribe.Gateway
	Evaluator   evaluator.Evaluator
	Audio       AudioStorage
	Locker      SessionLocker
	Publisher   EventPublisher
	Tokens      *token.Manager
	Policy      config.InterviewConfig

	TranscribeTimeout time.Duration
	EvaluateTimeout   time.Duration

	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

// InterviewService drives the session and turn state machine.
type InterviewService struct {
	deps InterviewDeps
}

func NewInterviewService(deps InterviewDeps) *InterviewService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.TranscribeTimeout <= 0 {
		deps.TranscribeTimeout = 60 * time.Second
	}
	if deps.EvaluateTimeout <= 0 {
		deps.EvaluateTimeout = 30 * time.Second
	}
	return &InterviewService{deps: deps}
}

type StartResult struct {
	SessionID     string    `json:"sessionId"`
	Question      string    `json:"question"`
	TurnIdx       int       `json:"turnIdx"`
	AnswerSeconds int       `json:"answerSeconds"`
	BufferSeconds int       `json:"bufferSeconds"`
	DeadlineUTC   time.Time `json:"deadlineUtc"`
	Token         string    `json:"token"`
}

type SubmitAnswerParams struct {
	SessionID string
	TurnIdx   int
	Question  string
	Audio     []byte
}

type SubmitResult struct {
	Transcript          string           `json:"transcript"`
	TurnStatus          model.TurnStatus `json:"turnStatus"`
	Score               *float64         `json:"score"`
	Missing             []string         `json:"missing"`
	BufferSeconds       int              `json:"bufferSeconds"`
	AnswerSeconds       int              `json:"answerSeconds"`
	Complete            bool             `json:"complete"`
	SuccessfulQuestions int              `json:"successfulQuestions"`
	FailedAttempts      int              `json:"failedAttempts"`
	NextQuestion        *string          `json:"nextQuestion,omitempty"`
	NextTurnIdx         *int             `json:"nextTurnIdx,omitempty"`
	ShowAtUTC           *time.Time       `json:"showAtUtc,omitempty"`
}

type TimeoutResult struct {
	Complete      bool       `json:"complete"`
	Message       string     `json:"message,omitempty"`
	NextQuestion  *string    `json:"nextQuestion,omitempty"`
	NextTurnIdx   *int       `json:"nextTurnIdx,omitempty"`
	ShowAtUTC     *time.Time `json:"showAtUtc,omitempty"`
	BufferSeconds int        `json:"bufferSeconds"`
	AnswerSeconds int        `json:"answerSeconds"`
}

// StartSession redeems an invite code and opens turn 1.
func (s *InterviewService) StartSession(ctx context.Context, inviteCode string) (*StartResult, error) {
	if inviteCode == "" {
		return nil, apperrors.MissingRequired("inviteCode")
	}

	invite, err := s.deps.Invites.FindByCode(ctx, inviteCode)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if invite == nil {
		audit.Log(ctx, audit.Event{
			Type:    audit.EventInviteRejected,
			Details: map[string]interface{}{"code": util.MaskCode(inviteCode), "reason": "unknown"},
		})
		return nil, apperrors.NotFound("Invite")
	}

	now := s.deps.Now().UTC()
	if err := ensureInviteUsable(ctx, s.deps.Invites, invite, now); err != nil {
		return nil, err
	}

	existing, err := s.deps.Sessions.FindByInviteID(ctx, invite.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return nil, apperrors.SessionExists()
	}

	var session *model.Session
	var first *model.Turn
	err = s.deps.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := s.deps.Invites.WithTx(tx).MarkUsed(ctx, invite.ID)
		if err != nil {
			return apperrors.Database(err)
		}
		if !ok {
			return apperrors.InviteNotPending("no longer pending")
		}

		session, err = s.deps.Sessions.WithTx(tx).Create(ctx, invite.ID, now)
		if err != nil {
			if repository.IsUniqueViolation(err) {
				return apperrors.SessionExists()
			}
			return apperrors.Database(err)
		}

		first, err = s.deps.Turns.WithTx(tx).Create(ctx, model.CreateTurnParams{
			SessionID: session.ID,
			Idx:       1,
			Prompt:    s.deps.Structure.IntroductionPrompt(),
			StartTime: now,
			Deadline:  now.Add(s.deps.Policy.AnswerWindow()),
			Status:    model.TurnStatusNotStarted,
		})
		if err != nil {
			return apperrors.Database(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	signed, err := s.deps.Tokens.Issue(session.ID, now)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue session token").WithCause(err)
	}

	metrics.SessionStarted()
	audit.Log(ctx, audit.Event{
		Type:      audit.EventSessionStart,
		SessionID: session.ID,
		InviteID:  invite.ID,
	})

	return &StartResult{
		SessionID:     session.ID,
		Question:      first.Prompt,
		TurnIdx:       first.Idx,
		AnswerSeconds: s.deps.Policy.AnswerSeconds,
		BufferSeconds: s.deps.Policy.BufferSeconds,
		DeadlineUTC:   first.Deadline,
		Token:         signed,
	}, nil
}

// ensureInviteUsable rejects non-pending invites and moves an overdue pending
// invite to expired before rejecting it.
func ensureInviteUsable(ctx context.Context, invites repository.InviteRepository, invite *model.Invite, now time.Time) error {
	if invite.Status != model.InviteStatusPending {
		audit.Log(ctx, audit.Event{
			Type:     audit.EventInviteRejected,
			InviteID: invite.ID,
			Details:  map[string]interface{}{"status": string(invite.Status)},
		})
		if invite.Status == model.InviteStatusExpired {
			return apperrors.InviteExpired()
		}
		return apperrors.InviteNotPending(string(invite.Status))
	}

	if invite.Expired(now) {
		if err := invites.MarkExpired(ctx, invite.ID); err != nil {
			return apperrors.Database(err)
		}
		audit.Log(ctx, audit.Event{Type: audit.EventInviteExpired, InviteID: invite.ID})
		return apperrors.InviteExpired()
	}
	return nil
}

// lock takes the per-session lock. When the lock store itself is down the
// request proceeds; the guarded turn update still rejects duplicates.
func (s *InterviewService) lock(ctx context.Context, sessionID string) (func(), error) {
	if s.deps.Locker == nil {
		return func() {}, nil
	}
	unlock, err := s.deps.Locker.Lock(ctx, sessionID)
	if err != nil {
		if apperrors.IsAppError(err) {
			audit.Log(ctx, audit.Event{Type: audit.EventDuplicateSubmit, SessionID: sessionID})
			return nil, err
		}
		log.Warn().Err(err).Str("sessionId", sessionID).Msg("session lock unavailable, continuing unlocked")
		return func() {}, nil
	}
	return unlock, nil
}

// activeTurn loads a started session and one of its unanswered turns.
func (s *InterviewService) activeTurn(ctx context.Context, sessionID string, turnIdx int) (*model.Session, *model.Turn, error) {
	session, err := s.deps.Sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, nil, apperrors.NotFound("Session")
	}
	if session.Status != model.SessionStatusStarted {
		return nil, nil, apperrors.SessionNotActive(string(session.Status))
	}

	turn, err := s.deps.Turns.FindBySessionAndIdx(ctx, sessionID, turnIdx)
	if err != nil {
		return nil, nil, apperrors.Database(err)
	}
	if turn == nil {
		return nil, nil, apperrors.NotFound("Turn")
	}
	if turn.Status.Answered() || turn.SubmittedAt != nil {
		return nil, nil, apperrors.TurnAlreadyAnswered(turnIdx)
	}
	return session, turn, nil
}

// SubmitAnswer records a spoken answer, evaluates it and either opens the
// next turn or completes the session.
func (s *InterviewService) SubmitAnswer(ctx context.Context, params SubmitAnswerParams) (*SubmitResult, error) {
	if len(params.Audio) == 0 {
		return nil, apperrors.MissingRequired("audio")
	}
	if params.TurnIdx < 1 {
		return nil, apperrors.InvalidInput("turn_idx", "must be a positive integer")
	}

	unlock, err := s.lock(ctx, params.SessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, turn, err := s.activeTurn(ctx, params.SessionID, params.TurnIdx)
	if err != nil {
		return nil, err
	}

	now := s.deps.Now().UTC()
	status := model.TurnStatusOnTime
	if now.After(turn.Deadline.Add(s.deps.Policy.Grace())) {
		status = model.TurnStatusLate
	}

	stored, err := s.deps.Audio.Save(session.ID, turn.Idx, params.Audio)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	transcript := s.transcribe(ctx, params.Audio, stored.Filename)

	question := params.Question
	if question == "" {
		question = turn.Prompt
	}
	outcome, err := s.evaluate(ctx, session, turn, question, transcript)
	if err != nil {
		s.discardAudio(stored.Filename)
		return nil, err
	}

	result := &SubmitResult{
		Transcript:    transcript,
		TurnStatus:    status,
		Missing:       outcome.evaluation.Missing,
		BufferSeconds: s.deps.Policy.BufferSeconds,
		AnswerSeconds: s.deps.Policy.AnswerSeconds,
	}
	if outcome.kind == outcomeEvaluated || outcome.kind == outcomeEvaluationFailed {
		result.Score = outcome.storedScore
	}
	if result.Missing == nil {
		result.Missing = []string{}
	}

	var finalAssessment *scoring.Assessment
	err = s.deps.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		turns := s.deps.Turns.WithTx(tx)

		reason := outcome.reason
		ok, err := turns.Answer(ctx, turn.ID, model.AnswerTurnParams{
			Status:      status,
			SubmittedAt: now,
			AnswerText:  transcript,
			AudioURL:    &stored.URL,
			Scores: model.TurnScores{
				Score:   outcome.storedScore,
				Missing: result.Missing,
			},
			FollowupReason: &reason,
		})
		if err != nil {
			return apperrors.Database(err)
		}
		if !ok {
			return apperrors.TurnAlreadyAnswered(turn.Idx)
		}

		all, err := turns.ListBySession(ctx, session.ID)
		if err != nil {
			return apperrors.Database(err)
		}
		successful, failed := countSubmitted(all)
		result.SuccessfulQuestions = successful
		result.FailedAttempts = failed

		result.Complete = successful >= s.deps.Policy.MaxQuestions ||
			failed >= s.deps.Policy.MaxRetries ||
			outcome.evaluation.Complete

		if !result.Complete {
			next, err := s.openNextTurn(ctx, turns, session.ID, turn.Idx+1, outcome.nextPrompt(), now)
			if err != nil {
				return err
			}
			result.NextQuestion = &next.Prompt
			result.NextTurnIdx = &next.Idx
			result.ShowAtUTC = &next.StartTime
			return nil
		}

		finalAssessment, err = s.finalize(ctx, tx, session.ID, all, successful, failed, now)
		return err
	})
	if err != nil {
		s.discardAudio(stored.Filename)
		return nil, err
	}

	metrics.TurnRecorded(string(status), outcome.kind.String())
	log.Info().
		Str("sessionId", session.ID).
		Int("turnIdx", turn.Idx).
		Str("status", string(status)).
		Str("outcome", outcome.kind.String()).
		Int("successful", result.SuccessfulQuestions).
		Int("failed", result.FailedAttempts).
		Bool("complete", result.Complete).
		Msg("answer recorded")

	publish(ctx, s.deps.Publisher, session.ID, sse.EventTurnAnswered, map[string]any{
		"turnIdx":    turn.Idx,
		"status":     status,
		"outcome":    outcome.kind.String(),
		"score":      outcome.storedScore,
		"missing":    outcome.evaluation.Missing,
		"followup":   outcome.evaluation.Followup,
		"complete":   result.Complete,
	})
	if result.Complete {
		s.completed(ctx, session.ID, finalAssessment)
	}

	return result, nil
}

func (s *InterviewService) transcribe(ctx context.Context, audio []byte, filename string) string {
	tctx, cancel := context.WithTimeout(ctx, s.deps.TranscribeTimeout)
	defer cancel()

	start := time.Now()
	transcript := s.deps.Transcriber.Transcribe(tctx, audio, filename)
	metrics.ObserveUpstream("transcribe", time.Since(start))
	return transcript
}

// evaluate picks the substitution policy for one answer. Only persistence
// errors are returned; upstream failures become outcome variants.
func (s *InterviewService) evaluate(ctx context.Context, session *model.Session, turn *model.Turn, question, transcript string) (answerOutcome, error) {
	if transcribe.IsFailure(transcript) {
		log.Warn().
			Str("sessionId", session.ID).
			Int("turnIdx", turn.Idx).
			Str("transcript", transcript).
			Msg("transcription failed, using placeholder evaluation")
		return answerOutcome{
			kind: outcomeTranscriptionFailed,
			evaluation: evaluator.Evaluation{
				Score:    placeholderScore,
				Missing:  []string{"Could not evaluate due to audio issues"},
				Followup: audioRetryPrompt,
			},
			reason: reasonTranscriptionFailed,
		}, nil
	}

	req, err := s.buildRequest(ctx, session, turn, question, transcript)
	if err != nil {
		return answerOutcome{}, err
	}

	ectx, cancel := context.WithTimeout(ctx, s.deps.EvaluateTimeout)
	defer cancel()
	start := time.Now()
	eval, evalErr := s.deps.Evaluator.Evaluate(ectx, req)
	metrics.ObserveUpstream("evaluate", time.Since(start))
	if evalErr == nil && eval == nil {
		evalErr = fmt.Errorf("evaluator returned no result")
	}

	if s.deps.Structure.ShouldSkipScoring(turn.Idx) {
		if evalErr != nil {
			next := s.deps.Structure.SectionOf(turn.Idx + 1)
			log.Warn().Err(evalErr).
				Str("sessionId", session.ID).
				Int("turnIdx", turn.Idx).
				Msg("question generation failed, using section fallback")
			followup := genericFallback
			if next.Name == "technology" {
				followup = technologyFallback
			}
			return answerOutcome{
				kind:       outcomeUnscored,
				evaluation: evaluator.Evaluation{Missing: []string{}, Followup: followup},
				reason:     fmt.Sprintf("Question generation error - %s fallback", next.Name),
			}, nil
		}
		unscored := *eval
		unscored.Score = 0
		return answerOutcome{
			kind:       outcomeUnscored,
			evaluation: unscored,
			reason:     fmt.Sprintf("%s section - no scoring", s.deps.Structure.SectionOf(turn.Idx).Name),
		}, nil
	}

	if evalErr != nil {
		log.Warn().Err(evalErr).
			Str("sessionId", session.ID).
			Int("turnIdx", turn.Idx).
			Msg("evaluation failed, using fallback evaluation")
		score := evaluationFailScore
		return answerOutcome{
			kind: outcomeEvaluationFailed,
			evaluation: evaluator.Evaluation{
				Score:    score,
				Missing:  []string{"Error during evaluation"},
				Followup: evaluationFailPrompt,
			},
			storedScore: &score,
			reason:      reasonEvaluationFailed,
		}, nil
	}

	score := eval.Score
	return answerOutcome{
		kind:        outcomeEvaluated,
		evaluation:  *eval,
		storedScore: &score,
		reason:      reasonEvaluated,
	}, nil
}

func (s *InterviewService) buildRequest(ctx context.Context, session *model.Session, turn *model.Turn, question, transcript string) (evaluator.Request, error) {
	var jobDescription, resumeText string

	invite, err := s.deps.Invites.FindByID(ctx, session.InviteID)
	if err != nil {
		return evaluator.Request{}, apperrors.Database(err)
	}
	if invite != nil {
		job, err := s.deps.Profiles.FindJob(ctx, invite.JobID)
		if err != nil {
			return evaluator.Request{}, apperrors.Database(err)
		}
		if job != nil {
			jobDescription = job.Description
		}
		candidate, err := s.deps.Profiles.FindCandidate(ctx, invite.CandidateID)
		if err != nil {
			return evaluator.Request{}, apperrors.Database(err)
		}
		if candidate != nil && candidate.ResumeText != nil {
			resumeText = *candidate.ResumeText
		}
	}

	prior, err := s.deps.Turns.ListHistory(ctx, session.ID, turn.Idx, config.EvaluatorHistoryLimit)
	if err != nil {
		return evaluator.Request{}, apperrors.Database(err)
	}
	history := make([]evaluator.HistoryItem, 0, len(prior))
	for _, t := range prior {
		if t.AnswerText == nil {
			continue
		}
		history = append(history, evaluator.HistoryItem{Question: t.Prompt, Answer: *t.AnswerText})
	}

	return evaluator.Request{
		Criteria:       evaluator.DefaultCriteria,
		Question:       question,
		Answer:         transcript,
		JobDescription: jobDescription,
		QuestionIndex:  turn.Idx,
		Next:           s.deps.Structure.QuestionContext(turn.Idx+1, jobDescription, resumeText),
		History:        history,
	}, nil
}

// HandleTimeout closes a turn the candidate let expire. The evaluator is not
// consulted on this path.
func (s *InterviewService) HandleTimeout(ctx context.Context, sessionID string, turnIdx int) (*TimeoutResult, error) {
	if turnIdx < 1 {
		return nil, apperrors.InvalidInput("turnIdx", "must be a positive integer")
	}

	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, turn, err := s.activeTurn(ctx, sessionID, turnIdx)
	if err != nil {
		return nil, err
	}

	now := s.deps.Now().UTC()
	result := &TimeoutResult{
		BufferSeconds: s.deps.Policy.BufferSeconds,
		AnswerSeconds: s.deps.Policy.AnswerSeconds,
	}

	err = s.deps.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		turns := s.deps.Turns.WithTx(tx)

		ok, err := turns.MarkTimeout(ctx, turn.ID, now)
		if err != nil {
			return apperrors.Database(err)
		}
		if !ok {
			return apperrors.TurnAlreadyAnswered(turn.Idx)
		}

		all, err := turns.ListBySession(ctx, session.ID)
		if err != nil {
			return apperrors.Database(err)
		}

		if countAnswered(all) < s.deps.Policy.MaxQuestions {
			next, err := s.openNextTurn(ctx, turns, session.ID, turn.Idx+1, timeoutNextPrompt, now)
			if err != nil {
				return err
			}
			result.NextQuestion = &next.Prompt
			result.NextTurnIdx = &next.Idx
			result.ShowAtUTC = &next.StartTime
			return nil
		}

		// Exhausting the budget by timeouts ends the session unscored.
		ok, err = s.deps.Sessions.WithTx(tx).Complete(ctx, session.ID, model.CompleteSessionParams{EndedAt: now})
		if err != nil {
			return apperrors.Database(err)
		}
		if !ok {
			return apperrors.SessionNotActive("no longer started")
		}
		result.Complete = true
		result.Message = "Interview completed"
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TurnRecorded(string(model.TurnStatusTimeout), "none")
	log.Info().
		Str("sessionId", session.ID).
		Int("turnIdx", turn.Idx).
		Bool("complete", result.Complete).
		Msg("turn timed out")

	publish(ctx, s.deps.Publisher, session.ID, sse.EventTurnTimeout, map[string]any{
		"turnIdx":  turn.Idx,
		"complete": result.Complete,
	})
	if result.Complete {
		s.completed(ctx, session.ID, nil)
	}

	return result, nil
}

func (s *InterviewService) openNextTurn(ctx context.Context, turns repository.TurnRepository, sessionID string, idx int, prompt string, now time.Time) (*model.Turn, error) {
	start := now.Add(s.deps.Policy.Buffer())
	next, err := turns.Create(ctx, model.CreateTurnParams{
		SessionID: sessionID,
		Idx:       idx,
		Prompt:    prompt,
		StartTime: start,
		Deadline:  start.Add(s.deps.Policy.AnswerWindow()),
		Status:    model.TurnStatusPending,
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.Conflict(fmt.Sprintf("Turn %d already exists", idx))
		}
		return nil, apperrors.Database(err)
	}
	return next, nil
}

// finalize completes the session inside tx. With no scored turn the session
// is completed without score, category or assessment.
func (s *InterviewService) finalize(ctx context.Context, tx *sqlx.Tx, sessionID string, turns []model.Turn, successful, failed int, now time.Time) (*scoring.Assessment, error) {
	params := model.CompleteSessionParams{EndedAt: now}

	var assessment *scoring.Assessment
	if mean, ok := meanScore(turns); ok {
		events, err := s.deps.Events.WithTx(tx).ListBySession(ctx, sessionID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		risk := proctor.Assess(events)

		a := scoring.Finalize(mean, successful, failed, risk.RiskScore)
		assessment = &a

		raw, err := json.Marshal(map[string]any{"final_assessment": a})
		if err != nil {
			return nil, apperrors.Internal("Failed to encode assessment").WithCause(err)
		}
		metadata := json.RawMessage(raw)
		category := string(a.ScoreCategory)

		params.Score = &mean
		params.ScoreCategory = &category
		params.Metadata = &metadata
	}

	ok, err := s.deps.Sessions.WithTx(tx).Complete(ctx, sessionID, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if !ok {
		return nil, apperrors.SessionNotActive("no longer started")
	}
	return assessment, nil
}

func (s *InterviewService) completed(ctx context.Context, sessionID string, assessment *scoring.Assessment) {
	category := ""
	payload := map[string]any{"scored": assessment != nil}
	if assessment != nil {
		category = string(assessment.ScoreCategory)
		payload["assessment"] = assessment
	}

	metrics.SessionCompleted(category)
	audit.Log(ctx, audit.Event{
		Type:      audit.EventSessionComplete,
		SessionID: sessionID,
		Details:   map[string]interface{}{"category": category},
	})
	publish(ctx, s.deps.Publisher, sessionID, sse.EventSessionCompleted, payload)
}

func (s *InterviewService) discardAudio(filename string) {
	if err := s.deps.Audio.Remove(filename); err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("failed to remove audio after rollback")
	}
}

func transcriptionFailed(t model.Turn) bool {
	return t.FollowupReason != nil && *t.FollowupReason == reasonTranscriptionFailed
}

// countSubmitted applies the submit-path budget: only transcription
// failures count against the candidate.
func countSubmitted(turns []model.Turn) (successful, failed int) {
	for _, t := range turns {
		if !transcriptionFailed(t) {
			successful++
		}
	}
	return successful, len(turns) - successful
}

// countAnswered applies the timeout-path budget, which also excludes
// timed-out turns.
func countAnswered(turns []model.Turn) int {
	n := 0
	for _, t := range turns {
		if transcriptionFailed(t) {
			continue
		}
		if t.AnswerText != nil && *t.AnswerText == model.TimeoutAnswer {
			continue
		}
		n++
	}
	return n
}

func meanScore(turns []model.Turn) (float64, bool) {
	var sum float64
	n := 0
	for _, t := range turns {
		if t.Scores.Score != nil {
			sum += *t.Scores.Score
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
