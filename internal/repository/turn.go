package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/interview-server-go/internal/database"
	"github.com/openclaw/interview-server-go/internal/model"
)

type TurnRepository interface {
	FindBySessionAndIdx(ctx context.Context, sessionID string, idx int) (*model.Turn, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.Turn, error)
	// ListHistory returns up to limit answered turns before idx, oldest first.
	ListHistory(ctx context.Context, sessionID string, beforeIdx int, limit int) ([]model.Turn, error)
	Create(ctx context.Context, params model.CreateTurnParams) (*model.Turn, error)
	// Answer records a submission. It reports false when the turn had
	// already been answered or timed out.
	Answer(ctx context.Context, id string, params model.AnswerTurnParams) (bool, error)
	MarkTimeout(ctx context.Context, id string, at time.Time) (bool, error)
	WithTx(tx *sqlx.Tx) TurnRepository
}

type turnRepo struct {
	db database.DBTX
}

func NewTurnRepository(db *sqlx.DB) TurnRepository {
	return &turnRepo{db: db}
}

func (r *turnRepo) WithTx(tx *sqlx.Tx) TurnRepository {
	return &turnRepo{db: tx}
}

func (r *turnRepo) FindBySessionAndIdx(ctx context.Context, sessionID string, idx int) (*model.Turn, error) {
	var turn model.Turn
	err := r.db.GetContext(ctx, &turn, `
		SELECT * FROM turns WHERE session_id = $1 AND idx = $2
	`, sessionID, idx)
	return HandleNotFound(&turn, err)
}

func (r *turnRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Turn, error) {
	var turns []model.Turn
	err := r.db.SelectContext(ctx, &turns, `
		SELECT * FROM turns WHERE session_id = $1 ORDER BY idx ASC
	`, sessionID)
	return turns, err
}

func (r *turnRepo) ListHistory(ctx context.Context, sessionID string, beforeIdx int, limit int) ([]model.Turn, error) {
	var turns []model.Turn
	err := r.db.SelectContext(ctx, &turns, `
		SELECT * FROM (
			SELECT * FROM turns
			WHERE session_id = $1 AND idx < $2 AND answer_text IS NOT NULL
			ORDER BY idx DESC
			LIMIT $3
		) recent ORDER BY idx ASC
	`, sessionID, beforeIdx, limit)
	return turns, err
}

func (r *turnRepo) Create(ctx context.Context, params model.CreateTurnParams) (*model.Turn, error) {
	var turn model.Turn
	err := r.db.GetContext(ctx, &turn, `
		INSERT INTO turns (session_id, idx, prompt, start_time, deadline, status, scores)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, params.SessionID, params.Idx, params.Prompt, params.StartTime, params.Deadline, params.Status, model.TurnScores{})
	if err != nil {
		return nil, err
	}
	return &turn, nil
}

func (r *turnRepo) Answer(ctx context.Context, id string, params model.AnswerTurnParams) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE turns SET
			status = $2,
			submitted_at = $3,
			answer_text = $4,
			audio_url = $5,
			scores = $6,
			followup_reason = $7
		WHERE id = $1 AND submitted_at IS NULL
	`, id, params.Status, params.SubmittedAt, params.AnswerText, params.AudioURL, params.Scores, params.FollowupReason)
	return affectedOne(result, err)
}

func (r *turnRepo) MarkTimeout(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE turns SET
			status = 'timeout',
			submitted_at = $2,
			answer_text = $3
		WHERE id = $1 AND submitted_at IS NULL
	`, id, at, model.TimeoutAnswer)
	return affectedOne(result, err)
}
