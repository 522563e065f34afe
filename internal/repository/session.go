package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/interview-server-go/internal/database"
	"github.com/openclaw/interview-server-go/internal/model"
	"github.com/openclaw/interview-server-go/internal/util"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	FindByInviteID(ctx context.Context, inviteID string) (*model.Session, error)
	Create(ctx context.Context, inviteID string, startedAt time.Time) (*model.Session, error)
	// Complete moves a started session to completed. It reports false when
	// the session had already left the started state.
	Complete(ctx context.Context, id string, params model.CompleteSessionParams) (bool, error)
	Abandon(ctx context.Context, id string, endedAt time.Time) (bool, error)
	WithTx(tx *sqlx.Tx) SessionRepository
}

type sessionRepo struct {
	db database.DBTX
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if !util.IsValidUUID(id) {
		return nil, nil
	}
	var session model.Session
	err := r.db.GetContext(ctx, &session, `SELECT * FROM sessions WHERE id = $1`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindByInviteID(ctx context.Context, inviteID string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `SELECT * FROM sessions WHERE invite_id = $1`, inviteID)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Create(ctx context.Context, inviteID string, startedAt time.Time) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (invite_id, status, started_at)
		VALUES ($1, 'started', $2)
		RETURNING *
	`, inviteID, startedAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Complete merges params.Metadata into the existing metadata bag; a nil
// Metadata leaves it untouched.
func (r *sessionRepo) Complete(ctx context.Context, id string, params model.CompleteSessionParams) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = 'completed',
			ended_at = $2,
			score = $3,
			score_category = $4,
			metadata = COALESCE(COALESCE(metadata, '{}'::jsonb) || $5::jsonb, metadata)
		WHERE id = $1 AND status = 'started'
	`, id, params.EndedAt, params.Score, params.ScoreCategory, jsonArg(params.Metadata))
	return affectedOne(result, err)
}

func (r *sessionRepo) Abandon(ctx context.Context, id string, endedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = 'abandoned',
			ended_at = $2
		WHERE id = $1 AND status = 'started'
	`, id, endedAt)
	return affectedOne(result, err)
}
