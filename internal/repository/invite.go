package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/interview-server-go/internal/database"
	"github.com/openclaw/interview-server-go/internal/model"
	"github.com/openclaw/interview-server-go/internal/util"
)

type InviteRepository interface {
	FindByID(ctx context.Context, id string) (*model.Invite, error)
	FindByCode(ctx context.Context, code string) (*model.Invite, error)
	// MarkUsed flips a pending invite to used. It reports false when the
	// invite was no longer pending.
	MarkUsed(ctx context.Context, id string) (bool, error)
	MarkExpired(ctx context.Context, id string) error
	ExpireOverdue(ctx context.Context) (int64, error)
	WithTx(tx *sqlx.Tx) InviteRepository
}

type inviteRepo struct {
	db database.DBTX
}

func NewInviteRepository(db *sqlx.DB) InviteRepository {
	return &inviteRepo{db: db}
}

func (r *inviteRepo) WithTx(tx *sqlx.Tx) InviteRepository {
	return &inviteRepo{db: tx}
}

func (r *inviteRepo) FindByID(ctx context.Context, id string) (*model.Invite, error) {
	if !util.IsValidUUID(id) {
		return nil, nil
	}
	var invite model.Invite
	err := r.db.GetContext(ctx, &invite, `SELECT * FROM invites WHERE id = $1`, id)
	return HandleNotFound(&invite, err)
}

func (r *inviteRepo) FindByCode(ctx context.Context, code string) (*model.Invite, error) {
	var invite model.Invite
	err := r.db.GetContext(ctx, &invite, `SELECT * FROM invites WHERE invite_code = $1`, code)
	return HandleNotFound(&invite, err)
}

func (r *inviteRepo) MarkUsed(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE invites SET status = 'used'
		WHERE id = $1 AND status = 'pending'
	`, id)
	return affectedOne(result, err)
}

func (r *inviteRepo) MarkExpired(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE invites SET status = 'expired'
		WHERE id = $1 AND status = 'pending'
	`, id)
	return err
}

func (r *inviteRepo) ExpireOverdue(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE invites SET status = 'expired'
		WHERE status = 'pending' AND expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
