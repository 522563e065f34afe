package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/openclaw/interview-server-go/internal/database"
	"github.com/openclaw/interview-server-go/internal/model"
)

type ProctorEventRepository interface {
	Create(ctx context.Context, params model.CreateProctorEventParams) (*model.ProctorEvent, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.ProctorEvent, error)
	WithTx(tx *sqlx.Tx) ProctorEventRepository
}

type proctorEventRepo struct {
	db database.DBTX
}

func NewProctorEventRepository(db *sqlx.DB) ProctorEventRepository {
	return &proctorEventRepo{db: db}
}

func (r *proctorEventRepo) WithTx(tx *sqlx.Tx) ProctorEventRepository {
	return &proctorEventRepo{db: tx}
}

func (r *proctorEventRepo) Create(ctx context.Context, params model.CreateProctorEventParams) (*model.ProctorEvent, error) {
	var event model.ProctorEvent
	err := r.db.GetContext(ctx, &event, `
		INSERT INTO proctor_events (session_id, event_type, severity, payload)
		VALUES ($1, $2, $3, $4::jsonb)
		RETURNING *
	`, params.SessionID, params.EventType, params.Severity, jsonArg(params.Payload))
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *proctorEventRepo) ListBySession(ctx context.Context, sessionID string) ([]model.ProctorEvent, error) {
	var events []model.ProctorEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM proctor_events WHERE session_id = $1 ORDER BY created_at ASC
	`, sessionID)
	return events, err
}
