package model

import (
	"encoding/json"
	"time"
)

type Session struct {
	ID            string           `db:"id" json:"id"`
	InviteID      string           `db:"invite_id" json:"inviteId"`
	Status        SessionStatus    `db:"status" json:"status"`
	StartedAt     time.Time        `db:"started_at" json:"startedAt"`
	EndedAt       *time.Time       `db:"ended_at" json:"endedAt,omitempty"`
	Score         *float64         `db:"score" json:"score,omitempty"`
	ScoreCategory *string          `db:"score_category" json:"scoreCategory,omitempty"`
	Metadata      *json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"createdAt"`
}

type CompleteSessionParams struct {
	EndedAt       time.Time
	Score         *float64
	ScoreCategory *string
	Metadata      *json.RawMessage
}
