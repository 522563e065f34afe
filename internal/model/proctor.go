package model

import (
	"encoding/json"
	"time"
)

type ProctorEvent struct {
	ID        string           `db:"id" json:"id"`
	SessionID string           `db:"session_id" json:"sessionId"`
	EventType ProctorEventType `db:"event_type" json:"eventType"`
	Severity  Severity         `db:"severity" json:"severity"`
	Payload   *json.RawMessage `db:"payload" json:"payload,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}

type CreateProctorEventParams struct {
	SessionID string
	EventType ProctorEventType
	Severity  Severity
	Payload   *json.RawMessage
}
