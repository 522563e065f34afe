package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TimeoutAnswer is stored as the answer of every turn that expired unanswered.
const TimeoutAnswer = "[No response - timeout]"

// TurnScores is the rubric outcome persisted on a turn. Score is nil when
// scoring was suppressed or the answer could not be transcribed.
type TurnScores struct {
	Score   *float64 `json:"score"`
	Missing []string `json:"missing"`
}

func (s TurnScores) Value() (driver.Value, error) {
	if s.Missing == nil {
		s.Missing = []string{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *TurnScores) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = TurnScores{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("scan turn scores: unsupported type %T", src)
	}
}

type Turn struct {
	ID             string     `db:"id" json:"id"`
	SessionID      string     `db:"session_id" json:"sessionId"`
	Idx            int        `db:"idx" json:"idx"`
	Prompt         string     `db:"prompt" json:"prompt"`
	StartTime      time.Time  `db:"start_time" json:"startTime"`
	Deadline       time.Time  `db:"deadline" json:"deadline"`
	SubmittedAt    *time.Time `db:"submitted_at" json:"submittedAt,omitempty"`
	AnswerText     *string    `db:"answer_text" json:"answerText,omitempty"`
	AudioURL       *string    `db:"audio_url" json:"audioUrl,omitempty"`
	Status         TurnStatus `db:"status" json:"status"`
	Scores         TurnScores `db:"scores" json:"scores"`
	FollowupReason *string    `db:"followup_reason" json:"followupReason,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}

type CreateTurnParams struct {
	SessionID string
	Idx       int
	Prompt    string
	StartTime time.Time
	Deadline  time.Time
	Status    TurnStatus
}

type AnswerTurnParams struct {
	Status         TurnStatus
	SubmittedAt    time.Time
	AnswerText     string
	AudioURL       *string
	Scores         TurnScores
	FollowupReason *string
}
