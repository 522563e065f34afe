package model

type InviteStatus string

const (
	InviteStatusPending InviteStatus = "pending"
	InviteStatusUsed    InviteStatus = "used"
	InviteStatusExpired InviteStatus = "expired"
)

type SessionStatus string

const (
	SessionStatusStarted   SessionStatus = "started"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

type TurnStatus string

const (
	TurnStatusNotStarted TurnStatus = "not_started"
	TurnStatusPending    TurnStatus = "pending"
	TurnStatusOnTime     TurnStatus = "ontime"
	TurnStatusLate       TurnStatus = "late"
	TurnStatusTimeout    TurnStatus = "timeout"
)

// Answered reports whether the turn reached a terminal status.
func (s TurnStatus) Answered() bool {
	switch s {
	case TurnStatusOnTime, TurnStatusLate, TurnStatusTimeout:
		return true
	}
	return false
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type ProctorEventType string

const (
	ProctorTabHidden       ProctorEventType = "tab_hidden"
	ProctorTabVisible      ProctorEventType = "tab_visible"
	ProctorFaceNotDetected ProctorEventType = "face_not_detected"
	ProctorMultipleFaces   ProctorEventType = "multiple_faces"
	ProctorWindowBlur      ProctorEventType = "window_blur"
	ProctorCopyPaste       ProctorEventType = "copy_paste"
)
