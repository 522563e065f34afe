// Package proctor folds integrity events into a session risk assessment.
package proctor

import (
	"github.com/openclaw/interview-server-go/internal/model"
)

const (
	MaxRisk = 100

	highWeight   = 20
	mediumWeight = 10

	// Sessions at or above this risk are flagged for review and penalized
	// by the final scorer.
	FlagThreshold = 60
)

type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

type Assessment struct {
	RiskScore    int                            `json:"risk_score"`
	RiskLevel    Level                          `json:"risk_level"`
	EventSummary map[model.ProctorEventType]int `json:"event_summary"`
	Flags        []string                       `json:"flags"`
	TotalEvents  int                            `json:"total_events"`
}

var severities = map[model.ProctorEventType]model.Severity{
	model.ProctorTabHidden:     model.SeverityMedium,
	model.ProctorMultipleFaces: model.SeverityMedium,
}

// SeverityFor is a static lookup; unknown types are low.
func SeverityFor(eventType model.ProctorEventType) model.Severity {
	if s, ok := severities[eventType]; ok {
		return s
	}
	return model.SeverityLow
}

func LevelFor(score int) Level {
	switch {
	case score >= 70:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Assess recomputes the risk from the full event log.
func Assess(events []model.ProctorEvent) Assessment {
	summary := make(map[model.ProctorEventType]int)
	high, medium := 0, 0

	for _, e := range events {
		summary[e.EventType]++
		switch e.Severity {
		case model.SeverityHigh:
			high++
		case model.SeverityMedium:
			medium++
		}
	}

	score := high*highWeight + medium*mediumWeight
	if score > MaxRisk {
		score = MaxRisk
	}

	flags := []string{}
	if summary[model.ProctorTabHidden] > 5 {
		flags = append(flags, "Frequent tab switching")
	}
	if summary[model.ProctorFaceNotDetected] > 10 {
		flags = append(flags, "Face frequently not visible")
	}
	if summary[model.ProctorMultipleFaces] > 0 {
		flags = append(flags, "Multiple faces detected")
	}

	return Assessment{
		RiskScore:    score,
		RiskLevel:    LevelFor(score),
		EventSummary: summary,
		Flags:        flags,
		TotalEvents:  len(events),
	}
}

// ShouldFlag marks a session for manual review.
func (a Assessment) ShouldFlag() bool {
	return a.RiskScore >= FlagThreshold || len(a.Flags) >= 2
}
