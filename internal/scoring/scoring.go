// Package scoring turns per-turn scores into the final hiring assessment.
package scoring

import (
	"fmt"
	"math"
	"strings"
)

type Category string

const (
	BestFit          Category = "Best Fit"
	GoodFit          Category = "Good Fit"
	Average          Category = "Average"
	NeedsImprovement Category = "Needs Improvement"
	NotRecommended   Category = "Not Recommended"
)

const (
	highRiskThreshold   = 60
	mediumRiskThreshold = 40
)

// Assessment is stored verbatim under the session's final_assessment metadata key.
type Assessment struct {
	RawScore            float64  `json:"raw_score"`
	AdjustedScore       float64  `json:"adjusted_score"`
	ScoreCategory       Category `json:"score_category"`
	CompletionRate      float64  `json:"completion_rate"`
	SuccessfulQuestions int      `json:"successful_questions"`
	FailedAttempts      int      `json:"failed_attempts"`
	ProctorRisk         int      `json:"proctor_risk"`
	Recommendation      string   `json:"recommendation"`
	Summary             string   `json:"assessment_summary"`
}

// CategoryFor resolves exact thresholds to the higher tier.
func CategoryFor(score float64) Category {
	switch {
	case score >= 9.0:
		return BestFit
	case score >= 7.5:
		return GoodFit
	case score >= 6.0:
		return Average
	case score >= 4.0:
		return NeedsImprovement
	default:
		return NotRecommended
	}
}

// Finalize scales the mean score by completion rate and integrity risk.
// The category is taken from the adjusted score, not the raw mean.
func Finalize(meanScore float64, successful, failed, risk int) Assessment {
	completion := 1.0
	if total := successful + failed; total > 0 {
		completion = float64(successful) / float64(total)
	}

	adjusted := meanScore * completion
	switch {
	case risk >= highRiskThreshold:
		adjusted *= 0.9
	case risk >= mediumRiskThreshold:
		adjusted *= 0.95
	}

	category := CategoryFor(adjusted)

	return Assessment{
		RawScore:            round(meanScore, 2),
		AdjustedScore:       round(adjusted, 2),
		ScoreCategory:       category,
		CompletionRate:      round(completion*100, 1),
		SuccessfulQuestions: successful,
		FailedAttempts:      failed,
		ProctorRisk:         risk,
		Recommendation:      recommendation(category, risk),
		Summary:             summary(category, meanScore, adjusted, completion, risk),
	}
}

func recommendation(category Category, risk int) string {
	switch category {
	case BestFit:
		if risk >= highRiskThreshold {
			return "Strong candidate but verify proctoring concerns before proceeding"
		}
		return "Highly recommended for immediate hiring consideration"
	case GoodFit:
		if risk >= highRiskThreshold {
			return "Good potential but address proctoring concerns"
		}
		return "Recommended for next round of interviews"
	case Average:
		return "Consider for positions requiring moderate technical expertise"
	case NeedsImprovement:
		return "May require additional training or mentorship"
	default:
		return "Not recommended for the current position"
	}
}

func summary(category Category, raw, adjusted, completion float64, risk int) string {
	parts := []string{
		fmt.Sprintf("Candidate achieved a %s rating", strings.ToUpper(string(category))),
		fmt.Sprintf("with an average score of %.1f/10", raw),
	}

	if math.Abs(raw-adjusted) > 0.3 {
		parts = append(parts, fmt.Sprintf("(adjusted to %.1f/10 based on completion rate and integrity)", adjusted))
	}

	parts = append(parts, fmt.Sprintf("across %d%% successfully completed questions.", int(completion*100)))

	switch {
	case risk >= highRiskThreshold:
		parts = append(parts, "HIGH integrity risk detected.")
	case risk >= mediumRiskThreshold:
		parts = append(parts, "MODERATE integrity concerns noted.")
	}

	return strings.Join(parts, " ")
}

var breakdowns = map[Category]string{
	BestFit:          "Exceptional performance demonstrating deep technical knowledge, strong problem-solving skills, and excellent communication. Candidate shows mastery of concepts and practical application.",
	GoodFit:          "Strong performance with solid technical understanding and good problem-solving abilities. Minor gaps may exist but candidate shows promise and learning capability.",
	Average:          "Adequate performance with basic technical competency. May require additional support or training. Shows potential but needs development in key areas.",
	NeedsImprovement: "Below expectations with significant gaps in technical knowledge or communication. Would require substantial training and mentorship to meet role requirements.",
	NotRecommended:   "Performance does not meet minimum requirements for the position. Fundamental gaps in technical knowledge, problem-solving, or communication make candidate unsuitable for this role.",
}

// Breakdown explains a category for reviewers.
func Breakdown(category Category) string {
	if text, ok := breakdowns[category]; ok {
		return text
	}
	return "No assessment available"
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
