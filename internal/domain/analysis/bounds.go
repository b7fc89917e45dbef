package analysis

import (
	"fmt"

	"github.com/studykit/session-integrity/internal/domain"
)

// BoundsAnalyzer performs stateless checks of the candidate against fixed
// and derived thresholds: duration bounds, daily caps, answer rate, and
// accuracy bounds.
type BoundsAnalyzer struct{}

// NewBoundsAnalyzer creates a new basic bound validator
func NewBoundsAnalyzer() *BoundsAnalyzer {
	return &BoundsAnalyzer{}
}

// Name returns the analyzer name
func (a *BoundsAnalyzer) Name() string {
	return "Basic Bounds"
}

// Analyze checks the candidate against the configured limits.
// Pure given the candidate and today's aggregate; no history required.
func (a *BoundsAnalyzer) Analyze(c domain.SessionCandidate, actx *Context) []domain.RiskFlag {
	t := actx.Thresholds
	flags := make([]domain.RiskFlag, 0)

	if c.DurationMinutes > t.MaxSessionMinutes {
		flags = append(flags, domain.RiskFlag{
			Code:     domain.FlagSessionTooLong,
			Message:  fmt.Sprintf("session duration too long: %d minutes", c.DurationMinutes),
			Severity: domain.SeverityMedium,
		})
	}

	if c.DurationMinutes < t.MinSessionMinutes {
		flags = append(flags, domain.RiskFlag{
			Code:     domain.FlagSessionTooShort,
			Message:  fmt.Sprintf("session duration too short: %d minutes", c.DurationMinutes),
			Severity: domain.SeverityLow,
		})
	}

	// Daily cap is checked against the projected total, counting the
	// candidate itself on top of what is already committed today.
	if actx.Daily.TotalMinutesToday+c.DurationMinutes > t.MaxDailyMinutes {
		flags = append(flags, domain.RiskFlag{
			Code: domain.FlagDailyLimitExceeded,
			Message: fmt.Sprintf("daily study time limit exceeded: %d minutes committed + %d candidate",
				actx.Daily.TotalMinutesToday, c.DurationMinutes),
			Severity: domain.SeverityMedium,
		})
	}

	if actx.Daily.SessionCountToday >= t.MaxSessionsPerDay {
		flags = append(flags, domain.RiskFlag{
			Code:     domain.FlagTooManySessions,
			Message:  fmt.Sprintf("too many sessions today: %d", actx.Daily.SessionCountToday),
			Severity: domain.SeverityMedium,
		})
	}

	if c.DurationMinutes > 0 && c.QuestionsAnswered > 0 {
		rate := float64(c.QuestionsAnswered) / float64(c.DurationMinutes)
		if rate > t.MaxQuestionsPerMinute {
			flags = append(flags, domain.RiskFlag{
				Code:     domain.FlagAnswerRateTooHigh,
				Message:  fmt.Sprintf("answering speed too high: %.1f questions/minute", rate),
				Severity: domain.SeverityHigh,
			})
		}
	}

	// Accuracy bounds only apply when questions were actually answered
	if c.QuestionsAnswered > 0 {
		accuracy := c.Accuracy()
		if accuracy > t.MaxAccuracyPercent {
			flags = append(flags, domain.RiskFlag{
				Code:     domain.FlagAccuracyTooHigh,
				Message:  fmt.Sprintf("suspiciously high accuracy: %.1f%%", accuracy),
				Severity: domain.SeverityMedium,
			})
		} else if accuracy < t.MinAccuracyPercent {
			flags = append(flags, domain.RiskFlag{
				Code:     domain.FlagAccuracyTooLow,
				Message:  fmt.Sprintf("suspiciously low accuracy: %.1f%%", accuracy),
				Severity: domain.SeverityLow,
			})
		}
	}

	return flags
}
