package analysis

import (
	"fmt"

	"github.com/studykit/session-integrity/internal/domain"
)

// HistoryPatternAnalyzer compares the candidate's user against their rolling
// 30-day history to detect spikes, unnatural consistency, and sustained
// high accuracy.
type HistoryPatternAnalyzer struct{}

// NewHistoryPatternAnalyzer creates a new historical pattern analyzer
func NewHistoryPatternAnalyzer() *HistoryPatternAnalyzer {
	return &HistoryPatternAnalyzer{}
}

// Name returns the analyzer name
func (a *HistoryPatternAnalyzer) Name() string {
	return "Historical Patterns"
}

// Analyze inspects the 30-day window. Requires at least 3 days of history;
// with less, it returns no flags.
func (a *HistoryPatternAnalyzer) Analyze(_ domain.SessionCandidate, actx *Context) []domain.RiskFlag {
	records := actx.History.Records
	if len(records) < 3 {
		return nil
	}

	t := actx.Thresholds
	flags := make([]domain.RiskFlag, 0)

	var total int
	for _, r := range records {
		total += r.StudyMinutes
	}
	avgDaily := float64(total) / float64(len(records))

	// Records are ordered most recent first, so the first three are the
	// latest days.
	recentAvg := float64(records[0].StudyMinutes+records[1].StudyMinutes+records[2].StudyMinutes) / 3
	if recentAvg > avgDaily*t.SpikeMultiplier {
		flags = append(flags, domain.RiskFlag{
			Code: domain.FlagStudySpike,
			Message: fmt.Sprintf("sudden increase in study time: recent avg %.0f min/day vs %.0f min/day baseline",
				recentAvg, avgDaily),
			Severity: domain.SeverityHigh,
		})
	}

	// Real study time is never bit-identical day over day
	if identical, minutes := allIdenticalMinutes(records); identical && minutes > 0 {
		flags = append(flags, domain.RiskFlag{
			Code:     domain.FlagPerfectConsistency,
			Message:  fmt.Sprintf("perfectly consistent study times: %d minutes every day", minutes),
			Severity: domain.SeverityCritical,
		})
	}

	// Sustained high accuracy across days that actually had questions
	var accSum float64
	var accDays int
	for _, r := range records {
		if r.TotalQuestions > 0 {
			accSum += float64(r.CorrectAnswers) / float64(r.TotalQuestions) * 100
			accDays++
		}
	}
	if accDays >= t.HighAccuracyDays {
		mean := accSum / float64(accDays)
		if mean > t.MaxAccuracyPercent {
			flags = append(flags, domain.RiskFlag{
				Code: domain.FlagConsistentHighAccuracy,
				Message: fmt.Sprintf("consistently high accuracy: %.1f%% mean over %d days",
					mean, accDays),
				Severity: domain.SeverityHigh,
			})
		}
	}

	return flags
}

// allIdenticalMinutes reports whether every daily minute value is the same,
// returning that value when so.
func allIdenticalMinutes(records []domain.DailyRecord) (bool, int) {
	first := records[0].StudyMinutes
	for _, r := range records[1:] {
		if r.StudyMinutes != first {
			return false, 0
		}
	}
	return true, first
}
