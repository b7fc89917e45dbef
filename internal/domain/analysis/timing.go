package analysis

import (
	"fmt"

	"github.com/studykit/session-integrity/internal/domain"
)

// TimingAnalyzer detects abnormal time-of-day concentration and
// too-frequent back-to-back sessions.
type TimingAnalyzer struct{}

// NewTimingAnalyzer creates a new temporal pattern analyzer
func NewTimingAnalyzer() *TimingAnalyzer {
	return &TimingAnalyzer{}
}

// Name returns the analyzer name
func (a *TimingAnalyzer) Name() string {
	return "Temporal Patterns"
}

// Analyze inspects the 7-day session intervals. Requires at least 3
// sessions; with fewer, it returns no flags.
func (a *TimingAnalyzer) Analyze(_ domain.SessionCandidate, actx *Context) []domain.RiskFlag {
	sessions := actx.Intervals
	if len(sessions) < 3 {
		return nil
	}

	t := actx.Thresholds
	flags := make([]domain.RiskFlag, 0)

	// Night window wraps midnight: [start, 24) plus [0, end)
	night := 0
	for _, s := range sessions {
		hour := s.Start.Hour()
		if hour >= t.NightWindowStartHour || hour < t.NightWindowEndHour {
			night++
		}
	}
	if float64(night) > float64(len(sessions))*t.NightStudyRatio {
		flags = append(flags, domain.RiskFlag{
			Code:     domain.FlagExcessiveNightStudy,
			Message:  fmt.Sprintf("excessive night-time study: %d of %d sessions start between 23:00 and 06:00", night, len(sessions)),
			Severity: domain.SeverityLow,
		})
	}

	// Back-to-back sessions: intervals are ordered most recent first, so
	// sessions[i] ended before sessions[i-1] started.
	if len(sessions) > t.FrequentSessionCount {
		for i := 1; i < len(sessions); i++ {
			gap := sessions[i-1].Start.Sub(sessions[i].End)
			if gap < t.MinSessionGap {
				flags = append(flags, domain.RiskFlag{
					Code:     domain.FlagSessionsTooFrequent,
					Message:  fmt.Sprintf("sessions too close together: %.0f seconds apart", gap.Seconds()),
					Severity: domain.SeverityMedium,
				})
				break
			}
		}
	}

	return flags
}
