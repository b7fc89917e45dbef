package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studykit/session-integrity/internal/config"
	"github.com/studykit/session-integrity/internal/domain"
)

// sessionsAtHours builds one-hour intervals starting at the given local
// hours, one per day going back in time, most recent first.
func sessionsAtHours(hours ...int) []domain.SessionInterval {
	base := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	intervals := make([]domain.SessionInterval, 0, len(hours))
	for i, h := range hours {
		start := base.AddDate(0, 0, -i).Add(time.Duration(h) * time.Hour)
		intervals = append(intervals, domain.SessionInterval{Start: start, End: start.Add(time.Hour)})
	}
	return intervals
}

func TestTimingAnalyzer_InsufficientSessions(t *testing.T) {
	analyzer := NewTimingAnalyzer()
	actx := NewContext(config.DefaultThresholds())

	actx.Intervals = sessionsAtHours(2, 3)
	assert.Empty(t, analyzer.Analyze(domain.SessionCandidate{}, actx))
}

func TestTimingAnalyzer_ExcessiveNightStudy(t *testing.T) {
	analyzer := NewTimingAnalyzer()
	actx := NewContext(config.DefaultThresholds())

	// 4 of 5 sessions start in the night window (80% > 70%)
	actx.Intervals = sessionsAtHours(1, 2, 3, 23, 14)

	flags := analyzer.Analyze(domain.SessionCandidate{}, actx)
	assert.Len(t, flags, 1)
	assert.Equal(t, domain.FlagExcessiveNightStudy, flags[0].Code)
	assert.Equal(t, domain.SeverityLow, flags[0].Severity)
}

func TestTimingAnalyzer_DaytimeStudyIsQuiet(t *testing.T) {
	analyzer := NewTimingAnalyzer()
	actx := NewContext(config.DefaultThresholds())

	actx.Intervals = sessionsAtHours(9, 14, 17, 20, 22)
	assert.Empty(t, analyzer.Analyze(domain.SessionCandidate{}, actx))
}

func TestTimingAnalyzer_SessionsTooFrequent(t *testing.T) {
	analyzer := NewTimingAnalyzer()
	actx := NewContext(config.DefaultThresholds())

	// 11 daytime sessions in one day, each starting 3 minutes after the
	// previous one ended
	base := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	intervals := make([]domain.SessionInterval, 0, 11)
	for i := 10; i >= 0; i-- {
		start := base.Add(time.Duration(i) * 33 * time.Minute)
		intervals = append(intervals, domain.SessionInterval{Start: start, End: start.Add(30 * time.Minute)})
	}
	actx.Intervals = intervals

	flags := analyzer.Analyze(domain.SessionCandidate{}, actx)
	assert.Len(t, flags, 1)
	assert.Equal(t, domain.FlagSessionsTooFrequent, flags[0].Code)
	assert.Equal(t, domain.SeverityMedium, flags[0].Severity)
}

func TestTimingAnalyzer_FewSessionsSkipGapCheck(t *testing.T) {
	analyzer := NewTimingAnalyzer()
	actx := NewContext(config.DefaultThresholds())

	// Back-to-back but only 4 sessions: below the frequency minimum
	base := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	intervals := make([]domain.SessionInterval, 0, 4)
	for i := 3; i >= 0; i-- {
		start := base.Add(time.Duration(i) * 31 * time.Minute)
		intervals = append(intervals, domain.SessionInterval{Start: start, End: start.Add(30 * time.Minute)})
	}
	actx.Intervals = intervals

	assert.Empty(t, analyzer.Analyze(domain.SessionCandidate{}, actx))
}
