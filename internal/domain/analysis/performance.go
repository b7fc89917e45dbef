package analysis

import (
	"fmt"

	"github.com/studykit/session-integrity/internal/domain"
)

// PerformanceAnalyzer detects sudden accuracy jumps relative to the user's
// historical baseline and implausible perfect scores.
type PerformanceAnalyzer struct{}

// NewPerformanceAnalyzer creates a new performance trend analyzer
func NewPerformanceAnalyzer() *PerformanceAnalyzer {
	return &PerformanceAnalyzer{}
}

// Name returns the analyzer name
func (a *PerformanceAnalyzer) Name() string {
	return "Performance Trends"
}

// Analyze compares the candidate's accuracy against the 30-day baseline.
// Requires at least 5 days with answered questions; with fewer, it returns
// no flags. Candidates with no answered questions produce no flags here.
func (a *PerformanceAnalyzer) Analyze(c domain.SessionCandidate, actx *Context) []domain.RiskFlag {
	t := actx.Thresholds

	var totalCorrect, totalQuestions, days int
	for _, r := range actx.History.Records {
		if r.TotalQuestions > 0 {
			totalCorrect += r.CorrectAnswers
			totalQuestions += r.TotalQuestions
			days++
		}
	}
	if days < t.MinPerformanceDays || c.QuestionsAnswered == 0 {
		return nil
	}

	historical := float64(totalCorrect) / float64(totalQuestions) * 100
	current := c.Accuracy()
	flags := make([]domain.RiskFlag, 0)

	if current > historical+t.AccuracyJumpPercent {
		flags = append(flags, domain.RiskFlag{
			Code: domain.FlagSuddenAccuracyJump,
			Message: fmt.Sprintf("sudden accuracy improvement: %.1f%% vs %.1f%% historical",
				current, historical),
			Severity: domain.SeverityHigh,
		})
	}

	if current == 100 && c.QuestionsAnswered > t.PerfectScoreMinQ {
		flags = append(flags, domain.RiskFlag{
			Code:     domain.FlagImplausiblePerfectScore,
			Message:  fmt.Sprintf("perfect accuracy across %d questions", c.QuestionsAnswered),
			Severity: domain.SeverityHigh,
		})
	}

	return flags
}
