package analysis

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studykit/session-integrity/internal/domain"
)

func flagOf(sev domain.Severity) domain.RiskFlag {
	return domain.RiskFlag{Code: domain.FlagSessionTooLong, Message: "test", Severity: sev}
}

func TestAggregate_Ladder(t *testing.T) {
	tests := []struct {
		name       string
		severities []domain.Severity
		level      domain.RiskLevel
		isFraud    bool
		confidence float64
	}{
		{
			name:       "No flags - low, not fraud",
			severities: nil,
			level:      domain.RiskLow, isFraud: false, confidence: 0.2,
		},
		{
			name:       "Single critical flag",
			severities: []domain.Severity{domain.SeverityCritical},
			level:      domain.RiskCritical, isFraud: true, confidence: 0.9,
		},
		{
			name:       "Two high flags escalate to critical",
			severities: []domain.Severity{domain.SeverityHigh, domain.SeverityHigh},
			level:      domain.RiskCritical, isFraud: true, confidence: 0.9,
		},
		{
			name:       "Single high flag",
			severities: []domain.Severity{domain.SeverityHigh},
			level:      domain.RiskHigh, isFraud: true, confidence: 0.7,
		},
		{
			name:       "Three medium flags escalate to high",
			severities: []domain.Severity{domain.SeverityMedium, domain.SeverityMedium, domain.SeverityMedium},
			level:      domain.RiskHigh, isFraud: true, confidence: 0.7,
		},
		{
			name:       "Two medium flags",
			severities: []domain.Severity{domain.SeverityMedium, domain.SeverityMedium},
			level:      domain.RiskMedium, isFraud: true, confidence: 0.5,
		},
		{
			name:       "One medium flag stays low",
			severities: []domain.Severity{domain.SeverityMedium},
			level:      domain.RiskLow, isFraud: false, confidence: 0.2,
		},
		{
			name:       "Low flags never escalate",
			severities: []domain.Severity{domain.SeverityLow, domain.SeverityLow, domain.SeverityLow, domain.SeverityLow},
			level:      domain.RiskLow, isFraud: false, confidence: 0.2,
		},
		{
			name:       "Critical beats everything else present",
			severities: []domain.Severity{domain.SeverityLow, domain.SeverityMedium, domain.SeverityCritical},
			level:      domain.RiskCritical, isFraud: true, confidence: 0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := make([]domain.RiskFlag, 0, len(tt.severities))
			for _, s := range tt.severities {
				flags = append(flags, flagOf(s))
			}

			a := Aggregate(flags)
			assert.Equal(t, tt.level, a.RiskLevel)
			assert.Equal(t, tt.isFraud, a.IsFraud)
			assert.InDelta(t, tt.confidence, a.Confidence, 0.001)
		})
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	flags := []domain.RiskFlag{
		flagOf(domain.SeverityLow),
		flagOf(domain.SeverityMedium),
		flagOf(domain.SeverityMedium),
		flagOf(domain.SeverityHigh),
		flagOf(domain.SeverityCritical),
	}

	want := Aggregate(flags)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		shuffled := make([]domain.RiskFlag, len(flags))
		copy(shuffled, flags)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		assert.Equal(t, want, Aggregate(shuffled))
	}
}

func TestAggregate_MonotonicUnderAddedFlags(t *testing.T) {
	base := [][]domain.Severity{
		{},
		{domain.SeverityLow},
		{domain.SeverityMedium},
		{domain.SeverityMedium, domain.SeverityMedium},
		{domain.SeverityHigh},
		{domain.SeverityHigh, domain.SeverityMedium, domain.SeverityMedium},
		{domain.SeverityCritical},
	}
	additions := []domain.Severity{
		domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical,
	}

	for _, severities := range base {
		flags := make([]domain.RiskFlag, 0, len(severities))
		for _, s := range severities {
			flags = append(flags, flagOf(s))
		}
		before := Aggregate(flags)

		for _, extra := range additions {
			after := Aggregate(append(append([]domain.RiskFlag{}, flags...), flagOf(extra)))
			assert.True(t, after.RiskLevel.AtLeast(before.RiskLevel),
				"adding %s to %v lowered risk from %s to %s",
				extra, severities, before.RiskLevel, after.RiskLevel)
		}
	}
}
