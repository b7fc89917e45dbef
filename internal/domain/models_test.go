package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionCandidate_Accuracy(t *testing.T) {
	tests := []struct {
		name      string
		questions int
		correct   int
		expected  float64
	}{
		{"No questions - zero accuracy", 0, 0, 0},
		{"Perfect score", 20, 20, 100},
		{"Partial score", 20, 15, 75},
		{"All wrong", 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := SessionCandidate{QuestionsAnswered: tt.questions, CorrectAnswers: tt.correct}
			assert.InDelta(t, tt.expected, c.Accuracy(), 0.001)
		})
	}
}

func TestRestriction_Active(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		active    bool
	}{
		{"Expired in the past", now.Add(-time.Hour), false},
		{"One minute before expiry", now.Add(time.Minute), true},
		{"Exactly at expiry", now, false},
		{"Far future", now.Add(24 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Restriction{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.active, r.Active(now))
		})
	}
}

func TestRiskLevel_AtLeast(t *testing.T) {
	assert.True(t, RiskCritical.AtLeast(RiskHigh))
	assert.True(t, RiskHigh.AtLeast(RiskHigh))
	assert.True(t, RiskMedium.AtLeast(RiskLow))
	assert.False(t, RiskLow.AtLeast(RiskMedium))
	assert.False(t, RiskHigh.AtLeast(RiskCritical))
}

func TestFraudVerdict_FlagHelpers(t *testing.T) {
	v := &FraudVerdict{
		Flags: []RiskFlag{
			{Code: FlagSessionTooLong, Message: "too long", Severity: SeverityMedium},
			{Code: FlagAccuracyTooHigh, Message: "too accurate", Severity: SeverityMedium},
		},
	}

	assert.True(t, v.HasFlag(FlagSessionTooLong))
	assert.False(t, v.HasFlag(FlagStudySpike))
	assert.Equal(t, "too long, too accurate", v.FlagMessages())
}
