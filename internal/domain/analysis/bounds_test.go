package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studykit/session-integrity/internal/config"
	"github.com/studykit/session-integrity/internal/domain"
)

func TestBoundsAnalyzer_Analyze(t *testing.T) {
	analyzer := NewBoundsAnalyzer()

	tests := []struct {
		name          string
		candidate     domain.SessionCandidate
		daily         domain.DailyAggregate
		expectedCodes []domain.FlagCode
	}{
		{
			name:          "Ordinary session - no flags",
			candidate:     domain.SessionCandidate{DurationMinutes: 60, QuestionsAnswered: 20, CorrectAnswers: 15},
			expectedCodes: nil,
		},
		{
			name:          "Session too long",
			candidate:     domain.SessionCandidate{DurationMinutes: 181, QuestionsAnswered: 20, CorrectAnswers: 15},
			expectedCodes: []domain.FlagCode{domain.FlagSessionTooLong},
		},
		{
			name:          "Session too short",
			candidate:     domain.SessionCandidate{DurationMinutes: 4, QuestionsAnswered: 5, CorrectAnswers: 3},
			expectedCodes: []domain.FlagCode{domain.FlagSessionTooShort},
		},
		{
			name:          "Daily limit exceeded by projection",
			candidate:     domain.SessionCandidate{DurationMinutes: 100, QuestionsAnswered: 20, CorrectAnswers: 15},
			daily:         domain.DailyAggregate{TotalMinutesToday: 400, SessionCountToday: 5},
			expectedCodes: []domain.FlagCode{domain.FlagDailyLimitExceeded},
		},
		{
			name:          "Too many sessions today at the cap",
			candidate:     domain.SessionCandidate{DurationMinutes: 30, QuestionsAnswered: 10, CorrectAnswers: 7},
			daily:         domain.DailyAggregate{TotalMinutesToday: 100, SessionCountToday: 20},
			expectedCodes: []domain.FlagCode{domain.FlagTooManySessions},
		},
		{
			name:          "Answering speed too high",
			candidate:     domain.SessionCandidate{DurationMinutes: 10, QuestionsAnswered: 200, CorrectAnswers: 120},
			expectedCodes: []domain.FlagCode{domain.FlagAnswerRateTooHigh},
		},
		{
			name:          "Suspiciously high accuracy",
			candidate:     domain.SessionCandidate{DurationMinutes: 60, QuestionsAnswered: 100, CorrectAnswers: 96},
			expectedCodes: []domain.FlagCode{domain.FlagAccuracyTooHigh},
		},
		{
			name:          "Suspiciously low accuracy",
			candidate:     domain.SessionCandidate{DurationMinutes: 60, QuestionsAnswered: 100, CorrectAnswers: 5},
			expectedCodes: []domain.FlagCode{domain.FlagAccuracyTooLow},
		},
		{
			name:          "Zero questions - no accuracy or rate flags",
			candidate:     domain.SessionCandidate{DurationMinutes: 60, QuestionsAnswered: 0, CorrectAnswers: 0},
			expectedCodes: nil,
		},
		{
			name:          "Zero duration short flag only, no rate division",
			candidate:     domain.SessionCandidate{DurationMinutes: 0, QuestionsAnswered: 50, CorrectAnswers: 30},
			expectedCodes: []domain.FlagCode{domain.FlagSessionTooShort},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actx := NewContext(config.DefaultThresholds())
			actx.Daily = tt.daily

			flags := analyzer.Analyze(tt.candidate, actx)

			codes := make([]domain.FlagCode, 0, len(flags))
			for _, f := range flags {
				codes = append(codes, f.Code)
			}
			assert.ElementsMatch(t, tt.expectedCodes, codes)
		})
	}
}

func TestBoundsAnalyzer_AccuracyFlagsNeverOnZeroQuestions(t *testing.T) {
	analyzer := NewBoundsAnalyzer()
	actx := NewContext(config.DefaultThresholds())

	for duration := 0; duration <= 300; duration += 50 {
		c := domain.SessionCandidate{DurationMinutes: duration}
		for _, f := range analyzer.Analyze(c, actx) {
			assert.NotEqual(t, domain.FlagAccuracyTooHigh, f.Code)
			assert.NotEqual(t, domain.FlagAccuracyTooLow, f.Code)
			assert.NotEqual(t, domain.FlagAnswerRateTooHigh, f.Code)
		}
	}
}
