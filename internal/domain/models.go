package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity classifies how strong a single fraud signal is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RiskLevel is the aggregated classification of a whole verdict
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// riskRank orders risk levels for monotonicity comparisons
var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// AtLeast reports whether r is the same level as other or stronger
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return riskRank[r] >= riskRank[other]
}

// FlagCode identifies the specific signal an analyzer raised.
//
// Codes are typed constants rather than free-form strings so the aggregator
// and enforcement logic compare enum values, never substrings.
type FlagCode string

const (
	// Basic bound checks
	FlagSessionTooLong     FlagCode = "SESSION_TOO_LONG"
	FlagSessionTooShort    FlagCode = "SESSION_TOO_SHORT"
	FlagDailyLimitExceeded FlagCode = "DAILY_LIMIT_EXCEEDED"
	FlagTooManySessions    FlagCode = "TOO_MANY_SESSIONS_TODAY"
	FlagAnswerRateTooHigh  FlagCode = "ANSWER_RATE_TOO_HIGH"
	FlagAccuracyTooHigh    FlagCode = "ACCURACY_TOO_HIGH"
	FlagAccuracyTooLow     FlagCode = "ACCURACY_TOO_LOW"

	// Historical pattern analysis
	FlagStudySpike             FlagCode = "STUDY_SPIKE"
	FlagPerfectConsistency     FlagCode = "PERFECT_CONSISTENCY"
	FlagConsistentHighAccuracy FlagCode = "CONSISTENT_HIGH_ACCURACY"

	// Device consistency
	FlagMultipleDevices      FlagCode = "MULTIPLE_DEVICES"
	FlagRapidDeviceSwitching FlagCode = "RAPID_DEVICE_SWITCHING"

	// Temporal patterns
	FlagExcessiveNightStudy FlagCode = "EXCESSIVE_NIGHT_STUDY"
	FlagSessionsTooFrequent FlagCode = "SESSIONS_TOO_FREQUENT"

	// Performance trends
	FlagSuddenAccuracyJump      FlagCode = "SUDDEN_ACCURACY_JUMP"
	FlagImplausiblePerfectScore FlagCode = "IMPLAUSIBLE_PERFECT_SCORE"
)

// RiskFlag is a single piece of fraud evidence produced by one analyzer.
// Flags are pure data: analyzers produce them, the aggregator consumes them.
type RiskFlag struct {
	Code     FlagCode `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ActionCode identifies an enforcement action recorded on a verdict
type ActionCode string

const (
	ActionAuditLogged      ActionCode = "AUDIT_LOGGED"
	ActionMarkedSuspicious ActionCode = "SESSION_MARKED_SUSPICIOUS"
	ActionUserRestricted   ActionCode = "USER_RESTRICTED"
)

// SessionCandidate is a not-yet-validated study session submitted for
// scoring. Owned by the caller; the engine never mutates it.
//
// Validation tags enforce the structural invariants (non-negative counts,
// correct answers bounded by questions answered) before any analysis runs.
type SessionCandidate struct {
	UserID            int64     `json:"user_id" validate:"required"`
	DurationMinutes   int       `json:"duration_minutes" validate:"gte=0"`
	QuestionsAnswered int       `json:"questions_answered" validate:"gte=0"`
	CorrectAnswers    int       `json:"correct_answers" validate:"gte=0,ltecsfield=QuestionsAnswered"`
	DeviceFingerprint string    `json:"device_fingerprint"`
	IPAddress         string    `json:"ip_address"`
	UserAgent         string    `json:"user_agent"`
	SubmittedAt       time.Time `json:"submitted_at"`
}

// Accuracy returns the candidate's accuracy percentage, 0 when no questions
// were answered.
func (c SessionCandidate) Accuracy() float64 {
	if c.QuestionsAnswered == 0 {
		return 0
	}
	return float64(c.CorrectAnswers) / float64(c.QuestionsAnswered) * 100
}

// DailyAggregate is today's committed study totals for the submitting user.
// Recomputed fresh on every validation call, never cached across calls, so
// it always reflects the most recent commits.
type DailyAggregate struct {
	TotalMinutesToday int `json:"total_minutes_today"`
	SessionCountToday int `json:"session_count_today"`
}

// DailyRecord is one day's study/test aggregate inside a history window
type DailyRecord struct {
	Date           time.Time `json:"date"`
	StudyMinutes   int       `json:"study_minutes"`
	TestsCount     int       `json:"tests_count"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
}

// HistoryWindow is a bounded, read-only snapshot of a user's prior daily
// aggregates, ordered most recent day first. Used only for comparison,
// never mutated.
type HistoryWindow struct {
	Days    int           `json:"days"`
	Records []DailyRecord `json:"records"`
}

// DeviceEvent is one sighting of a device fingerprint
type DeviceEvent struct {
	Fingerprint string    `json:"fingerprint"`
	SeenAt      time.Time `json:"seen_at"`
}

// SessionInterval is the start/end of one past session, ordered most
// recent first when returned from the store.
type SessionInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the interval length
func (i SessionInterval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// FraudVerdict is the complete output of one validation call.
//
// A verdict is immutable once constructed: create -> log -> (optionally)
// enforce -> discard. Re-evaluating a session produces a brand-new verdict.
// A verdict with IsFraud true always carries at least one RiskFlag.
type FraudVerdict struct {
	ID           uuid.UUID              `json:"id"`
	UserID       int64                  `json:"user_id"`
	IsFraud      bool                   `json:"is_fraud"`
	RiskLevel    RiskLevel              `json:"risk_level"`
	Flags        []RiskFlag             `json:"flags"`
	Confidence   float64                `json:"confidence"` // 0.0 to 1.0
	ActionsTaken []ActionCode           `json:"actions_taken"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	EvaluatedAt  time.Time              `json:"evaluated_at"`
}

// FlagMessages joins all flag messages; used as the restriction reason
func (v *FraudVerdict) FlagMessages() string {
	msgs := make([]string, 0, len(v.Flags))
	for _, f := range v.Flags {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, ", ")
}

// HasFlag reports whether the verdict carries a flag with the given code
func (v *FraudVerdict) HasFlag(code FlagCode) bool {
	for _, f := range v.Flags {
		if f.Code == code {
			return true
		}
	}
	return false
}

// RestrictionTypeStudyLimit is the only restriction type the engine creates
const RestrictionTypeStudyLimit = "study_limit"

// Restriction is a time-boxed enforcement record limiting a user's ability
// to submit further sessions.
//
// Lifecycle: NONE -> ACTIVE (created on a critical verdict) -> EXPIRED
// (implicit once now passes ExpiresAt; no transition row is ever written).
// Multiple restrictions may coexist; a user is restricted while any is
// active.
type Restriction struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the restriction is in force at the given instant
func (r Restriction) Active(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

// InputError marks a malformed candidate rejected before any analysis.
// It is surfaced to the caller and never logged as fraud.
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid session candidate: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid session candidate: %s", e.Reason)
}

func (e *InputError) Unwrap() error { return e.Err }
