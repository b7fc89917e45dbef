package analysis

import (
	"github.com/studykit/session-integrity/internal/config"
	"github.com/studykit/session-integrity/internal/domain"
)

// Analyzer defines the interface every fraud analyzer implements
//
// This follows the Strategy pattern, allowing each analysis technique to be:
//   - Independently developed and tested
//   - Easily added or removed from the analysis pipeline
//   - Tuned through the shared threshold configuration
//
// Analyzers are pure: given the same candidate and context they always
// produce the same flags, and they never touch storage or shared state.
// An analyzer whose required history is missing returns no flags —
// insufficient data is not evidence of fraud.
type Analyzer interface {
	// Analyze inspects the candidate against the read-only context and
	// returns zero or more risk flags.
	Analyze(c domain.SessionCandidate, actx *Context) []domain.RiskFlag

	// Name returns the human-readable name of this analyzer
	Name() string
}

// Context carries the per-call read-only snapshots shared by the analyzers.
//
// Every field is fetched fresh for the call being validated; nil or empty
// fields mean the corresponding read failed or returned nothing, and the
// analyzers that depend on them degrade to producing no flags.
type Context struct {
	Thresholds config.Thresholds

	// Daily is today's committed totals for the submitting user
	Daily domain.DailyAggregate

	// History is the 30-day study/test window, most recent day first
	History domain.HistoryWindow

	// Devices are the fingerprint sightings over the last 7 days
	Devices []domain.DeviceEvent

	// Intervals are the session start/end pairs over the last 7 days,
	// most recent first
	Intervals []domain.SessionInterval
}

// NewContext creates an analysis context with the given thresholds
func NewContext(t config.Thresholds) *Context {
	return &Context{Thresholds: t}
}
