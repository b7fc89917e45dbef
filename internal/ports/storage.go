package ports

import (
	"context"
	"time"

	"github.com/studykit/session-integrity/internal/domain"
)

// HistoryReader defines the read-only queries the engine issues against the
// persistence collaborator. All results are bounded windows of a single
// user's prior activity; the engine never mutates what it reads.
type HistoryReader interface {
	// GetDailyAggregate returns the user's committed totals for the given
	// calendar day.
	GetDailyAggregate(ctx context.Context, userID int64, day time.Time) (domain.DailyAggregate, error)

	// GetHistory returns the user's daily study/test aggregates for the
	// last N days, most recent day first.
	GetHistory(ctx context.Context, userID int64, days int) (domain.HistoryWindow, error)

	// GetDeviceHistory returns the user's device fingerprint sightings for
	// the last N days, most recent first.
	GetDeviceHistory(ctx context.Context, userID int64, days int) ([]domain.DeviceEvent, error)

	// GetSessionIntervals returns the user's session start/end pairs for
	// the last N days, most recent first.
	GetSessionIntervals(ctx context.Context, userID int64, days int) ([]domain.SessionInterval, error)
}

// DecisionStore defines the write side owned by the decision recorder, plus
// the restriction lookup the surrounding product consumes.
type DecisionStore interface {
	// AppendAuditLog persists one verdict as an audit record
	AppendAuditLog(ctx context.Context, verdict *domain.FraudVerdict) error

	// CreateRestriction persists a new restriction row
	CreateRestriction(ctx context.Context, restriction *domain.Restriction) error

	// RecordVerdict persists the audit record, the suspicious-session
	// marker (when the verdict is fraudulent), and the restriction (when
	// non-nil) in a single transaction: either all writes land or none do,
	// so the audit trail is never out of sync with an applied restriction.
	RecordVerdict(ctx context.Context, verdict *domain.FraudVerdict, restriction *domain.Restriction) error

	// IsUserRestricted reports whether any restriction with a future
	// expiry exists for the user.
	IsUserRestricted(ctx context.Context, userID int64) (bool, error)

	// GetFraudHistory returns the user's past verdicts from the audit log,
	// most recent first.
	GetFraudHistory(ctx context.Context, userID int64, days int) ([]domain.FraudVerdict, error)
}

// Storage is the full persistence contract implemented by adapters
type Storage interface {
	HistoryReader
	DecisionStore

	// Lifecycle
	Close() error
}
