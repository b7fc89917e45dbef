package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/studykit/session-integrity/internal/config"
	"github.com/studykit/session-integrity/internal/domain"
	"github.com/studykit/session-integrity/internal/domain/analysis"
	"github.com/studykit/session-integrity/internal/ports"
)

// historyDays and deviceDays are the windows the analyzers are specified
// against; they are not tunable because the detection thresholds are
// calibrated to them.
const (
	historyDays = 30
	deviceDays  = 7
	sessionDays = 7
)

// Shared validator instance, reused across all calls
var validate = validator.New()

// ValidationService is the engine's single entry point: it decides, for
// every submitted study/test session, whether the reported activity is
// genuine or manipulated, and what consequence follows.
//
// The decision path is side-effect-free; nothing is written until the
// verdict has been fully computed, and the writes happen atomically in the
// storage adapter. Concurrent calls share no mutable state, so one service
// instance serves many request workers.
type ValidationService struct {
	storage    ports.Storage
	engine     *analysis.Engine
	thresholds config.Thresholds
	cfg        config.Engine
	logger     *slog.Logger
	metrics    *Metrics
	now        func() time.Time
}

// Option configures the ValidationService
type Option func(*ValidationService)

// WithLogger sets a structured logger
func WithLogger(l *slog.Logger) Option {
	return func(s *ValidationService) { s.logger = l }
}

// WithMetrics sets the Prometheus instrumentation
func WithMetrics(m *Metrics) Option {
	return func(s *ValidationService) { s.metrics = m }
}

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(s *ValidationService) { s.now = now }
}

// WithEngine overrides the standard analyzer set
func WithEngine(e *analysis.Engine) Option {
	return func(s *ValidationService) { s.engine = e }
}

// NewValidationService wires the engine with its storage collaborator and
// immutable configuration.
func NewValidationService(storage ports.Storage, thresholds config.Thresholds, cfg config.Engine, opts ...Option) *ValidationService {
	s := &ValidationService{
		storage:    storage,
		engine:     analysis.NewEngine(),
		thresholds: thresholds,
		cfg:        cfg,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateSession scores one candidate session and records the verdict.
//
// Error semantics:
//   - a malformed candidate returns (nil, *domain.InputError) before any
//     analysis or I/O
//   - failed historical reads degrade to "insufficient data" with a logged
//     warning; partial evidence is still actionable (fail open)
//   - a failed persistence write returns the error ALONGSIDE the computed
//     verdict, so the caller can still apply softer synchronous enforcement
func (s *ValidationService) ValidateSession(ctx context.Context, candidate domain.SessionCandidate) (*domain.FraudVerdict, error) {
	started := s.now()

	if err := validate.Struct(candidate); err != nil {
		if _, ok := err.(validator.ValidationErrors); ok {
			return nil, &domain.InputError{Reason: "candidate failed structural validation", Err: err}
		}
		return nil, fmt.Errorf("candidate validation: %w", err)
	}

	actx := s.fetchContext(ctx, candidate.UserID)
	flags := s.engine.Analyze(candidate, actx)
	assessment := analysis.Aggregate(flags)

	verdict := s.buildVerdict(candidate, flags, assessment)

	var restriction *domain.Restriction
	if verdict.RiskLevel == domain.RiskCritical {
		restriction = &domain.Restriction{
			ID:        uuid.New(),
			UserID:    candidate.UserID,
			Type:      domain.RestrictionTypeStudyLimit,
			Reason:    fmt.Sprintf("fraud detected: %s", verdict.FlagMessages()),
			CreatedAt: verdict.EvaluatedAt,
			ExpiresAt: verdict.EvaluatedAt.Add(s.cfg.RestrictionDuration),
		}
	}

	if verdict.IsFraud {
		s.logger.Warn("fraudulent session detected",
			slog.Int64("user_id", candidate.UserID),
			slog.String("risk_level", string(verdict.RiskLevel)),
			slog.Int("flags", len(verdict.Flags)),
			slog.Float64("confidence", verdict.Confidence),
		)
	} else {
		s.logger.Info("session validated",
			slog.Int64("user_id", candidate.UserID),
			slog.Int("flags", len(verdict.Flags)),
		)
	}

	s.metrics.observeVerdict(verdict, s.now().Sub(started))

	// The verdict is final at this point; persistence failure is reported
	// but does not retract it.
	if err := s.storage.RecordVerdict(ctx, verdict, restriction); err != nil {
		s.logger.Error("failed to record verdict",
			slog.Int64("user_id", candidate.UserID),
			slog.String("error", err.Error()),
		)
		return verdict, fmt.Errorf("recording verdict: %w", err)
	}

	return verdict, nil
}

// IsUserRestricted reports whether the user currently has any active
// restriction. Served through the storage adapter, which may cache results
// briefly.
func (s *ValidationService) IsUserRestricted(ctx context.Context, userID int64) (bool, error) {
	return s.storage.IsUserRestricted(ctx, userID)
}

// GetFraudHistory returns the user's past verdicts for reviewer tooling
func (s *ValidationService) GetFraudHistory(ctx context.Context, userID int64, days int) ([]domain.FraudVerdict, error) {
	return s.storage.GetFraudHistory(ctx, userID, days)
}

// fetchContext gathers the per-call read-only snapshots. Every read shares
// one deadline; any read that fails or times out leaves its slice of the
// context empty, which the analyzers treat as insufficient data.
func (s *ValidationService) fetchContext(ctx context.Context, userID int64) *analysis.Context {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.HistoryTimeout)
	defer cancel()

	actx := analysis.NewContext(s.thresholds)
	today := s.now()

	daily, err := s.storage.GetDailyAggregate(ctx, userID, today)
	if err != nil {
		s.warnDegraded(userID, "daily aggregate", err)
	} else {
		actx.Daily = daily
	}

	history, err := s.storage.GetHistory(ctx, userID, historyDays)
	if err != nil {
		s.warnDegraded(userID, "history window", err)
	} else {
		actx.History = history
	}

	devices, err := s.storage.GetDeviceHistory(ctx, userID, deviceDays)
	if err != nil {
		s.warnDegraded(userID, "device history", err)
	} else {
		actx.Devices = devices
	}

	intervals, err := s.storage.GetSessionIntervals(ctx, userID, sessionDays)
	if err != nil {
		s.warnDegraded(userID, "session intervals", err)
	} else {
		actx.Intervals = intervals
	}

	return actx
}

func (s *ValidationService) warnDegraded(userID int64, what string, err error) {
	s.metrics.observeDegradedRead()
	s.logger.Warn("historical read degraded, failing open",
		slog.Int64("user_id", userID),
		slog.String("read", what),
		slog.String("error", err.Error()),
	)
}

// buildVerdict assembles the immutable verdict. ActionsTaken is derived
// deterministically from the assessment: the audit row is always written,
// the suspicious marker accompanies any fraud verdict, and a restriction
// accompanies critical ones.
func (s *ValidationService) buildVerdict(c domain.SessionCandidate, flags []domain.RiskFlag, a analysis.Assessment) *domain.FraudVerdict {
	actions := []domain.ActionCode{domain.ActionAuditLogged}
	if a.IsFraud {
		actions = append(actions, domain.ActionMarkedSuspicious)
	}
	if a.RiskLevel == domain.RiskCritical {
		actions = append(actions, domain.ActionUserRestricted)
	}

	return &domain.FraudVerdict{
		ID:           uuid.New(),
		UserID:       c.UserID,
		IsFraud:      a.IsFraud,
		RiskLevel:    a.RiskLevel,
		Flags:        flags,
		Confidence:   a.Confidence,
		ActionsTaken: actions,
		Metadata: map[string]interface{}{
			"duration_minutes":   c.DurationMinutes,
			"questions_answered": c.QuestionsAnswered,
			"correct_answers":    c.CorrectAnswers,
			"device_fingerprint": c.DeviceFingerprint,
		},
		EvaluatedAt: s.now(),
	}
}
