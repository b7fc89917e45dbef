package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/studykit/session-integrity/internal/domain"
)

// PostgresStore implements ports.Storage for PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL storage instance
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	// In production, should be set based on workload
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InitSchema creates database tables if they don't exist
// In production, use proper migration tools
func (s *PostgresStore) InitSchema() error {
	schema := `
	-- ============================================================================
	-- STUDY_REPORTS TABLE (collaborator-owned, read-only for the engine)
	-- ============================================================================
	-- One row per user per day: the daily study/test aggregate the product's
	-- reporting flow commits. The engine only ever reads bounded windows of it.
	CREATE TABLE IF NOT EXISTS study_reports (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		report_date DATE NOT NULL,
		study_minutes INT NOT NULL DEFAULT 0,
		tests_count INT NOT NULL DEFAULT 0,
		correct_answers INT NOT NULL DEFAULT 0,
		total_questions INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT NOW(),
		UNIQUE(user_id, report_date)
	);

	-- Backs GetDailyAggregate and GetHistory: per-user windows by date
	CREATE INDEX IF NOT EXISTS idx_study_reports_user_date ON study_reports(user_id, report_date DESC);

	-- ============================================================================
	-- STUDY_SESSIONS TABLE (collaborator-owned, read-only for the engine)
	-- ============================================================================
	-- One row per captured session with its device fingerprint and interval.
	-- How sessions are captured is the collaborator's concern; the engine reads
	-- 7-day windows for device and temporal analysis.
	CREATE TABLE IF NOT EXISTS study_sessions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		device_fingerprint VARCHAR(128),
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		duration_minutes INT NOT NULL DEFAULT 0,
		session_date DATE NOT NULL
	);

	-- Backs GetDeviceHistory and GetSessionIntervals
	CREATE INDEX IF NOT EXISTS idx_study_sessions_user_start ON study_sessions(user_id, start_time DESC);

	-- ============================================================================
	-- FRAUD_DETECTION_LOGS TABLE (engine-owned)
	-- ============================================================================
	-- Append-only audit trail: EVERY verdict is written here, fraudulent or not,
	-- for later analysis and false-positive review.
	--
	-- Prototype simplification: flags, actions_taken and metadata are JSONB
	-- (detections are always read alongside their parent verdict, no joins
	-- needed). Production would extract a detections table indexed by flag code
	-- to answer "all STUDY_SPIKE flags this week" cheaply.
	CREATE TABLE IF NOT EXISTS fraud_detection_logs (
		id UUID PRIMARY KEY,
		user_id BIGINT NOT NULL,
		is_fraud BOOLEAN NOT NULL,
		risk_level VARCHAR(10) NOT NULL,
		flags JSONB,
		confidence DECIMAL(4,3) NOT NULL,
		actions_taken JSONB,
		metadata JSONB,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	-- Backs GetFraudHistory: per-user timeline, most recent first
	CREATE INDEX IF NOT EXISTS idx_fraud_logs_user_created ON fraud_detection_logs(user_id, created_at DESC);

	-- ============================================================================
	-- SUSPICIOUS_SESSIONS TABLE (engine-owned)
	-- ============================================================================
	-- Markers for fraudulent verdicts only, referencing the flags and level that
	-- condemned them. Kept separate from the audit log so reviewer tooling can
	-- work a small queue instead of scanning every verdict.
	CREATE TABLE IF NOT EXISTS suspicious_sessions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		verdict_id UUID NOT NULL REFERENCES fraud_detection_logs(id) ON DELETE CASCADE,
		flags JSONB,
		risk_level VARCHAR(10) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_suspicious_user ON suspicious_sessions(user_id, created_at DESC);

	-- ============================================================================
	-- USER_RESTRICTIONS TABLE (engine-owned)
	-- ============================================================================
	-- Time-boxed enforcement rows. Expiry is implicit: a restriction is active
	-- iff expires_at > NOW(); no transition row is ever written. Multiple rows
	-- per user may coexist.
	CREATE TABLE IF NOT EXISTS user_restrictions (
		id UUID PRIMARY KEY,
		user_id BIGINT NOT NULL,
		restriction_type VARCHAR(30) NOT NULL,
		reason TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMP NOT NULL
	);

	-- Backs IsUserRestricted: active rows per user
	CREATE INDEX IF NOT EXISTS idx_restrictions_user_expiry ON user_restrictions(user_id, expires_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// GetDailyAggregate returns the user's committed totals for the given day
func (s *PostgresStore) GetDailyAggregate(ctx context.Context, userID int64, day time.Time) (domain.DailyAggregate, error) {
	query := `
		SELECT
			COALESCE((SELECT SUM(study_minutes) FROM study_reports
			          WHERE user_id = $1 AND report_date = $2::date), 0) AS total_minutes,
			(SELECT COUNT(*) FROM study_sessions
			 WHERE user_id = $1 AND session_date = $2::date) AS session_count
	`
	var agg domain.DailyAggregate
	err := s.db.QueryRowContext(ctx, query, userID, day).Scan(
		&agg.TotalMinutesToday, &agg.SessionCountToday,
	)
	if err != nil {
		return domain.DailyAggregate{}, err
	}
	return agg, nil
}

// GetHistory returns the user's daily aggregates for the last N days,
// most recent day first.
func (s *PostgresStore) GetHistory(ctx context.Context, userID int64, days int) (domain.HistoryWindow, error) {
	query := `
		SELECT report_date, study_minutes, tests_count, correct_answers, total_questions
		FROM study_reports
		WHERE user_id = $1 AND report_date >= CURRENT_DATE - $2 * INTERVAL '1 day'
		ORDER BY report_date DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, days)
	if err != nil {
		return domain.HistoryWindow{}, err
	}
	defer rows.Close()

	window := domain.HistoryWindow{Days: days, Records: make([]domain.DailyRecord, 0)}
	for rows.Next() {
		var r domain.DailyRecord
		if err := rows.Scan(&r.Date, &r.StudyMinutes, &r.TestsCount, &r.CorrectAnswers, &r.TotalQuestions); err != nil {
			return domain.HistoryWindow{}, err
		}
		window.Records = append(window.Records, r)
	}
	return window, rows.Err()
}

// GetDeviceHistory returns fingerprint sightings for the last N days,
// most recent first.
func (s *PostgresStore) GetDeviceHistory(ctx context.Context, userID int64, days int) ([]domain.DeviceEvent, error) {
	query := `
		SELECT device_fingerprint, start_time
		FROM study_sessions
		WHERE user_id = $1 AND start_time >= NOW() - $2 * INTERVAL '1 day'
		      AND device_fingerprint IS NOT NULL
		ORDER BY start_time DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.DeviceEvent, 0)
	for rows.Next() {
		var ev domain.DeviceEvent
		if err := rows.Scan(&ev.Fingerprint, &ev.SeenAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// GetSessionIntervals returns session start/end pairs for the last N days,
// most recent first.
func (s *PostgresStore) GetSessionIntervals(ctx context.Context, userID int64, days int) ([]domain.SessionInterval, error) {
	query := `
		SELECT start_time, end_time
		FROM study_sessions
		WHERE user_id = $1 AND start_time >= NOW() - $2 * INTERVAL '1 day'
		ORDER BY start_time DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intervals := make([]domain.SessionInterval, 0)
	for rows.Next() {
		var iv domain.SessionInterval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

// AppendAuditLog persists one verdict as an audit record
func (s *PostgresStore) AppendAuditLog(ctx context.Context, verdict *domain.FraudVerdict) error {
	return s.appendAuditLog(ctx, s.db, verdict)
}

// execer abstracts *sql.DB and *sql.Tx so the same insert helpers serve
// both the standalone methods and the transactional commit.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *PostgresStore) appendAuditLog(ctx context.Context, ex execer, verdict *domain.FraudVerdict) error {
	flagsJSON, err := json.Marshal(verdict.Flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}
	actionsJSON, err := json.Marshal(verdict.ActionsTaken)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}
	metaJSON, err := json.Marshal(verdict.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO fraud_detection_logs
			(id, user_id, is_fraud, risk_level, flags, confidence, actions_taken, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = ex.ExecContext(ctx, query,
		verdict.ID, verdict.UserID, verdict.IsFraud, verdict.RiskLevel,
		flagsJSON, verdict.Confidence, actionsJSON, metaJSON, verdict.EvaluatedAt,
	)
	return err
}

// CreateRestriction persists a new restriction row
func (s *PostgresStore) CreateRestriction(ctx context.Context, r *domain.Restriction) error {
	return s.createRestriction(ctx, s.db, r)
}

func (s *PostgresStore) createRestriction(ctx context.Context, ex execer, r *domain.Restriction) error {
	query := `
		INSERT INTO user_restrictions (id, user_id, restriction_type, reason, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := ex.ExecContext(ctx, query,
		r.ID, r.UserID, r.Type, r.Reason, r.CreatedAt, r.ExpiresAt,
	)
	return err
}

func (s *PostgresStore) markSuspicious(ctx context.Context, ex execer, verdict *domain.FraudVerdict) error {
	flagsJSON, err := json.Marshal(verdict.Flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}

	query := `
		INSERT INTO suspicious_sessions (user_id, verdict_id, flags, risk_level, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = ex.ExecContext(ctx, query,
		verdict.UserID, verdict.ID, flagsJSON, verdict.RiskLevel, verdict.EvaluatedAt,
	)
	return err
}

// RecordVerdict persists the audit record, the suspicious-session marker
// and the restriction atomically. The audit row is written for every
// verdict; the marker only for fraudulent ones; the restriction only when
// the caller built one.
func (s *PostgresStore) RecordVerdict(ctx context.Context, verdict *domain.FraudVerdict, restriction *domain.Restriction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record verdict: %w", err)
	}
	defer tx.Rollback()

	if err := s.appendAuditLog(ctx, tx, verdict); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}

	if verdict.IsFraud {
		if err := s.markSuspicious(ctx, tx, verdict); err != nil {
			return fmt.Errorf("mark session suspicious: %w", err)
		}
	}

	if restriction != nil {
		if err := s.createRestriction(ctx, tx, restriction); err != nil {
			return fmt.Errorf("create restriction: %w", err)
		}
	}

	return tx.Commit()
}

// IsUserRestricted reports whether any restriction with a future expiry
// exists for the user.
func (s *PostgresStore) IsUserRestricted(ctx context.Context, userID int64) (bool, error) {
	query := `
		SELECT COUNT(*) FROM user_restrictions
		WHERE user_id = $1 AND expires_at > NOW()
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetFraudHistory returns the user's past verdicts, most recent first
func (s *PostgresStore) GetFraudHistory(ctx context.Context, userID int64, days int) ([]domain.FraudVerdict, error) {
	query := `
		SELECT id, user_id, is_fraud, risk_level, flags, confidence, actions_taken, metadata, created_at
		FROM fraud_detection_logs
		WHERE user_id = $1 AND created_at >= NOW() - $2 * INTERVAL '1 day'
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	verdicts := make([]domain.FraudVerdict, 0)
	for rows.Next() {
		var v domain.FraudVerdict
		var flagsJSON, actionsJSON, metaJSON []byte

		err := rows.Scan(
			&v.ID, &v.UserID, &v.IsFraud, &v.RiskLevel,
			&flagsJSON, &v.Confidence, &actionsJSON, &metaJSON, &v.EvaluatedAt,
		)
		if err != nil {
			return nil, err
		}

		json.Unmarshal(flagsJSON, &v.Flags)
		json.Unmarshal(actionsJSON, &v.ActionsTaken)
		json.Unmarshal(metaJSON, &v.Metadata)

		verdicts = append(verdicts, v)
	}
	return verdicts, rows.Err()
}

// SeedSampleData inserts deterministic demo history for one user so the
// demo binary has something to analyze. Idempotent per day.
func (s *PostgresStore) SeedSampleData(ctx context.Context, userID int64, record domain.DailyRecord) error {
	query := `
		INSERT INTO study_reports (user_id, report_date, study_minutes, tests_count, correct_answers, total_questions)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, report_date) DO UPDATE
		SET study_minutes = EXCLUDED.study_minutes,
		    tests_count = EXCLUDED.tests_count,
		    correct_answers = EXCLUDED.correct_answers,
		    total_questions = EXCLUDED.total_questions
	`
	_, err := s.db.ExecContext(ctx, query,
		userID, record.Date, record.StudyMinutes, record.TestsCount,
		record.CorrectAnswers, record.TotalQuestions,
	)
	return err
}

// SeedSampleSession inserts one demo session row (interval + fingerprint)
func (s *PostgresStore) SeedSampleSession(ctx context.Context, userID int64, fingerprint string, start, end time.Time) error {
	query := `
		INSERT INTO study_sessions (user_id, device_fingerprint, start_time, end_time, duration_minutes, session_date)
		VALUES ($1, $2, $3, $4, $5, $6::date)
	`
	_, err := s.db.ExecContext(ctx, query,
		userID, fingerprint, start, end, int(end.Sub(start).Minutes()), start,
	)
	return err
}
