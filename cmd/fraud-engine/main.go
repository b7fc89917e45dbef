package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studykit/session-integrity/internal/adapters/storage"
	"github.com/studykit/session-integrity/internal/application"
	"github.com/studykit/session-integrity/internal/config"
	"github.com/studykit/session-integrity/internal/domain"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	logger.Info("starting session integrity engine")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize storage adapter (driven port implementation)
	store, err := storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	logger.Info("connected to PostgreSQL")

	if err := store.InitSchema(); err != nil {
		logger.Error("failed to initialize schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("database schema initialized")

	// Restriction lookups happen on every submission; memoize them briefly
	cached := storage.NewRestrictionCache(store, cfg.Engine.RestrictionCacheTTL)

	// Metrics endpoint for scraping
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := application.NewMetrics(registry)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error("metrics listener stopped", slog.String("error", err.Error()))
		}
	}()

	// Wire the engine (dependency injection via constructor): storage,
	// immutable thresholds, logger, metrics.
	service := application.NewValidationService(
		cached,
		config.DefaultThresholds(),
		cfg.Engine,
		application.WithLogger(logger),
		application.WithMetrics(metrics),
	)

	ctx := context.Background()

	// Seed deterministic demo history so the analyzers have context.
	// User 1001 is an ordinary student; user 2002 reports bot-like activity.
	seedDemoData(ctx, store, logger)

	candidates := []domain.SessionCandidate{
		{
			UserID:            1001,
			DurationMinutes:   60,
			QuestionsAnswered: 20,
			CorrectAnswers:    18,
			DeviceFingerprint: "device-a",
			SubmittedAt:       time.Now(),
		},
		{
			UserID:            2002,
			DurationMinutes:   200,
			QuestionsAnswered: 300,
			CorrectAnswers:    300,
			DeviceFingerprint: "device-x",
			SubmittedAt:       time.Now(),
		},
	}

	for _, c := range candidates {
		verdict, err := service.ValidateSession(ctx, c)
		if err != nil {
			logger.Error("validation failed",
				slog.Int64("user_id", c.UserID),
				slog.String("error", err.Error()),
			)
			if verdict == nil {
				continue
			}
			// A verdict beside an error means persistence failed; the
			// caller may still act on it synchronously.
		}

		logger.Info("verdict",
			slog.Int64("user_id", verdict.UserID),
			slog.Bool("is_fraud", verdict.IsFraud),
			slog.String("risk_level", string(verdict.RiskLevel)),
			slog.Float64("confidence", verdict.Confidence),
			slog.Int("flags", len(verdict.Flags)),
		)
		for _, f := range verdict.Flags {
			logger.Info("  flag",
				slog.String("code", string(f.Code)),
				slog.String("severity", string(f.Severity)),
				slog.String("message", f.Message),
			)
		}

		restricted, err := service.IsUserRestricted(ctx, c.UserID)
		if err != nil {
			logger.Error("restriction lookup failed", slog.String("error", err.Error()))
			continue
		}
		logger.Info("restriction status",
			slog.Int64("user_id", c.UserID),
			slog.Bool("restricted", restricted),
		)
	}

	logger.Info("session integrity demo completed")
}

// seedDemoData writes a month of plausible history for the clean user and a
// bot-shaped history for the suspicious one. Idempotent across runs.
func seedDemoData(ctx context.Context, store *storage.PostgresStore, logger *slog.Logger) {
	now := time.Now()

	for i := 1; i <= 30; i++ {
		day := now.AddDate(0, 0, -i)

		// Ordinary student: varying minutes, decent but imperfect accuracy
		clean := domain.DailyRecord{
			Date:           day,
			StudyMinutes:   45 + (i*7)%90,
			TestsCount:     2,
			CorrectAnswers: 14 + i%5,
			TotalQuestions: 20,
		}
		if err := store.SeedSampleData(ctx, 1001, clean); err != nil {
			logger.Warn("seed skipped", slog.String("error", err.Error()))
			return
		}

		// Bot-shaped: identical minutes every single day
		bot := domain.DailyRecord{
			Date:           day,
			StudyMinutes:   120,
			TestsCount:     3,
			CorrectAnswers: 30,
			TotalQuestions: 30,
		}
		if err := store.SeedSampleData(ctx, 2002, bot); err != nil {
			logger.Warn("seed skipped", slog.String("error", err.Error()))
			return
		}
	}

	// A burst of back-to-back sessions across several devices for the bot
	for i := 0; i < 8; i++ {
		start := now.Add(-time.Duration(i) * 30 * time.Minute)
		end := start.Add(25 * time.Minute)
		fp := []string{"device-x", "device-y", "device-z"}[i%3]
		if err := store.SeedSampleSession(ctx, 2002, fp, start, end); err != nil {
			logger.Warn("seed skipped", slog.String("error", err.Error()))
			return
		}
	}
}
