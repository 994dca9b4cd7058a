// reaper runs one session cleanup pass and exits. Schedule it externally
// (cron, Kubernetes CronJob). Exits non-zero when any pass fails so the
// scheduler can alert, while the successful passes keep their effect.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"session-authority/internal/config"
	"session-authority/internal/db"
	"session-authority/internal/reaper"
	sessionrepo "session-authority/internal/session/repository"
	"session-authority/internal/telemetry"
	otelsetup "session-authority/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "session-reaper", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	metrics, err := telemetry.NewMetrics(providers.MeterProvider.Meter("session-reaper"))
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	r := reaper.New(sessionrepo.NewPostgresRepository(database),
		reaper.Config{
			RevokedRetention: cfg.RevokedRetention(),
			HistoryLimit:     cfg.SessionHistoryLimit,
		}, logger,
		reaper.WithMetrics(metrics),
	)

	report, runErr := r.RunCleanup(ctx)
	logger.Info("cleanup report",
		"expired_deleted", report.ExpiredDeleted,
		"revoked_purged", report.RevokedPurged,
		"trimmed", report.Trimmed)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error("otel shutdown", "error", err)
	}

	if runErr != nil {
		logger.Error("cleanup failed", "error", runErr)
		os.Exit(1)
	}
}
