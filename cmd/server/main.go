package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	accountrepo "session-authority/internal/account/repository"
	accountservice "session-authority/internal/account/service"
	"session-authority/internal/audit"
	auditrepo "session-authority/internal/audit/repository"
	"session-authority/internal/authority"
	"session-authority/internal/config"
	"session-authority/internal/db"
	identityservice "session-authority/internal/identity/service"
	"session-authority/internal/server"
	sessionrepo "session-authority/internal/session/repository"
	"session-authority/internal/telemetry"
	otelsetup "session-authority/internal/telemetry/otel"
	"session-authority/internal/telemetry/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "session-authority", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	metrics, err := telemetry.NewMetrics(providers.MeterProvider.Meter("session-authority"))
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	var emitter telemetry.Emitter
	if brokers := cfg.EventsKafkaBrokersList(); len(brokers) > 0 {
		kp := producer.NewKafkaProducer(brokers, cfg.EventsKafkaTopic)
		defer kp.Close()
		emitter = kp
	}

	sessions := sessionrepo.NewPostgresRepository(database)
	accounts := accountrepo.NewPostgresRepository(database)
	audits := auditrepo.NewPostgresRepository(database)

	auth := authority.NewService(sessions, accounts,
		authority.Config{Timeout: cfg.SessionTimeout()}, logger,
		authority.WithMetrics(metrics),
		authority.WithEmitter(emitter),
	)
	bootstrap := identityservice.NewBootstrapService(accounts, sessions,
		identityservice.Config{
			Timeout:                  cfg.SessionTimeout(),
			EnforceEmailVerification: cfg.EnforceEmailVerification,
		}, logger,
		identityservice.WithEmitter(emitter),
	)
	admin := accountservice.NewAdminService(accounts, sessions, logger,
		accountservice.WithAuditLogger(audit.NewLogger(audits, nil)),
		accountservice.WithEmitter(emitter),
	)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.New(cfg, auth, bootstrap, admin, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}

	// Let in-flight async event emits finish before tearing down providers.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error("otel shutdown", "error", err)
	}
	logger.Info("http server stopped")
}
