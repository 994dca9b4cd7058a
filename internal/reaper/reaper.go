// Package reaper deletes session rows that the request path never touches:
// expired sessions, revoked sessions past their retention window, and the
// oldest sessions of accounts over the history cap. It runs on an external
// schedule and is the only component that deletes rows.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"session-authority/internal/telemetry"
)

// Config is the immutable cleanup policy.
type Config struct {
	// RevokedRetention is how long revoked sessions are kept for forensics
	// before being purged.
	RevokedRetention time.Duration
	// HistoryLimit is how many sessions per account survive a cleanup, by
	// creation time descending.
	HistoryLimit int
}

// SessionRepo is the minimal session repository needed by the reaper.
type SessionRepo interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteRevokedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	TrimAccountHistory(ctx context.Context, keep int) (int64, error)
}

// Report carries the per-pass deletion counts of one cleanup run. Counts for
// passes that failed are zero; the run's error says which passes failed.
type Report struct {
	ExpiredDeleted int64 `json:"expiredDeleted"`
	RevokedPurged  int64 `json:"revokedPurged"`
	Trimmed        int64 `json:"trimmed"`
}

// Reaper runs the cleanup passes. Safe to run concurrently with live traffic;
// every pass is idempotent.
type Reaper struct {
	sessions SessionRepo
	cfg      Config
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	now      func() time.Time
}

// Option configures optional Reaper dependencies.
type Option func(*Reaper)

// WithMetrics records per-pass deletion counts on the given instruments.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Reaper) { r.metrics = m }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reaper) { r.now = now }
}

// New returns a reaper with the given dependencies.
func New(sessions SessionRepo, cfg Config, logger *slog.Logger, opts ...Option) *Reaper {
	r := &Reaper{
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunCleanup executes the three passes independently: a failing pass does not
// block the others, and the returned error joins every pass failure so the
// caller can exit non-zero for alerting while the report still carries the
// counts of the passes that succeeded.
func (r *Reaper) RunCleanup(ctx context.Context) (Report, error) {
	now := r.now()
	var report Report
	var errs []error

	if n, err := r.sessions.DeleteExpired(ctx, now); err != nil {
		r.logger.Error("expired pass failed", "error", err)
		errs = append(errs, fmt.Errorf("delete expired: %w", err))
	} else {
		report.ExpiredDeleted = n
		r.metrics.RecordReaped(ctx, "expired", n)
	}

	cutoff := now.Add(-r.cfg.RevokedRetention)
	if n, err := r.sessions.DeleteRevokedBefore(ctx, cutoff); err != nil {
		r.logger.Error("revoked retention pass failed", "error", err)
		errs = append(errs, fmt.Errorf("purge revoked: %w", err))
	} else {
		report.RevokedPurged = n
		r.metrics.RecordReaped(ctx, "revoked", n)
	}

	if n, err := r.sessions.TrimAccountHistory(ctx, r.cfg.HistoryLimit); err != nil {
		r.logger.Error("history trim pass failed", "error", err)
		errs = append(errs, fmt.Errorf("trim history: %w", err))
	} else {
		report.Trimmed = n
		r.metrics.RecordReaped(ctx, "trimmed", n)
	}

	r.logger.Info("session cleanup finished",
		"expired_deleted", report.ExpiredDeleted,
		"revoked_purged", report.RevokedPurged,
		"trimmed", report.Trimmed,
		"failed_passes", len(errs))

	return report, errors.Join(errs...)
}
