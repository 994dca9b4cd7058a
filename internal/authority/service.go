// Package authority is the session authority: for every presented session id
// it decides whether that session is currently valid, enforcing account and
// organization status and the sliding inactivity timeout, revoking on policy
// violation and refreshing on success.
package authority

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	accountdomain "session-authority/internal/account/domain"
	orgdomain "session-authority/internal/organization/domain"
	sessiondomain "session-authority/internal/session/domain"
	"session-authority/internal/telemetry"
)

// Config is the immutable policy configuration injected at construction.
type Config struct {
	// Timeout is the sliding inactivity timeout. Any gap in activity longer
	// than this is fatal for the session.
	Timeout time.Duration
}

// SessionRepo is the minimal session repository needed by the authority.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	Revoke(ctx context.Context, id string, reason sessiondomain.RevokedReason, at time.Time) error
	Refresh(ctx context.Context, id string, lastSeenAt, expiresAt time.Time) error
}

// AccountRepo is the minimal account repository needed by the authority.
type AccountRepo interface {
	GetWithOrganization(ctx context.Context, id string) (*accountdomain.Account, *orgdomain.Organization, error)
}

// CurrentSession is a validated session with the account and organization
// snapshots that were checked, so callers never re-fetch mid-request.
type CurrentSession struct {
	Session      *sessiondomain.Session
	Account      *accountdomain.Account
	Organization *orgdomain.Organization // nil for individual accounts
}

// Service validates sessions. Safe for concurrent use; the store is the only
// shared state.
type Service struct {
	sessions SessionRepo
	accounts AccountRepo
	cfg      Config
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	emitter  telemetry.Emitter
	now      func() time.Time
}

// Option configures optional Service dependencies.
type Option func(*Service)

// WithMetrics records validation outcomes on the given instruments.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithEmitter emits revocation events, best-effort.
func WithEmitter(e telemetry.Emitter) Option {
	return func(s *Service) { s.emitter = e }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a session authority with the given dependencies.
func NewService(sessions SessionRepo, accounts AccountRepo, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		sessions: sessions,
		accounts: accounts,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate decides whether the presented session id identifies a currently
// valid session. On success it refreshes the sliding window (lastSeenAt and
// expiresAt advance to now and now+timeout) and returns the session with its
// account and organization attached. On rejection it returns one of the
// sentinel errors in errors.go and never refreshes.
//
// Discovering a suspension or a timeout revokes the session as a side effect
// of the read, cutting off every other device using the same session on its
// next check. The revocation write is best-effort and fail-closed: if it
// fails, the request is still rejected and the next validation retries it.
func (s *Service) Validate(ctx context.Context, sessionID string) (*CurrentSession, error) {
	cur, err := s.validate(ctx, sessionID)
	s.metrics.RecordValidation(ctx, outcomeOf(err))
	return cur, err
}

func (s *Service) validate(ctx context.Context, sessionID string) (*CurrentSession, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	// Terminal state; no further writes.
	if sess.RevokedAt != nil {
		return nil, ErrSessionRevoked
	}

	account, org, err := s.accounts.GetWithOrganization(ctx, sess.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account == nil {
		// Owner row gone while the session survives; treat as not found.
		return nil, ErrSessionNotFound
	}

	now := s.now()

	if account.Status != accountdomain.AccountStatusActive {
		s.revoke(ctx, sess, sessiondomain.RevokedReasonSuspended, now)
		return nil, ErrAccountSuspended
	}
	if account.IsCorporate() && org != nil && org.Status != orgdomain.OrgStatusActive {
		s.revoke(ctx, sess, sessiondomain.RevokedReasonSuspended, now)
		return nil, ErrAccountSuspended
	}

	// Strict sliding timeout: the first request after the inactivity deadline
	// fails, with no grace window. A session that has never been validated has
	// no deadline yet.
	if sessiondomain.TimedOut(sess.LastSeenAt, now, s.cfg.Timeout) {
		s.revoke(ctx, sess, sessiondomain.RevokedReasonTimeout, now)
		return nil, ErrSessionTimedOut
	}

	// Refresh only on the success path; a rejected session is never refreshed.
	expiresAt := sessiondomain.Expiry(now, s.cfg.Timeout)
	if err := s.sessions.Refresh(ctx, sess.ID, now, expiresAt); err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	sess.LastSeenAt = &now
	sess.ExpiresAt = expiresAt

	return &CurrentSession{Session: sess, Account: account, Organization: org}, nil
}

// revoke performs the write-on-read revocation. Failures are logged, not
// returned: the rejection stands either way (fail-closed) and the guard on the
// store write lets the next validation retry.
func (s *Service) revoke(ctx context.Context, sess *sessiondomain.Session, reason sessiondomain.RevokedReason, at time.Time) {
	if err := s.sessions.Revoke(ctx, sess.ID, reason, at); err != nil {
		s.logger.Error("session revocation write failed",
			"session_id", sess.ID, "reason", string(reason), "error", err)
		return
	}
	ev := telemetry.NewEvent(telemetry.EventSessionRevoked)
	ev.AccountID = sess.AccountID
	ev.SessionID = sess.ID
	ev.Reason = string(reason)
	telemetry.EmitAsync(s.emitter, ev)
}

// Logout revokes the presented session with reason logout. Unknown or
// already-revoked sessions are a no-op: logout is idempotent.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, sessionID, sessiondomain.RevokedReasonLogout, s.now()); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func outcomeOf(err error) string {
	switch err {
	case nil:
		return "ok"
	case ErrNoSession:
		return "no_session"
	case ErrSessionNotFound:
		return "not_found"
	case ErrSessionRevoked:
		return "revoked"
	case ErrAccountSuspended:
		return "account_suspended"
	case ErrSessionTimedOut:
		return "timed_out"
	default:
		return "error"
	}
}
