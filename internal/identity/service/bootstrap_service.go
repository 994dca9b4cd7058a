// Package service implements identity bootstrap: it turns a verified external
// identity (subject + email from the identity provider) into a local account
// and a live session, arbitrating conflicts with sessions on other devices.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	accountdomain "session-authority/internal/account/domain"
	orgdomain "session-authority/internal/organization/domain"
	"session-authority/internal/security"
	sessiondomain "session-authority/internal/session/domain"
	"session-authority/internal/telemetry"
)

var (
	// ErrInvalidIdentity means the external identity is missing its subject or
	// email and no account can be resolved for it.
	ErrInvalidIdentity = errors.New("invalid external identity")
	// ErrAccountInactive means the resolved account, or its organization, is
	// not active. No session is issued.
	ErrAccountInactive = errors.New("account is not active")
)

// EmailUnverifiedError means verification is required by configuration and the
// identity provider reported the email as unverified. The resolved account is
// attached so the caller can prompt for re-verification.
type EmailUnverifiedError struct {
	Account *accountdomain.Account
}

func (e *EmailUnverifiedError) Error() string {
	return "email address is not verified"
}

// Config is the immutable bootstrap policy.
type Config struct {
	// Timeout is the sliding inactivity timeout applied to new sessions.
	Timeout time.Duration
	// EnforceEmailVerification rejects identities whose email the provider has
	// not verified.
	EnforceEmailVerification bool
}

// AccountRepo is the minimal account repository needed by bootstrap.
type AccountRepo interface {
	GetByExternalSubject(ctx context.Context, subject string) (*accountdomain.Account, error)
	GetByEmail(ctx context.Context, email string) (*accountdomain.Account, error)
	LinkExternalSubject(ctx context.Context, accountID, subject string) error
	Create(ctx context.Context, a *accountdomain.Account) error
	GetWithOrganization(ctx context.Context, id string) (*accountdomain.Account, *orgdomain.Organization, error)
}

// SessionRepo is the minimal session repository needed by bootstrap.
type SessionRepo interface {
	FindLiveByAccount(ctx context.Context, accountID string, now time.Time) (*sessiondomain.Session, error)
	Create(ctx context.Context, s *sessiondomain.Session) error
	RevokeAllLiveByAccount(ctx context.Context, accountID string, reason sessiondomain.RevokedReason, at time.Time) (int64, error)
}

// ClientInfo is advisory metadata about the logging-in client, recorded on the
// session and shown in conflict summaries.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// BootstrapResult is the outcome of a bootstrap attempt. Exactly one of
// Session or ActiveSession is set: Session when the caller is ready to
// proceed, ActiveSession when a different live session exists and the caller
// must decide whether to take over.
type BootstrapResult struct {
	Account       *accountdomain.Account
	Session       *sessiondomain.Session
	ActiveSession *sessiondomain.Summary
}

// Conflict reports whether the result is a pending takeover decision rather
// than a ready session.
func (r *BootstrapResult) Conflict() bool {
	return r.ActiveSession != nil
}

// BootstrapService resolves external identities to accounts and issues
// sessions. Safe for concurrent use.
type BootstrapService struct {
	accounts AccountRepo
	sessions SessionRepo
	cfg      Config
	logger   *slog.Logger
	emitter  telemetry.Emitter
	now      func() time.Time
}

// Option configures optional BootstrapService dependencies.
type Option func(*BootstrapService)

// WithEmitter emits conflict and override events, best-effort.
func WithEmitter(e telemetry.Emitter) Option {
	return func(s *BootstrapService) { s.emitter = e }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *BootstrapService) { s.now = now }
}

// NewBootstrapService returns a bootstrap service with the given dependencies.
func NewBootstrapService(accounts AccountRepo, sessions SessionRepo, cfg Config, logger *slog.Logger, opts ...Option) *BootstrapService {
	s := &BootstrapService{
		accounts: accounts,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bootstrap resolves the external identity to an account and returns either a
// ready session or a conflict summary.
//
// A live session belonging to a different device surfaces as a conflict with
// that session's display metadata; nothing is mutated, and the caller must
// confirm takeover through Override. Presenting the id of the existing live
// session reuses it untouched: the refresh happens on the next validation in
// the normal request path, not here.
func (s *BootstrapService) Bootstrap(ctx context.Context, subject, email string, emailVerified bool, presentedSessionID string, client ClientInfo) (*BootstrapResult, error) {
	account, err := s.resolveAccount(ctx, subject, email)
	if err != nil {
		return nil, err
	}

	if s.cfg.EnforceEmailVerification && !emailVerified {
		return nil, &EmailUnverifiedError{Account: account}
	}

	if err := s.checkActive(ctx, account); err != nil {
		return nil, err
	}

	now := s.now()

	live, err := s.sessions.FindLiveByAccount(ctx, account.ID, now)
	if err != nil {
		return nil, fmt.Errorf("find live session: %w", err)
	}
	if live != nil {
		if live.ID == presentedSessionID {
			return &BootstrapResult{Account: account, Session: live}, nil
		}
		s.emitConflict(account, live)
		summary := live.Summarize()
		return &BootstrapResult{Account: account, ActiveSession: &summary}, nil
	}

	sess, err := s.createSession(ctx, account.ID, client, now)
	if err != nil {
		return nil, err
	}
	return &BootstrapResult{Account: account, Session: sess}, nil
}

// Override revokes every live session of the resolved account with reason
// overridden and issues a fresh one. This is the only path that may end
// another device's session without that device acting, and is called only
// after the user has confirmed takeover on a conflict.
func (s *BootstrapService) Override(ctx context.Context, subject, email string, client ClientInfo) (*BootstrapResult, error) {
	account, err := s.resolveAccount(ctx, subject, email)
	if err != nil {
		return nil, err
	}
	if err := s.checkActive(ctx, account); err != nil {
		return nil, err
	}

	now := s.now()

	revoked, err := s.sessions.RevokeAllLiveByAccount(ctx, account.ID, sessiondomain.RevokedReasonOverridden, now)
	if err != nil {
		return nil, fmt.Errorf("revoke live sessions: %w", err)
	}

	sess, err := s.createSession(ctx, account.ID, client, now)
	if err != nil {
		return nil, err
	}

	s.logger.Info("session override",
		"account_id", account.ID, "revoked", revoked, "session_id", sess.ID)
	ev := telemetry.NewEvent(telemetry.EventSessionOverride)
	ev.AccountID = account.ID
	ev.SessionID = sess.ID
	if account.OrgID != nil {
		ev.OrgID = *account.OrgID
	}
	telemetry.EmitAsync(s.emitter, ev)

	return &BootstrapResult{Account: account, Session: sess}, nil
}

// resolveAccount runs the three-way resolution: an account already linked to
// the subject wins; otherwise an account with the same email gets the subject
// linked (a user attaching a second login channel); otherwise a new individual
// account is created.
func (s *BootstrapService) resolveAccount(ctx context.Context, subject, email string) (*accountdomain.Account, error) {
	if subject == "" || email == "" {
		return nil, ErrInvalidIdentity
	}

	account, err := s.accounts.GetByExternalSubject(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("lookup by subject: %w", err)
	}
	if account != nil {
		return account, nil
	}

	account, err = s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup by email: %w", err)
	}
	if account != nil {
		if err := s.accounts.LinkExternalSubject(ctx, account.ID, subject); err != nil {
			return nil, fmt.Errorf("link external subject: %w", err)
		}
		account.ExternalSubject = subject
		return account, nil
	}

	now := s.now()
	account = &accountdomain.Account{
		ID:              uuid.New().String(),
		Email:           email,
		ExternalSubject: subject,
		Status:          accountdomain.AccountStatusActive,
		Role:            accountdomain.RoleMember,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// checkActive enforces account and organization status with the same rule the
// session authority applies during validation.
func (s *BootstrapService) checkActive(ctx context.Context, account *accountdomain.Account) error {
	if account.Status != accountdomain.AccountStatusActive {
		return ErrAccountInactive
	}
	if account.IsCorporate() {
		_, org, err := s.accounts.GetWithOrganization(ctx, account.ID)
		if err != nil {
			return fmt.Errorf("load organization: %w", err)
		}
		if org != nil && org.Status != orgdomain.OrgStatusActive {
			return ErrAccountInactive
		}
	}
	return nil
}

// createSession issues a fresh session as a single atomic insert. The
// read-then-write between FindLiveByAccount and this insert is deliberately
// not transactional; a narrow double-login race resolves on the next
// bootstrap or validation cycle.
func (s *BootstrapService) createSession(ctx context.Context, accountID string, client ClientInfo, now time.Time) (*sessiondomain.Session, error) {
	token, err := security.NewSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	sess := &sessiondomain.Session{
		ID:        token,
		AccountID: accountID,
		CreatedAt: now,
		ExpiresAt: sessiondomain.Expiry(now, s.cfg.Timeout),
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *BootstrapService) emitConflict(account *accountdomain.Account, live *sessiondomain.Session) {
	ev := telemetry.NewEvent(telemetry.EventSessionConflict)
	ev.AccountID = account.ID
	ev.SessionID = live.ID
	if account.OrgID != nil {
		ev.OrgID = *account.OrgID
	}
	telemetry.EmitAsync(s.emitter, ev)
}
