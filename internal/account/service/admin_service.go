// Package service implements organization-scoped account administration:
// suspending and reactivating member accounts, with eager session revocation
// on suspension so the suspended user's other devices are cut off immediately.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	accountdomain "session-authority/internal/account/domain"
	"session-authority/internal/audit"
	"session-authority/internal/authority"
	"session-authority/internal/platform/rbac"
	sessiondomain "session-authority/internal/session/domain"
	"session-authority/internal/telemetry"
)

var (
	// ErrAccountNotFound means the target account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrSelfTarget means an admin tried to suspend their own account.
	ErrSelfTarget = errors.New("cannot act on own account")
)

// AccountRepo is the minimal account repository needed by administration.
type AccountRepo interface {
	GetByID(ctx context.Context, id string) (*accountdomain.Account, error)
	UpdateStatus(ctx context.Context, id string, status accountdomain.AccountStatus) error
	ListByOrg(ctx context.Context, orgID string) ([]*accountdomain.Account, error)
}

// SessionRepo is the minimal session repository needed by administration.
type SessionRepo interface {
	RevokeAllLiveByAccount(ctx context.Context, accountID string, reason sessiondomain.RevokedReason, at time.Time) (int64, error)
}

// AdminService suspends and reactivates accounts within the acting admin's
// organization. Safe for concurrent use.
type AdminService struct {
	accounts AccountRepo
	sessions SessionRepo
	logger   *slog.Logger
	auditor  audit.AuditLogger
	emitter  telemetry.Emitter
	now      func() time.Time
}

// Option configures optional AdminService dependencies.
type Option func(*AdminService)

// WithAuditLogger records administrative actions, best-effort.
func WithAuditLogger(a audit.AuditLogger) Option {
	return func(s *AdminService) { s.auditor = a }
}

// WithEmitter emits suspension events, best-effort.
func WithEmitter(e telemetry.Emitter) Option {
	return func(s *AdminService) { s.emitter = e }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *AdminService) { s.now = now }
}

// NewAdminService returns an admin service with the given dependencies.
func NewAdminService(accounts AccountRepo, sessions SessionRepo, logger *slog.Logger, opts ...Option) *AdminService {
	s := &AdminService{
		accounts: accounts,
		sessions: sessions,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SuspendAccount sets the target account to suspended and eagerly revokes all
// of its live sessions with reason suspended. The eager revocation is the
// proactive counterpart to the lazy discovery during validation: the user's
// other devices are cut off without waiting for them to make a request.
//
// The actor must be an organization admin, the target must belong to the same
// organization, and an admin cannot suspend themselves.
func (s *AdminService) SuspendAccount(ctx context.Context, actor *authority.CurrentSession, targetID string) error {
	target, err := s.authorize(ctx, actor, targetID)
	if err != nil {
		return err
	}

	if err := s.accounts.UpdateStatus(ctx, targetID, accountdomain.AccountStatusSuspended); err != nil {
		return fmt.Errorf("suspend account: %w", err)
	}

	now := s.now()
	revoked, err := s.sessions.RevokeAllLiveByAccount(ctx, targetID, sessiondomain.RevokedReasonSuspended, now)
	if err != nil {
		// The status change already cut the account off; validation discovers
		// it lazily. Surface the failure so the admin can retry.
		return fmt.Errorf("revoke sessions of suspended account: %w", err)
	}

	s.logger.Info("account suspended",
		"account_id", targetID, "actor_id", actor.Account.ID, "sessions_revoked", revoked)
	if s.auditor != nil {
		s.auditor.LogEvent(ctx, orgOf(actor), actor.Account.ID, "account_suspend", "account", targetID, "")
	}
	ev := telemetry.NewEvent(telemetry.EventAccountSuspended)
	ev.AccountID = target.ID
	ev.OrgID = orgOf(actor)
	telemetry.EmitAsync(s.emitter, ev)

	return nil
}

// ReactivateAccount sets the target back to active. Sessions revoked during
// the suspension stay revoked; the user signs in again.
func (s *AdminService) ReactivateAccount(ctx context.Context, actor *authority.CurrentSession, targetID string) error {
	if _, err := s.authorize(ctx, actor, targetID); err != nil {
		return err
	}

	if err := s.accounts.UpdateStatus(ctx, targetID, accountdomain.AccountStatusActive); err != nil {
		return fmt.Errorf("reactivate account: %w", err)
	}

	s.logger.Info("account reactivated", "account_id", targetID, "actor_id", actor.Account.ID)
	if s.auditor != nil {
		s.auditor.LogEvent(ctx, orgOf(actor), actor.Account.ID, "account_reactivate", "account", targetID, "")
	}
	return nil
}

// ListAccounts returns the accounts of the acting admin's organization.
func (s *AdminService) ListAccounts(ctx context.Context, actor *authority.CurrentSession) ([]*accountdomain.Account, error) {
	if err := rbac.RequireOrgAdmin(actor); err != nil {
		return nil, err
	}
	list, err := s.accounts.ListByOrg(ctx, *actor.Account.OrgID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return list, nil
}

// authorize runs the shared admin checks and loads the target: actor is an
// org admin, target exists, target is in the actor's organization, and the
// actor is not acting on themselves.
func (s *AdminService) authorize(ctx context.Context, actor *authority.CurrentSession, targetID string) (*accountdomain.Account, error) {
	if err := rbac.RequireOrgAdmin(actor); err != nil {
		return nil, err
	}
	if targetID == actor.Account.ID {
		return nil, ErrSelfTarget
	}

	target, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if target == nil {
		return nil, ErrAccountNotFound
	}
	if target.OrgID == nil || *target.OrgID != *actor.Account.OrgID {
		return nil, authority.ErrForbidden
	}
	return target, nil
}

func orgOf(actor *authority.CurrentSession) string {
	if actor.Account.OrgID != nil {
		return *actor.Account.OrgID
	}
	return ""
}
