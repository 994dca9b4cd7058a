package repository

import (
	"context"
	"time"

	"session-authority/internal/session/domain"
)

// Repository defines persistence for sessions. Mutations on the request path
// (Create, Revoke, RevokeAllLiveByAccount, Refresh) are each a single atomic
// statement; rows are deleted only through the reaper operations.
type Repository interface {
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// FindLiveByAccount returns the most recently created live session for the
	// account at the given instant, or nil if none.
	FindLiveByAccount(ctx context.Context, accountID string, now time.Time) (*domain.Session, error)
	// Create persists the session. The session must have ID set.
	Create(ctx context.Context, s *domain.Session) error
	// Revoke marks the session revoked with the given reason. The write is
	// guarded: an already-revoked session is left untouched (revocation is
	// terminal and idempotent).
	Revoke(ctx context.Context, id string, reason domain.RevokedReason, at time.Time) error
	// RevokeAllLiveByAccount revokes every non-revoked session for the account
	// and returns how many rows it touched.
	RevokeAllLiveByAccount(ctx context.Context, accountID string, reason domain.RevokedReason, at time.Time) (int64, error)
	// Refresh advances lastSeenAt and expiresAt on a successful validation.
	// Guarded on the session still being non-revoked.
	Refresh(ctx context.Context, id string, lastSeenAt, expiresAt time.Time) error

	// Reaper operations. Each is idempotent and returns a deleted count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteRevokedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	TrimAccountHistory(ctx context.Context, keep int) (int64, error)
}
