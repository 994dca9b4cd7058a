package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"session-authority/internal/session/domain"
)

// PostgresRepository implements Repository against the sessions table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, account_id, created_at, last_seen_at, expires_at, revoked_at, revoked_reason, user_agent, ip_address`

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1
	`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FindLiveByAccount returns the newest non-revoked, non-expired session for the
// account, or nil if none exists.
func (r *PostgresRepository) FindLiveByAccount(ctx context.Context, accountID string, now time.Time) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE account_id = $1 AND revoked_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1
	`, accountID, now)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create persists the session as a single insert. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		s.ID,
		s.AccountID,
		s.CreatedAt,
		timeToNullTime(s.LastSeenAt),
		s.ExpiresAt,
		timeToNullTime(s.RevokedAt),
		stringToNull(string(s.RevokedReason)),
		stringToNull(s.UserAgent),
		stringToNull(s.IPAddress),
	)
	return err
}

// Revoke marks the session revoked. The revoked_at IS NULL guard makes the
// write atomic with its precondition: a concurrent revocation wins once and
// the reason of the first writer sticks.
func (r *PostgresRepository) Revoke(ctx context.Context, id string, reason domain.RevokedReason, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET revoked_at = $2, revoked_reason = $3
		WHERE id = $1 AND revoked_at IS NULL
	`, id, at, string(reason))
	return err
}

// RevokeAllLiveByAccount revokes every non-revoked session for the account.
func (r *PostgresRepository) RevokeAllLiveByAccount(ctx context.Context, accountID string, reason domain.RevokedReason, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET revoked_at = $2, revoked_reason = $3
		WHERE account_id = $1 AND revoked_at IS NULL
	`, accountID, at, string(reason))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Refresh advances the sliding window. Guarded on non-revoked so a racing
// revocation is never overwritten.
func (r *PostgresRepository) Refresh(ctx context.Context, id string, lastSeenAt, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET last_seen_at = $2, expires_at = $3
		WHERE id = $1 AND revoked_at IS NULL
	`, id, lastSeenAt, expiresAt)
	return err
}

// DeleteExpired deletes every session past its expiry, revoked or not.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteRevokedBefore deletes revoked sessions whose revocation is older than cutoff.
func (r *PostgresRepository) DeleteRevokedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE revoked_at IS NOT NULL AND revoked_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TrimAccountHistory keeps the `keep` most recently created sessions per
// account and deletes the rest.
func (r *PostgresRepository) TrimAccountHistory(ctx context.Context, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY account_id ORDER BY created_at DESC
				) AS rn
				FROM sessions
			) ranked
			WHERE ranked.rn > $1
		)
	`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s             domain.Session
		lastSeenAt    sql.NullTime
		revokedAt     sql.NullTime
		revokedReason sql.NullString
		userAgent     sql.NullString
		ipAddress     sql.NullString
	)
	err := row.Scan(
		&s.ID,
		&s.AccountID,
		&s.CreatedAt,
		&lastSeenAt,
		&s.ExpiresAt,
		&revokedAt,
		&revokedReason,
		&userAgent,
		&ipAddress,
	)
	if err != nil {
		return nil, err
	}
	s.LastSeenAt = nullTimeToPtr(lastSeenAt)
	s.RevokedAt = nullTimeToPtr(revokedAt)
	s.RevokedReason = domain.RevokedReason(revokedReason.String)
	s.UserAgent = userAgent.String
	s.IPAddress = ipAddress.String
	return &s, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}

func stringToNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
