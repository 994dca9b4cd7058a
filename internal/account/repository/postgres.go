package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"session-authority/internal/account/domain"
	orgdomain "session-authority/internal/organization/domain"
)

// PostgresRepository implements Repository against the accounts table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an account repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, email, external_subject, status, org_id, role, created_at, updated_at`

// GetByID returns the account for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetByEmail returns the account with the given email, or nil.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

// GetByExternalSubject returns the account linked to the subject, or nil.
func (r *PostgresRepository) GetByExternalSubject(ctx context.Context, subject string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE external_subject = $1`, subject)
}

// GetWithOrganization returns the account joined with its organization, if any.
// A single query keeps the two status snapshots consistent within one check.
func (r *PostgresRepository) GetWithOrganization(ctx context.Context, id string) (*domain.Account, *orgdomain.Organization, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT a.id, a.email, a.external_subject, a.status, a.org_id, a.role, a.created_at, a.updated_at,
		       o.id, o.name, o.status, o.created_at
		FROM accounts a
		LEFT JOIN organizations o ON o.id = a.org_id
		WHERE a.id = $1
	`, id)

	var (
		a            domain.Account
		extSubject   sql.NullString
		orgID        sql.NullString
		joinedOrgID  sql.NullString
		orgName      sql.NullString
		orgStatus    sql.NullString
		orgCreatedAt sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.Email, &extSubject, &a.Status, &orgID, &a.Role, &a.CreatedAt, &a.UpdatedAt,
		&joinedOrgID, &orgName, &orgStatus, &orgCreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	a.ExternalSubject = extSubject.String
	if orgID.Valid {
		a.OrgID = &orgID.String
	}
	var org *orgdomain.Organization
	if joinedOrgID.Valid {
		org = &orgdomain.Organization{
			ID:        joinedOrgID.String,
			Name:      orgName.String,
			Status:    orgdomain.OrgStatus(orgStatus.String),
			CreatedAt: orgCreatedAt.Time,
		}
	}
	return &a, org, nil
}

// LinkExternalSubject attaches the identity-provider subject to the account.
func (r *PostgresRepository) LinkExternalSubject(ctx context.Context, accountID, subject string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET external_subject = $2, updated_at = $3
		WHERE id = $1
	`, accountID, subject, time.Now().UTC())
	return err
}

// Create persists a new account.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		a.ID,
		a.Email,
		sql.NullString{String: a.ExternalSubject, Valid: a.ExternalSubject != ""},
		string(a.Status),
		orgIDToNull(a.OrgID),
		string(a.Role),
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

// UpdateStatus sets the account status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, id, string(status), time.Now().UTC())
	return err
}

// ListByOrg returns all accounts of the organization, newest first.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string) ([]*domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE org_id = $1
		ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		a          domain.Account
		extSubject sql.NullString
		orgID      sql.NullString
	)
	err := row.Scan(&a.ID, &a.Email, &extSubject, &a.Status, &orgID, &a.Role, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ExternalSubject = extSubject.String
	if orgID.Valid {
		a.OrgID = &orgID.String
	}
	return &a, nil
}

func orgIDToNull(id *string) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *id, Valid: true}
}
