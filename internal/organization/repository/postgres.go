package repository

import (
	"context"
	"database/sql"
	"errors"

	"session-authority/internal/organization/domain"
)

// PostgresRepository implements Repository against the organizations table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an organization repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the organization for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	var o domain.Organization
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, status, created_at
		FROM organizations
		WHERE id = $1
	`, id).Scan(&o.ID, &o.Name, &o.Status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create persists a new organization.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Organization) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, status, created_at)
		VALUES ($1, $2, $3, $4)
	`, o.ID, o.Name, string(o.Status), o.CreatedAt)
	return err
}

// UpdateStatus sets the organization status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status domain.OrgStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE organizations
		SET status = $2
		WHERE id = $1
	`, id, string(status))
	return err
}
