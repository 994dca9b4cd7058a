package repository

import (
	"context"

	"session-authority/internal/account/domain"
	orgdomain "session-authority/internal/organization/domain"
)

// Repository defines persistence for accounts.
type Repository interface {
	// GetByID returns the account for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetWithOrganization returns the account and, when it belongs to one, its
	// organization, fetched together so status checks see one consistent
	// snapshot. Organization is nil for individual accounts.
	GetWithOrganization(ctx context.Context, id string) (*domain.Account, *orgdomain.Organization, error)
	// GetByEmail returns the account with the given email, or nil.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// GetByExternalSubject returns the account linked to the identity-provider
	// subject, or nil.
	GetByExternalSubject(ctx context.Context, subject string) (*domain.Account, error)
	// LinkExternalSubject attaches the identity-provider subject to an existing
	// account (registered through another channel).
	LinkExternalSubject(ctx context.Context, accountID, subject string) error
	// Create persists a new account.
	Create(ctx context.Context, a *domain.Account) error
	// UpdateStatus sets the account status.
	UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error
	// ListByOrg returns all accounts of the organization, newest first.
	ListByOrg(ctx context.Context, orgID string) ([]*domain.Account, error)
}
