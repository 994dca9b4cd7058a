package domain

import (
	"errors"
	"time"
)

// Account is the local account an external identity resolves to. At most one
// account exists per email; the external subject links the identity-provider
// login to it.
type Account struct {
	ID              string
	Email           string
	ExternalSubject string  // identity-provider subject; empty until first external login
	Status          AccountStatus
	OrgID           *string // nil for individual accounts
	Role            Role
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusDeleted   AccountStatus = "deleted"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// IsCorporate reports whether the account belongs to an organization.
func (a *Account) IsCorporate() bool {
	return a.OrgID != nil && *a.OrgID != ""
}

// Validate validates the account for persistence. Returns an error describing the first validation failure.
func (a *Account) Validate() error {
	if a.Email == "" {
		return errors.New("email is required")
	}
	if a.Status == "" {
		a.Status = AccountStatusActive
	}
	if a.Role == "" {
		a.Role = RoleMember
	}
	return nil
}
