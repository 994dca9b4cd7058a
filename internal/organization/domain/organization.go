package domain

import (
	"errors"
	"time"
)

// Organization represents a corporate account/tenant. Member accounts inherit
// its suspension: a suspended organization invalidates every member session on
// the next validation.
type Organization struct {
	ID        string
	Name      string
	Status    OrgStatus
	CreatedAt time.Time
}

type OrgStatus string

const (
	OrgStatusActive    OrgStatus = "active"
	OrgStatusSuspended OrgStatus = "suspended"
)

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
func (o *Organization) Validate() error {
	if o.Name == "" {
		return errors.New("name is required")
	}
	if o.Status == "" {
		o.Status = OrgStatusActive
	}
	return nil
}
