package domain

import "time"

// AuditLog represents one recorded administrative action.
type AuditLog struct {
	ID             string
	OrgID          string
	ActorAccountID string
	Action         string
	EntityType     string
	EntityID       string
	IP             string
	Metadata       string
	CreatedAt      time.Time
}
