package domain

import "time"

// Session is a bearer session owned by an account. The ID doubles as the
// credential presented on every request; it is opaque and unguessable.
//
// A session with RevokedAt set is permanently terminal; no code path clears it.
// Rows are deleted only by the reaper, never on the request path.
type Session struct {
	ID            string
	AccountID     string
	CreatedAt     time.Time
	LastSeenAt    *time.Time // nil until the first successful validation
	ExpiresAt     time.Time
	RevokedAt     *time.Time // nil when not revoked
	RevokedReason RevokedReason
	UserAgent     string // advisory client metadata, not security-enforced
	IPAddress     string
}

type RevokedReason string

const (
	RevokedReasonLogout     RevokedReason = "logout"
	RevokedReasonTimeout    RevokedReason = "timeout"
	RevokedReasonSuspended  RevokedReason = "suspended"
	RevokedReasonOverridden RevokedReason = "overridden"
)

// IsLive reports whether the session is usable at the given instant:
// not revoked and not past its expiry.
func (s *Session) IsLive(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

// Summary is the subset of session metadata shown to a user deciding whether
// to take over a conflicting session on another device.
type Summary struct {
	CreatedAt  time.Time  `json:"createdAt"`
	LastSeenAt *time.Time `json:"lastSeenAt"`
	UserAgent  string     `json:"userAgent"`
	IPAddress  string     `json:"ipAddress"`
}

// Summarize returns the conflict-display summary for the session.
func (s *Session) Summarize() Summary {
	return Summary{
		CreatedAt:  s.CreatedAt,
		LastSeenAt: s.LastSeenAt,
		UserAgent:  s.UserAgent,
		IPAddress:  s.IPAddress,
	}
}
