package authority

import "errors"

// Rejection taxonomy. Every rejection is terminal for the current request;
// the caller maps each to a distinct signal (re-authenticate, suspended
// notice, permission error) without the authority dictating the surface.
var (
	// ErrNoSession means no session credential was presented at all.
	ErrNoSession = errors.New("no session presented")
	// ErrSessionNotFound means the presented id matches no stored session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionRevoked means the session was already terminally revoked.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrAccountSuspended means the owning account (or its organization) is
	// not active; the session has just been revoked.
	ErrAccountSuspended = errors.New("account suspended")
	// ErrSessionTimedOut means the inactivity deadline passed; the session has
	// just been revoked and the discovering request is rejected.
	ErrSessionTimedOut = errors.New("session timed out")
	// ErrForbidden means the session is valid but lacks the required role.
	ErrForbidden = errors.New("forbidden")
)
