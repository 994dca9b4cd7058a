// Package security generates the opaque bearer tokens used as session identifiers.
package security

import (
	"crypto/rand"
	"encoding/base64"
)

// sessionTokenBytes is the entropy of a session token (256 bits).
const sessionTokenBytes = 32

// NewSessionToken returns an unguessable, URL-safe session identifier.
// The token is the bearer credential; it is stored as-is and never derivable
// from account data.
func NewSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
