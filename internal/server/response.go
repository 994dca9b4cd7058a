package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// Caller-facing error codes. Each rejection kind gets its own code so the
// calling layer can redirect appropriately (re-authenticate, show the
// conflict dialog, show the suspended notice) without parsing messages.
const (
	codeNoSession        = "NO_SESSION"
	codeNotFound         = "NOT_FOUND"
	codeRevoked          = "REVOKED"
	codeTimedOut         = "TIMED_OUT"
	codeAccountSuspended = "ACCOUNT_SUSPENDED"
	codeUnauthorized     = "UNAUTHORIZED"
	codeEmailUnverified  = "EMAIL_UNVERIFIED"
	codeSessionExists    = "SESSION_EXISTS"
	codeForbidden        = "FORBIDDEN"
	codeBadRequest       = "BAD_REQUEST"
	codeInternal         = "INTERNAL"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: apiError{Code: code, Message: message}})
}
