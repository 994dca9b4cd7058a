package server

import (
	"errors"
	"net/http"

	accountdomain "session-authority/internal/account/domain"
	"session-authority/internal/identity"
	identityservice "session-authority/internal/identity/service"
	sessiondomain "session-authority/internal/session/domain"
)

type accountPayload struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
	OrgID  string `json:"orgId,omitempty"`
}

func accountToPayload(a *accountdomain.Account) accountPayload {
	p := accountPayload{
		ID:     a.ID,
		Email:  a.Email,
		Role:   string(a.Role),
		Status: string(a.Status),
	}
	if a.OrgID != nil {
		p.OrgID = *a.OrgID
	}
	return p
}

type bootstrapResponse struct {
	Account accountPayload `json:"account"`
}

type conflictResponse struct {
	Error         apiError              `json:"error"`
	ActiveSession sessiondomain.Summary `json:"activeSession"`
}

// handleBootstrap consumes the identity-provider ID token (left in a cookie
// by the provider callback) and either establishes a session or reports a
// conflict with another device's live session. The session id only ever
// travels in the HttpOnly cookie, never in the response body.
func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.identityFromRequest(w, r)
	if !ok {
		return
	}

	res, err := s.bootstrap.Bootstrap(r.Context(),
		claims.Subject, claims.Email, claims.EmailVerified,
		s.sessionIDFromRequest(r), clientInfoFromRequest(r))
	if err != nil {
		s.rejectBootstrap(w, r, err)
		return
	}

	if res.Conflict() {
		respondJSON(w, http.StatusConflict, conflictResponse{
			Error:         apiError{Code: codeSessionExists, Message: "another session is active for this account"},
			ActiveSession: *res.ActiveSession,
		})
		return
	}

	s.setSessionCookie(w, res.Session.ID)
	respondJSON(w, http.StatusOK, bootstrapResponse{Account: accountToPayload(res.Account)})
}

// handleOverride ends every other live session for the account and issues a
// fresh one. Called only after the client has shown the conflict dialog and
// the user confirmed takeover.
func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.identityFromRequest(w, r)
	if !ok {
		return
	}

	res, err := s.bootstrap.Override(r.Context(), claims.Subject, claims.Email, clientInfoFromRequest(r))
	if err != nil {
		s.rejectBootstrap(w, r, err)
		return
	}

	s.setSessionCookie(w, res.Session.ID)
	respondJSON(w, http.StatusOK, bootstrapResponse{Account: accountToPayload(res.Account)})
}

// handleLogout revokes the presented session and clears the cookie. Always
// succeeds: logging out twice, or with a dead cookie, is not an error.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.authority.Logout(r.Context(), s.sessionIDFromRequest(r)); err != nil {
		s.logger.Error("logout failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		respondError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) identityFromRequest(w http.ResponseWriter, r *http.Request) (*identity.IDTokenClaims, bool) {
	c, err := r.Cookie(s.cfg.IDTokenCookie)
	if err != nil || c.Value == "" {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing identity token")
		return nil, false
	}
	claims, err := identity.DecodeIDToken(c.Value)
	if err != nil {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "malformed identity token")
		return nil, false
	}
	return claims, true
}

func (s *Server) rejectBootstrap(w http.ResponseWriter, r *http.Request, err error) {
	var unverified *identityservice.EmailUnverifiedError
	switch {
	case errors.Is(err, identityservice.ErrInvalidIdentity):
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "invalid identity")
	case errors.As(err, &unverified):
		respondError(w, http.StatusForbidden, codeEmailUnverified, "email address is not verified")
	case errors.Is(err, identityservice.ErrAccountInactive):
		respondError(w, http.StatusForbidden, codeAccountSuspended, "account is suspended")
	default:
		s.logger.Error("bootstrap failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		respondError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func clientInfoFromRequest(r *http.Request) identityservice.ClientInfo {
	return identityservice.ClientInfo{
		UserAgent: r.UserAgent(),
		IPAddress: r.RemoteAddr,
	}
}
