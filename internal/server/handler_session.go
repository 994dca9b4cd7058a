package server

import (
	"net/http"
	"time"
)

type sessionResponse struct {
	Account      accountPayload `json:"account"`
	Organization *orgPayload    `json:"organization,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastSeenAt   *time.Time     `json:"lastSeenAt"`
	ExpiresAt    time.Time      `json:"expiresAt"`
}

type orgPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// handleCurrentSession returns the validated session with its account and
// organization snapshot. The validation (and sliding-window refresh) already
// happened in requireSession.
func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	cur := SessionFromContext(r.Context())

	resp := sessionResponse{
		Account:    accountToPayload(cur.Account),
		CreatedAt:  cur.Session.CreatedAt,
		LastSeenAt: cur.Session.LastSeenAt,
		ExpiresAt:  cur.Session.ExpiresAt,
	}
	if cur.Organization != nil {
		resp.Organization = &orgPayload{
			ID:     cur.Organization.ID,
			Name:   cur.Organization.Name,
			Status: string(cur.Organization.Status),
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
