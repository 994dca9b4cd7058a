package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	accountservice "session-authority/internal/account/service"
	"session-authority/internal/authority"
)

// handleSuspendAccount suspends the target account and eagerly revokes its
// live sessions, cutting off all of its devices immediately.
func (s *Server) handleSuspendAccount(w http.ResponseWriter, r *http.Request) {
	cur := SessionFromContext(r.Context())
	targetID := chi.URLParam(r, "accountID")

	if err := s.admin.SuspendAccount(r.Context(), cur, targetID); err != nil {
		s.rejectAdmin(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReactivateAccount(w http.ResponseWriter, r *http.Request) {
	cur := SessionFromContext(r.Context())
	targetID := chi.URLParam(r, "accountID")

	if err := s.admin.ReactivateAccount(r.Context(), cur, targetID); err != nil {
		s.rejectAdmin(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	cur := SessionFromContext(r.Context())

	list, err := s.admin.ListAccounts(r.Context(), cur)
	if err != nil {
		s.rejectAdmin(w, r, err)
		return
	}
	out := make([]accountPayload, len(list))
	for i, a := range list {
		out[i] = accountToPayload(a)
	}
	respondJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

func (s *Server) rejectAdmin(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authority.ErrForbidden):
		respondError(w, http.StatusForbidden, codeForbidden, "organization admin role required")
	case errors.Is(err, accountservice.ErrSelfTarget):
		respondError(w, http.StatusBadRequest, codeBadRequest, "cannot act on own account")
	case errors.Is(err, accountservice.ErrAccountNotFound):
		respondError(w, http.StatusNotFound, codeNotFound, "account not found")
	default:
		s.logger.Error("admin action failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		respondError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
