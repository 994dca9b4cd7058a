package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"session-authority/internal/authority"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeySession   ctxKey = "current_session"
)

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// SessionFromContext extracts the validated session from context. Only set
// by requireSession; handlers behind it can rely on a non-nil value.
func SessionFromContext(ctx context.Context) *authority.CurrentSession {
	if cur, ok := ctx.Value(ctxKeySession).(*authority.CurrentSession); ok {
		return cur
	}
	return nil
}

// requestIDMiddleware generates a request_id and stores it in context.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := requestID()
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs HTTP requests at INFO level (method, path, status, duration).
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
				"request_id", RequestIDFromContext(r.Context()),
			)
		})
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// requireSession validates the session cookie and stores the validated
// session in the request context. Every rejection kind maps to its own error
// code; dead cookies (revoked, timed out, not found) are cleared so the
// client stops presenting them.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur, err := s.authority.Validate(r.Context(), s.sessionIDFromRequest(r))
		if err != nil {
			s.rejectSession(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, cur)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) rejectSession(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authority.ErrNoSession):
		respondError(w, http.StatusUnauthorized, codeNoSession, "no session presented")
	case errors.Is(err, authority.ErrSessionNotFound):
		s.clearSessionCookie(w)
		respondError(w, http.StatusUnauthorized, codeNotFound, "session not found")
	case errors.Is(err, authority.ErrSessionRevoked):
		s.clearSessionCookie(w)
		respondError(w, http.StatusUnauthorized, codeRevoked, "session has been revoked")
	case errors.Is(err, authority.ErrSessionTimedOut):
		s.clearSessionCookie(w)
		respondError(w, http.StatusUnauthorized, codeTimedOut, "session timed out due to inactivity")
	case errors.Is(err, authority.ErrAccountSuspended):
		s.clearSessionCookie(w)
		respondError(w, http.StatusForbidden, codeAccountSuspended, "account is suspended")
	default:
		s.logger.Error("session validation failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		respondError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func (s *Server) sessionIDFromRequest(r *http.Request) string {
	c, err := r.Cookie(s.cfg.SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}
