// Package server is the HTTP boundary: it maps requests to the session
// authority, the identity bootstrap, and account administration, and maps
// their rejections to distinct caller-facing error codes.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	accountservice "session-authority/internal/account/service"
	"session-authority/internal/authority"
	"session-authority/internal/config"
	identityservice "session-authority/internal/identity/service"
)

// Server is the session authority's REST API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	cfg       *config.Config
	authority *authority.Service
	bootstrap *identityservice.BootstrapService
	admin     *accountservice.AdminService
}

// New creates a Server with all routes registered.
func New(cfg *config.Config, auth *authority.Service, bootstrap *identityservice.BootstrapService, admin *accountservice.AdminService, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		cfg:       cfg,
		authority: auth,
		bootstrap: bootstrap,
		admin:     admin,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/bootstrap", s.handleBootstrap)
			r.Post("/session/override", s.handleOverride)
			r.Post("/logout", s.handleLogout)
		})

		// Everything below requires a valid session.
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/session", s.handleCurrentSession)
			r.Route("/admin/accounts", func(r chi.Router) {
				r.Get("/", s.handleListAccounts)
				r.Post("/{accountID}/suspend", s.handleSuspendAccount)
				r.Post("/{accountID}/reactivate", s.handleReactivateAccount)
			})
		})
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}
