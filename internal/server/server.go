// Package server assembles the HTTP router and runs the listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hrbotdev/hrbot/internal/api"
	"github.com/hrbotdev/hrbot/internal/config"
	"github.com/hrbotdev/hrbot/internal/identity"
	"github.com/hrbotdev/hrbot/internal/store"
)

// Handlers are the route handlers the server mounts.
type Handlers struct {
	Auth      *api.AuthHandler
	Companies *api.CompanyHandler
	Slack     *api.SlackHandler
	MCP       *api.MCPHandler
}

// AuthDeps back the authentication middleware.
type AuthDeps struct {
	Users   store.UserStore
	Cookies *identity.CookieCodec
	Issuer  *identity.TokenIssuer
}

// Server is the HTTP front of the service.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds the router and the http.Server around it.
func New(cfg *config.Config, handlers Handlers, auth AuthDeps, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	r.Get("/", api.Health)
	r.Get("/health", api.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Webhooks and machine callers authenticate out of band.
		r.Post("/auth/register", handlers.Auth.Register)
		r.Post("/auth/login", handlers.Auth.Login)
		r.Post("/slack/events", handlers.Slack.Events)
		r.Route("/mcp", func(r chi.Router) {
			r.Post("/on_tagged_in_channel", handlers.MCP.OnTaggedInChannel)
			r.Post("/on_dm_personally", handlers.MCP.OnDMPersonally)
			r.Get("/health", handlers.MCP.Health)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(auth.Users, auth.Cookies, auth.Issuer, logger))

			r.Post("/auth/logout", handlers.Auth.Logout)
			r.Get("/auth/me", handlers.Auth.Me)

			r.Route("/companies", func(r chi.Router) {
				r.Post("/", handlers.Companies.Create)
				r.Get("/", handlers.Companies.List)
				r.Route("/{name}", func(r chi.Router) {
					r.Get("/", handlers.Companies.Get)
					r.Put("/", handlers.Companies.Update)
					r.Delete("/", handlers.Companies.Delete)
					r.Post("/import-employees", handlers.Companies.ImportEmployees)
					r.Get("/employees", handlers.Companies.Employees)
				})
			})
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start blocks serving requests until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
