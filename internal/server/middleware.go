package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hrbotdev/hrbot/internal/api"
	"github.com/hrbotdev/hrbot/internal/identity"
	"github.com/hrbotdev/hrbot/internal/store"
)

// requestLogger logs one line per request with status and duration.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote", r.RemoteAddr)
		})
	}
}

// corsMiddleware grants the configured browser origins access with
// credentials. Non-browser callers pass through untouched.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowed[origin] {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Vary", "Origin")

				if r.Method == http.MethodOptions {
					h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
					h.Set("Access-Control-Max-Age", "300")
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authMiddleware authenticates requests via the encrypted auth cookie
// or a bearer token and attaches the user to the request context.
func authMiddleware(users store.UserStore, cookies *identity.CookieCodec, issuer *identity.TokenIssuer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := cookies.Token(r)
			if err != nil {
				if !errors.Is(err, identity.ErrNoCredentials) {
					logger.Debug("credential extraction failed", "error", err)
				}
				api.WriteUnauthenticated(w, "authentication required")
				return
			}

			userID, err := issuer.Verify(token)
			if err != nil {
				api.WriteUnauthenticated(w, "invalid or expired session")
				return
			}

			user, err := users.GetUser(r.Context(), userID)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					logger.Error("user load failed", "user_id", userID, "error", err)
				}
				api.WriteUnauthenticated(w, "invalid or expired session")
				return
			}

			next.ServeHTTP(w, r.WithContext(api.WithUser(r.Context(), user)))
		})
	}
}
