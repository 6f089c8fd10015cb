package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hrbotdev/hrbot/internal/identity"
	"github.com/hrbotdev/hrbot/internal/store"
)

// AuthHandler serves registration, login, logout, and the current-user
// endpoint.
type AuthHandler struct {
	users    store.UserStore
	issuer   *identity.TokenIssuer
	cookies  *identity.CookieCodec
	tokenTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthHandler creates an AuthHandler. tokenTTL is the access token
// lifetime without remember_me.
func NewAuthHandler(users store.UserStore, issuer *identity.TokenIssuer, cookies *identity.CookieCodec, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		issuer:   issuer,
		cookies:  cookies,
		tokenTTL: tokenTTL,
		logger:   logger,
		now:      time.Now,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteValidationError(w, err.Error())
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	switch {
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		WriteValidationError(w, "a valid email is required")
		return
	case req.Name == "":
		WriteValidationError(w, "name is required")
		return
	case len(req.Password) < 8:
		WriteValidationError(w, "password must be at least 8 characters")
		return
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("password hashing failed", "error", err)
		WriteInternalError(w, "could not register user")
		return
	}

	user := &store.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
	}
	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			WriteConflict(w, "email already registered")
			return
		}
		h.logger.Error("create user failed", "error", err)
		WriteInternalError(w, "could not register user")
		return
	}

	WriteJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type loginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        *store.User `json:"user"`
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteValidationError(w, err.Error())
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.logger.Error("user lookup failed", "error", err)
		}
		WriteUnauthenticated(w, "invalid email or password")
		return
	}
	if err := identity.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		WriteUnauthenticated(w, "invalid email or password")
		return
	}

	ttl := h.tokenTTL
	if req.RememberMe {
		ttl = identity.RememberMeTTL
	}
	token, err := h.issuer.Issue(user.ID, ttl)
	if err != nil {
		h.logger.Error("token issue failed", "error", err)
		WriteInternalError(w, "could not log in")
		return
	}
	if err := h.cookies.Set(w, token, req.RememberMe, ttl); err != nil {
		h.logger.Error("auth cookie write failed", "error", err)
		WriteInternalError(w, "could not log in")
		return
	}

	now := h.now()
	user.LastLogin = &now
	if err := h.users.UpdateUser(r.Context(), user); err != nil {
		h.logger.Warn("last_login update failed", "user_id", user.ID, "error", err)
	}

	WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	})
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		WriteUnauthenticated(w, "not authenticated")
		return
	}
	WriteJSON(w, http.StatusOK, user)
}
