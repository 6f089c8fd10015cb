package api

import (
	"context"

	"github.com/hrbotdev/hrbot/internal/store"
)

type contextKey int

const userKey contextKey = iota

// WithUser attaches the authenticated user to the context.
func WithUser(ctx context.Context, user *store.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or nil outside the
// auth middleware.
func UserFromContext(ctx context.Context) *store.User {
	user, _ := ctx.Value(userKey).(*store.User)
	return user
}
