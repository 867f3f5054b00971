package httpx

import (
	"context"

	domainauth "github.com/calluna-labs/authgate/internal/domain/auth"
)

// userKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type userKey struct{}

// SetUserInContext returns a child context that carries the resolved user.
// If user is nil, the original ctx is returned unchanged.
func SetUserInContext(ctx context.Context, user *domainauth.User) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated user from context and a boolean
// indicating presence. Only the gate middleware populates it; handlers must
// treat absence as an unauthenticated request.
func UserFromContext(ctx context.Context) (*domainauth.User, bool) {
	if user, ok := ctx.Value(userKey{}).(*domainauth.User); ok && user != nil {
		return user, true
	}
	return nil, false
}

// IsAdminRequest reports whether the current request context carries an
// admin user.
func IsAdminRequest(ctx context.Context) bool {
	user, ok := UserFromContext(ctx)
	return ok && user.IsAdmin()
}
