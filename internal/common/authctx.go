package common

import "context"

type ctxKey string

const (
	userIDKey   ctxKey = "auth/user-id"
	userRoleKey ctxKey = "auth/user-role"
	userMailKey ctxKey = "auth/user-email"
)

// Principal is the authenticated admin attached to a request.
type Principal struct {
	ID    string
	Email string
	Role  string
}

// WithPrincipal stores the authenticated admin on the provided context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, userIDKey, p.ID)
	ctx = context.WithValue(ctx, userRoleKey, p.Role)
	return context.WithValue(ctx, userMailKey, p.Email)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// UserRole returns the role claim of the authenticated user.
func UserRole(ctx context.Context) string {
	role, _ := ctx.Value(userRoleKey).(string)
	return role
}

// CurrentPrincipal rebuilds the principal from the context values.
func CurrentPrincipal(ctx context.Context) (Principal, bool) {
	id, ok := UserID(ctx)
	if !ok {
		return Principal{}, false
	}
	email, _ := ctx.Value(userMailKey).(string)
	return Principal{ID: id, Email: email, Role: UserRole(ctx)}, true
}
