package auth

import (
	"context"
	"strings"
)

type ctxKey string

const (
	identityIDKey ctxKey = "auth_identity_id"
	roleKey       ctxKey = "auth_role"
)

// ContextWithIdentity stores the authenticated identity in the context.
func ContextWithIdentity(ctx context.Context, identityID string, role Role) context.Context {
	ctx = context.WithValue(ctx, identityIDKey, strings.TrimSpace(identityID))
	if role.Valid() {
		ctx = context.WithValue(ctx, roleKey, role)
	}
	return ctx
}

// IdentityIDFromContext extracts the authenticated identity id.
func IdentityIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(identityIDKey).(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// RoleFromContext returns the authenticated role, RoleUser when none
// is stored.
func RoleFromContext(ctx context.Context) Role {
	if v, ok := ctx.Value(roleKey).(Role); ok && v.Valid() {
		return v
	}
	return RoleUser
}
