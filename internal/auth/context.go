package auth

import "context"

type contextKey string

const (
	contextKeySubject contextKey = "auth.subject"
	contextKeyName    contextKey = "auth.name"
	contextKeyRole    contextKey = "auth.role"
)

// WithIdentity stores auth identity details in context.
func WithIdentity(ctx context.Context, subject, name string, role Role) context.Context {
	ctx = context.WithValue(ctx, contextKeySubject, subject)
	ctx = context.WithValue(ctx, contextKeyName, name)
	ctx = context.WithValue(ctx, contextKeyRole, role)
	return ctx
}

// SubjectFromContext extracts subject from context.
func SubjectFromContext(ctx context.Context) string {
	return stringFromContext(ctx, contextKeySubject)
}

// NameFromContext extracts the display name from context.
func NameFromContext(ctx context.Context) string {
	return stringFromContext(ctx, contextKeyName)
}

// RoleFromContext extracts role from context.
func RoleFromContext(ctx context.Context) Role {
	if ctx == nil {
		return ""
	}
	value := ctx.Value(contextKeyRole)
	if role, ok := value.(Role); ok {
		return role
	}
	if role, ok := value.(string); ok {
		if normalized, valid := NormalizeRole(role); valid {
			return normalized
		}
	}
	return ""
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(key).(string); ok {
		return value
	}
	return ""
}
