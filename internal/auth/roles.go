package auth

// Role represents a principal's platform role as asserted by the identity provider.
// Viewer and engineer access are decided by the access gate, not by the token.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// NormalizeRole validates and normalizes a role claim. An empty claim means user.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case "", RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// RoleAtLeast returns true when role satisfies required role.
func RoleAtLeast(role Role, required Role) bool {
	return roleRank(role) >= roleRank(required)
}

func roleRank(role Role) int {
	switch role {
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	default:
		return 0
	}
}
