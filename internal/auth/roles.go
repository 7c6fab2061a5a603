package auth

import "strings"

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleInstructor Role = "INSTRUCTOR"
	RoleStudent    Role = "STUDENT"
)

// AuthorityPrefix marks a role as a granted authority.
const AuthorityPrefix = "ROLE_"

// ParseRole maps a role name to a known Role. Matching ignores case and
// surrounding whitespace.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleInstructor:
		return RoleInstructor, true
	case RoleStudent:
		return RoleStudent, true
	default:
		return "", false
	}
}

// SelfAssignable reports whether a caller may request r through self-service.
func (r Role) SelfAssignable() bool {
	return r == RoleInstructor || r == RoleStudent
}

// Authority returns the authority label for a role value, prefixing it with
// ROLE_ unless it already carries the prefix.
func Authority(role string) string {
	role = strings.TrimSpace(role)
	if role == "" {
		return ""
	}
	if strings.HasPrefix(role, AuthorityPrefix) {
		return role
	}
	return AuthorityPrefix + role
}
