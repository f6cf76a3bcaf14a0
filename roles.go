package portal

import "strings"

// Role is the portal-wide user role attribute used for navigation gating.
// Authorization proper is enforced server-side; the client only decides
// whether a navigation target is worth attempting.
type Role string

const (
	RolePatient Role = "Patient"
	RoleDoctor  Role = "Doctor"
	RoleAdmin   Role = "Admin"
)

// roleCodes is the wire encoding the registration endpoint expects.
var roleCodes = map[Role]int{
	RolePatient: 1,
	RoleDoctor:  2,
	RoleAdmin:   3,
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	_, ok := roleCodes[r]
	return ok
}

// Code returns the integer wire encoding for the role, 0 if invalid.
func (r Role) Code() int {
	return roleCodes[r]
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(min Role) bool {
	current, ok := roleCodes[r]
	if !ok {
		return false
	}
	required, ok := roleCodes[min]
	if !ok {
		return false
	}
	return current >= required
}

// In reports whether the role is part of the given allow-list.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// AllRoles returns all predefined roles in hierarchical order
func AllRoles() []Role {
	return []Role{RolePatient, RoleDoctor, RoleAdmin}
}

// ParseRole safely parses a string into a Role. Matching is case insensitive
// so API variants like "doctor" still resolve.
func ParseRole(roleStr string) (Role, bool) {
	for role := range roleCodes {
		if strings.EqualFold(string(role), roleStr) {
			return role, true
		}
	}
	return "", false
}

// RoleFromCode resolves the integer wire encoding back into a Role.
func RoleFromCode(code int) (Role, bool) {
	for role, c := range roleCodes {
		if c == code {
			return role, true
		}
	}
	return "", false
}
