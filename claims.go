package portal

import (
	"github.com/golang-jwt/jwt/v5"
)

// IdentityFromToken extracts a best-effort identity from a bearer token that
// happens to be a JWT. The signature is NOT verified; the result is only used
// as cached display/navigation identity, never as an authorization decision.
// Returns nil for opaque tokens or tokens without usable claims.
func IdentityFromToken(token string) *User {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}

	user := &User{}

	if uid, ok := claims["uid"].(string); ok && uid != "" {
		user.ID = uid
	} else if sub, ok := claims["sub"].(string); ok {
		user.ID = sub
	}

	for _, key := range []string{"full_name", "fullName", "name"} {
		if name, ok := claims[key].(string); ok && name != "" {
			user.FullName = name
			break
		}
	}

	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}

	switch role := claims["role"].(type) {
	case string:
		if parsed, ok := ParseRole(role); ok {
			user.Role = parsed
		}
	case float64:
		// Numeric claim mirrors the registration wire encoding.
		if parsed, ok := RoleFromCode(int(role)); ok {
			user.Role = parsed
		}
	}

	if user.ID == "" && user.FullName == "" && user.Role == "" {
		return nil
	}

	return user
}
