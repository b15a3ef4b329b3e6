package auth

import "github.com/golang-jwt/jwt/v5"

// RoleAdmin is the only role allowed on the back-office routes.
const RoleAdmin = "admin"

// Claims is the typed payload of a back-office bearer token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token grants back-office access.
func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}
