package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Available user roles
const (
	RoleAdmin     = "admin"
	RoleLeadGuide = "lead-guide"
	RoleGuide     = "guide"
	RoleUser      = "user"
)

// Roles lists every known role
var Roles = []string{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin}

// Claims represents the authorization claims transmitted via a JWT
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewClaims constructs a Claims value for the identified user
func NewClaims(subject, role string, now time.Time, expires time.Duration) Claims {
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expires)),
		},
	}
}

// HasRole returns true if role is one of the provided roles.
func HasRole(role string, roles ...string) bool {
	for _, want := range roles {
		if role == want {
			return true
		}
	}
	return false
}

// IssuedAtTime returns token issue time, zero time if it is not set
func (c Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
