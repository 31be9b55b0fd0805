// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Staff roles the admin surface recognizes. Role assignment lives with the
// auth service; this side only checks.
const (
	RoleOwner              = "owner"
	RoleManager            = "manager"
	RoleOperationalManager = "operational_manager"
	RoleChiefManager       = "chief_manager"
	RoleSuperAdmin         = "superadmin"
)

// Claims represents the JWT claims issued by the auth service.
type Claims struct {
	IdentityID     int64    `json:"identity_id"`
	Roles          []string `json:"roles,omitempty"`
	SessionPurpose string   `json:"session_purpose"`
	jwt.RegisteredClaims
}

// HasRole checks if the claims contain a specific role
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsStaff reports whether the identity holds any staff role.
func (c *Claims) IsStaff() bool {
	return c.HasRole(RoleManager) || c.HasRole(RoleOperationalManager) ||
		c.HasRole(RoleChiefManager) || c.HasRole(RoleSuperAdmin)
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		return !required
	}

	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}

	return false
}
