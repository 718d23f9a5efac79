package domain

import "time"

// Role codes carried in the token. Roles are flat; only RoleAdmin grants a capability.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Claims is the verified identity extracted from a session token. It is the only
// input to authorization decisions and is passed explicitly to every service call.
type Claims struct {
	UserID     string
	Email      string
	FirstName  string
	LastName   string
	Role       string
	Family     Membership
	FamilyName string
	ExpiresAt  time.Time
}

// IsGlobalAdmin reports whether the caller holds the global admin capability.
func (c Claims) IsGlobalAdmin() bool {
	return c.Role == RoleAdmin
}
