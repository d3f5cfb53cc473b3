package auth

import (
	"regexp"
	"strings"
)

// Role is a user's global role.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleTeamLeader Role = "TEAM_LEADER"
	RoleMember     Role = "MEMBER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeamLeader, RoleMember:
		return true
	}
	return false
}

// Principal is the verified identity carried by a bearer token. It is built
// once by the auth middleware and handed explicitly to the code that needs it.
type Principal struct {
	Username string
	Role     Role
	// Token is the raw bearer token, relayed on calls to peer services.
	Token string
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,50}$`)

// ValidUsername reports whether name has the shape of a registrable
// username. Reserved path words such as "me" and dot segments are too short
// or contain no other characters, so they never match.
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name) && strings.Trim(name, ".") != ""
}
