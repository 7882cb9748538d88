package models

// Roles recognized by the application. Role is stored on the user document,
// which is the single authoritative source; the session layer re-reads it on
// every request so role changes take effect immediately.
const (
	RoleAdmin  = "admin"
	RoleLeader = "leader"
	RoleUser   = "user"
)

// ValidRole reports whether s is one of the recognized roles.
func ValidRole(s string) bool {
	switch s {
	case RoleAdmin, RoleLeader, RoleUser:
		return true
	}
	return false
}
