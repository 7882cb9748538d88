// Package authz maps roles to the capabilities the API enforces. Role checks
// in middleware gate whole routes; Permissions answers the finer-grained
// questions handlers and clients ask.
package authz

import (
	"github.com/iliyababin/youthscc/internal/domain/models"
)

// Permissions is the capability set for a role. It is returned verbatim to
// clients so the UI can hide controls the server would reject anyway.
type Permissions struct {
	CanCreateBibleStudyGroups bool `json:"canCreateBibleStudyGroups"`
	CanUpdateBibleStudyGroups bool `json:"canUpdateBibleStudyGroups"`
	CanDeleteBibleStudyGroups bool `json:"canDeleteBibleStudyGroups"`
	CanManageUsers            bool `json:"canManageUsers"`
}

// PermissionsFor returns the capabilities of a role. Unknown or empty roles
// get no capabilities.
func PermissionsFor(role string) Permissions {
	switch role {
	case models.RoleAdmin:
		return Permissions{
			CanCreateBibleStudyGroups: true,
			CanUpdateBibleStudyGroups: true,
			CanDeleteBibleStudyGroups: true,
			CanManageUsers:            true,
		}
	case models.RoleLeader:
		return Permissions{
			CanCreateBibleStudyGroups: true,
			CanUpdateBibleStudyGroups: true,
			CanDeleteBibleStudyGroups: true,
		}
	default:
		return Permissions{}
	}
}
