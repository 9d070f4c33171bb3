package auth

import "context"

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleHR       = "hr"
)

const (
	PermDirectoryRead   = "directory.read"
	PermDirectoryWrite  = "directory.write"
	PermLeaveRead       = "leave.read"
	PermLeaveWrite      = "leave.write"
	PermLeaveApprove    = "leave.approve"
	PermCatalogRead     = "catalog.read"
	PermCatalogWrite    = "catalog.write"
	PermBalanceRead     = "balance.read"
	PermBalanceAdjust   = "balance.adjust"
	PermAttendanceRead  = "attendance.read"
	PermAttendanceWrite = "attendance.write"
	PermAuditRead       = "audit.read"
)

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermDirectoryRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermCatalogRead,
		PermBalanceRead,
		PermAttendanceRead,
		PermAttendanceWrite,
	},
	RoleManager: {
		PermDirectoryRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermCatalogRead,
		PermBalanceRead,
		PermAttendanceRead,
		PermAttendanceWrite,
	},
	RoleHR: {
		PermDirectoryRead,
		PermDirectoryWrite,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermCatalogRead,
		PermCatalogWrite,
		PermBalanceRead,
		PermBalanceAdjust,
		PermAttendanceRead,
		PermAttendanceWrite,
		PermAuditRead,
	},
}

// StaticPerms resolves permissions from the built-in role table. Roles are
// fixed, so no database round trip is involved.
type StaticPerms struct{}

func (StaticPerms) HasPermission(_ context.Context, role, permission string) (bool, error) {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}
