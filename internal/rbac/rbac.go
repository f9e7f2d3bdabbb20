// Package rbac maps roles to the coarse actions the API gates on.
package rbac

const (
	RoleAdmin    = "admin"
	RoleDesigner = "designer"
	RoleClient   = "client"
	RoleVendor   = "vendor"
)

const (
	ActionRead    = "read"
	ActionWrite   = "write"
	ActionApprove = "approve"
	ActionAdmin   = "admin"
)

var grants = map[string]map[string]bool{
	RoleAdmin: {
		ActionRead:    true,
		ActionWrite:   true,
		ActionApprove: true,
		ActionAdmin:   true,
	},
	RoleDesigner: {
		ActionRead:  true,
		ActionWrite: true,
	},
	RoleClient: {
		ActionRead:    true,
		ActionApprove: true,
	},
	RoleVendor: {
		ActionRead: true,
	},
}

// Can reports whether the role is granted the action.
func Can(role, action string) bool {
	return grants[role][action]
}

// KnownRole reports whether the role exists in the grant table.
func KnownRole(role string) bool {
	_, ok := grants[role]
	return ok
}
