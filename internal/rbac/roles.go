package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner      = "owner"
	RoleAgent      = "agent"
	RoleSupervisor = "supervisor"
	RoleSuperAdmin = "super_admin"

	// RoleTelephonyOperator is a hidden role for provider-side integration
	// tooling. Denied everywhere unless a route allows it explicitly.
	RoleTelephonyOperator = "telephony_operator"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsHiddenRole(role string) bool { return role == RoleTelephonyOperator }
