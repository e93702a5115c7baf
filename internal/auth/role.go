package auth

// Role is the closed set of member types.  The value is stored verbatim in
// the users.member_type column and echoed in API responses, so the constants
// must stay stable.
type Role string

const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleDistributor Role = "DISTRIBUTOR"
	RoleAgent       Role = "AGENT"
	RoleGeneral     Role = "GENERAL"
)

// ParseRole maps a stored string back onto the closed Role set.  Unknown
// values return false so callers can treat corrupted rows as invalid rather
// than silently granting a role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleSuperAdmin, RoleDistributor, RoleAgent, RoleGeneral:
		return Role(s), true
	}
	return "", false
}

// Assignment describes the account a given acting role is allowed to
// register: the role the new account receives and whether it inherits the
// actor's company scope.
type Assignment struct {
	Role           Role
	InheritCompany bool
}

// hierarchy is the registration derivation table.  An acting role absent
// from the table (GENERAL) may not register anyone.  Adding a role means
// adding a row here, not editing control flow.
var hierarchy = map[Role]Assignment{
	RoleSuperAdmin:  {Role: RoleDistributor, InheritCompany: false},
	RoleDistributor: {Role: RoleAgent, InheritCompany: true},
	RoleAgent:       {Role: RoleGeneral, InheritCompany: true},
}

// DeriveRegistration returns the assignment for an account created by the
// given acting role.  ok is false when the acting role has no downstream
// role to assign.
func DeriveRegistration(acting Role) (Assignment, bool) {
	a, ok := hierarchy[acting]
	return a, ok
}
