package models

// Capability names an operation gated by role.
type Capability string

const (
	CapExamsManage     Capability = "exams:manage"
	CapQuestionsManage Capability = "questions:manage"
	CapUsersRead       Capability = "users:read"
	CapUsersManage     Capability = "users:manage"
	CapUsersChangeRole Capability = "users:change_role"
	CapUsersDelete     Capability = "users:delete"
	CapProgressReadAny Capability = "progress:read_any"
	CapAuditRead       Capability = "audit:read"
)

var roleCapabilities = map[UserRole]map[Capability]struct{}{
	RoleStudent: {},
	RoleTutor:   capSet(CapProgressReadAny, CapUsersRead),
	RoleTeacher: capSet(CapProgressReadAny, CapUsersRead),
	RoleAdmin: capSet(
		CapExamsManage,
		CapQuestionsManage,
		CapUsersRead,
		CapUsersManage,
		CapProgressReadAny,
		CapAuditRead,
	),
	RoleSuperAdmin: capSet(
		CapExamsManage,
		CapQuestionsManage,
		CapUsersRead,
		CapUsersManage,
		CapUsersChangeRole,
		CapUsersDelete,
		CapProgressReadAny,
		CapAuditRead,
	),
}

func capSet(caps ...Capability) map[Capability]struct{} {
	out := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		out[c] = struct{}{}
	}
	return out
}

// Can reports whether the role grants the capability. Unknown roles grant nothing.
func (r UserRole) Can(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, ok = caps[c]
	return ok
}

// Can reports whether an active user holds the capability.
func (u *User) Can(c Capability) bool {
	if u == nil || !u.IsActive() {
		return false
	}
	return u.Role.Can(c)
}

// IsStaff reports whether the role may enter the admin panel at all.
func (r UserRole) IsStaff() bool {
	return r.Can(CapUsersRead)
}
