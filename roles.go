package auth

// Role is the closed set of institutional roles. It is a defined type, not
// an alias, so an unknown role string cannot cross a Role-typed boundary
// without an explicit conversion; ParseRole is the checked entry point.
type Role string

const (
	// RoleAdmin is the dean/administrator role.
	RoleAdmin Role = "admin"
	// RoleFacultyAdviser supervises graduate research.
	RoleFacultyAdviser Role = "faculty adviser"
	// RoleProgramHead manages a graduate program.
	RoleProgramHead Role = "program head"
	// RoleGraduateStudent is bound to the student email domain.
	RoleGraduateStudent Role = "graduate student"
)

// IsValidRole checks membership in the closed role set.
func IsValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleFacultyAdviser, RoleProgramHead, RoleGraduateStudent:
		return true
	default:
		return false
	}
}

// IsStudentRole reports whether the role denotes a student account.
func IsStudentRole(r Role) bool {
	return r == RoleGraduateStudent
}

// IsStaffRole reports whether the role denotes a staff account.
func IsStaffRole(r Role) bool {
	return IsValidRole(r) && r != RoleGraduateStudent
}

// ParseRole safely parses a string into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, IsValidRole(r)
}

// StaffRoles returns the roles assignable to @buksu.edu.ph accounts.
func StaffRoles() []Role {
	return []Role{RoleAdmin, RoleFacultyAdviser, RoleProgramHead}
}

// AllRoles returns every role in the closed set.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleFacultyAdviser, RoleProgramHead, RoleGraduateStudent}
}

// RoleIn is the membership test the authorization middleware uses. An empty
// allow list admits every valid role.
func RoleIn(r Role, allowed []Role) bool {
	if len(allowed) == 0 {
		return IsValidRole(r)
	}
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}
