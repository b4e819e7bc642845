package auth

import (
	"strings"
)

const (
	// StaffDomain is the institutional suffix for staff accounts.
	StaffDomain = "@buksu.edu.ph"
	// StudentDomain is the institutional suffix for graduate students.
	StudentDomain = "@student.buksu.edu.ph"
)

// AllowedEmail reports whether the address belongs to one of the two
// institutional domains. Matching is case-insensitive on the domain part.
func AllowedEmail(email string) bool {
	return IsStudentEmail(email) || IsStaffEmail(email)
}

// IsStudentEmail reports whether the address is on the student domain.
func IsStudentEmail(email string) bool {
	return strings.HasSuffix(strings.ToLower(email), StudentDomain)
}

// IsStaffEmail reports whether the address is on the staff domain. The
// student domain is checked first since it is a suffix superset match hazard
// only the other way around; @student.buksu.edu.ph does not end in the bare
// staff suffix.
func IsStaffEmail(email string) bool {
	return strings.HasSuffix(strings.ToLower(email), StaffDomain) && !IsStudentEmail(email)
}

// DomainRole returns the role the email domain binds: student addresses are
// always graduate students, staff addresses have no single bound role.
func DomainRole(email string) (Role, bool) {
	if IsStudentEmail(email) {
		return RoleGraduateStudent, true
	}
	return "", false
}

// ResolveRole applies the institutional role/domain consistency policy to a
// declared role:
//
//  1. addresses outside both domains are rejected,
//  2. a student address forces graduate student and rejects staff claims,
//  3. a staff address rejects the graduate student claim rather than
//     silently force-assigning it.
//
// The returned role is the one a new account must be created with.
func ResolveRole(email string, declared Role) (Role, error) {
	switch {
	case IsStudentEmail(email):
		if declared != "" && !IsStudentRole(declared) {
			return "", ErrRoleDomainConflict
		}
		return RoleGraduateStudent, nil
	case IsStaffEmail(email):
		if IsStudentRole(declared) {
			return "", ErrRoleDomainConflict
		}
		if declared == "" || !IsValidRole(declared) {
			return "", ErrRoleDomainConflict
		}
		return declared, nil
	default:
		return "", ErrDomainNotAllowed
	}
}

// EmailLocalPart returns the part before '@', used as the display-name
// fallback for OAuth sign-ins that carry no name claim.
func EmailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
