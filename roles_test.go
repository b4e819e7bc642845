package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/ToffDarell/CPAG-Graduates-Research-Monitoring-System-sub001"
)

func TestIsValidRole(t *testing.T) {
	for _, r := range auth.AllRoles() {
		assert.True(t, auth.IsValidRole(r), r)
	}

	assert.False(t, auth.IsValidRole("superuser"))
	assert.False(t, auth.IsValidRole(""))
	assert.False(t, auth.IsValidRole("Admin"))
}

func TestParseRole(t *testing.T) {
	role, ok := auth.ParseRole("program head")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleProgramHead, role)

	_, ok = auth.ParseRole("janitor")
	assert.False(t, ok)
}

func TestStaffRolesExcludeStudent(t *testing.T) {
	for _, r := range auth.StaffRoles() {
		assert.True(t, auth.IsStaffRole(r))
		assert.False(t, auth.IsStudentRole(r))
	}

	assert.True(t, auth.IsStudentRole(auth.RoleGraduateStudent))
	assert.False(t, auth.IsStaffRole(auth.RoleGraduateStudent))
}

func TestRoleIn(t *testing.T) {
	t.Run("empty allow list admits any valid role", func(t *testing.T) {
		for _, r := range auth.AllRoles() {
			assert.True(t, auth.RoleIn(r, nil))
		}
		assert.False(t, auth.RoleIn("superuser", nil))
	})

	t.Run("explicit allow list", func(t *testing.T) {
		allowed := []auth.Role{auth.RoleProgramHead}
		assert.True(t, auth.RoleIn(auth.RoleProgramHead, allowed))
		assert.False(t, auth.RoleIn(auth.RoleGraduateStudent, allowed))
	})
}
