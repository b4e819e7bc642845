package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the durable identity record every request is ultimately
// authenticated as. The unique constraints on email, student_id and
// invitation_token live in the migration and are the authoritative backstop
// against concurrent duplicate creation.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name         string    `bun:"name,notnull" json:"name,omitempty"`
	Email        string    `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash string    `bun:"password_hash" json:"-"`
	Role         Role      `bun:"user_role,notnull" json:"role,omitempty"`

	// StudentID is set iff Role == RoleGraduateStudent.
	StudentID *string `bun:"student_id,unique,nullzero" json:"student_id,omitempty"`

	// InvitationToken and InvitationExpires are set only while the account is
	// pending activation; both are cleared atomically with IsActive flipping
	// to true.
	InvitationToken   *string    `bun:"invitation_token,unique,nullzero" json:"-"`
	InvitationExpires *time.Time `bun:"invitation_expires,nullzero" json:"-"`

	IsActive bool `bun:"is_active,notnull,default:false" json:"is_active"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// PrincipalID returns the stable identifier used as the token subject.
func (u *User) PrincipalID() string {
	return u.ID.String()
}

// PrincipalRole returns the account role.
func (u *User) PrincipalRole() string {
	return string(u.Role)
}

// PrincipalEmail returns the account email.
func (u *User) PrincipalEmail() string {
	return u.Email
}

// Pending reports whether the account still awaits invitation completion.
func (u *User) Pending() bool {
	return !u.IsActive && u.InvitationToken != nil
}

// InvitationValidAt checks the token window against the given instant.
func (u *User) InvitationValidAt(now time.Time) bool {
	return u.Pending() && u.InvitationExpires != nil && u.InvitationExpires.After(now)
}

// InvitationPreview is the read-only view returned by invitation
// verification. It never exposes the token or any secret material.
type InvitationPreview struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Preview builds the invitation preview for a pending user.
func (u *User) Preview() *InvitationPreview {
	return &InvitationPreview{
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
