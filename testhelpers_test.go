package auth_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/ToffDarell/CPAG-Graduates-Research-Monitoring-System-sub001"
)

const sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    password_hash TEXT,
    user_role TEXT NOT NULL,
    student_id TEXT,
    invitation_token TEXT,
    invitation_expires TIMESTAMP NULL,
    is_active BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT uq_users_email UNIQUE (email),
    CONSTRAINT uq_users_student_id UNIQUE (student_id),
    CONSTRAINT uq_users_invitation_token UNIQUE (invitation_token)
);`

func setupRepoManager(t *testing.T) (auth.RepositoryManager, func()) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(sqliteCreateUsers)
	require.NoError(t, err)

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return auth.NewRepositoryManager(bunDB), cleanup
}

func seedActiveUser(t *testing.T, repo auth.RepositoryManager, email, password string, role auth.Role) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := &auth.User{
		Name:         auth.EmailLocalPart(email),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if auth.IsStudentRole(role) {
		sid := "S-" + auth.EmailLocalPart(email)
		user.StudentID = &sid
	}

	created, err := repo.Users().Register(context.Background(), user)
	require.NoError(t, err)

	return created
}

func seedInvitedUser(t *testing.T, repo auth.RepositoryManager, email string, role auth.Role, expires time.Time) (*auth.User, string) {
	t.Helper()

	token := auth.NewInvitationToken()
	user := &auth.User{
		Name:              auth.EmailLocalPart(email),
		Email:             email,
		Role:              role,
		IsActive:          false,
		InvitationToken:   &token,
		InvitationExpires: &expires,
	}
	if auth.IsStudentRole(role) {
		sid := "S-" + auth.EmailLocalPart(email)
		user.StudentID = &sid
	}

	created, err := repo.Users().Register(context.Background(), user)
	require.NoError(t, err)

	return created, token
}

// stubCaptcha is a CaptchaVerifier with a fixed verdict.
type stubCaptcha struct {
	ok bool
}

func (s stubCaptcha) Verify(context.Context, string, string) bool { return s.ok }

// stubIdentity returns a fixed payload or error for any credential.
type stubIdentity struct {
	payload *auth.IdentityPayload
	err     error
}

func (s stubIdentity) Verify(context.Context, string) (*auth.IdentityPayload, error) {
	return s.payload, s.err
}
