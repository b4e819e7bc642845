package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/ToffDarell/CPAG-Graduates-Research-Monitoring-System-sub001"
)

func TestUsersRegisterNormalizesEmail(t *testing.T) {
	repo, cleanup := setupRepoManager(t)
	defer cleanup()

	ctx := context.Background()

	created, err := repo.Users().Register(ctx, &auth.User{
		Name:         "Dean",
		Email:        "Dean@BUKSU.edu.ph",
		PasswordHash: "hash",
		Role:         auth.RoleAdmin,
		IsActive:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "dean@buksu.edu.ph", created.Email)
	assert.NotEmpty(t, created.ID)

	found, err := repo.Users().GetByEmail(ctx, "DEAN@buksu.edu.ph")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestUsersRegisterDuplicateEmail(t *testing.T) {
	repo, cleanup := setupRepoManager(t)
	defer cleanup()

	ctx := context.Background()
	seedActiveUser(t, repo, "dean@buksu.edu.ph", "password123", auth.RoleAdmin)

	_, err := repo.Users().Register(ctx, &auth.User{
		Name:         "Imposter",
		Email:        "dean@buksu.edu.ph",
		PasswordHash: "hash",
		Role:         auth.RoleProgramHead,
		IsActive:     true,
	})
	assert.ErrorIs(t, err, auth.ErrEmailAlreadyExists)
}

func TestUsersRegisterDuplicateStudentID(t *testing.T) {
	repo, cleanup := setupRepoManager(t)
	defer cleanup()

	ctx := context.Background()
	sid := "S123"

	_, err := repo.Users().Register(ctx, &auth.User{
		Name:      "Alice",
		Email:     "alice@student.buksu.edu.ph",
		Role:      auth.RoleGraduateStudent,
		StudentID: &sid,
		IsActive:  true,
	})
	require.NoError(t, err)

	_, err = repo.Users().Register(ctx, &auth.User{
		Name:      "Bob",
		Email:     "bob@student.buksu.edu.ph",
		Role:      auth.RoleGraduateStudent,
		StudentID: &sid,
		IsActive:  true,
	})
	assert.ErrorIs(t, err, auth.ErrStudentIDAlreadyExists)
}

func TestUsersGetByEmailNotFound(t *testing.T) {
	repo, cleanup := setupRepoManager(t)
	defer cleanup()

	_, err := repo.Users().GetByEmail(context.Background(), "ghost@buksu.edu.ph")
	assert.True(t, auth.IsRecordNotFound(err))
}

func TestUsersGetForSessionExcludesPasswordHash(t *testing.T) {
	repo, cleanup := setupRepoManager(t)
	defer cleanup()

	user := seedActiveUser(t, repo, "dean@buksu.edu.ph", "password123", auth.RoleAdmin)

	found, err := repo.Users().GetForSession(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, user.Email, found.Email)
	assert.Empty(t, found.PasswordHash)
}

func TestUsersGetByInvitationToken(t *testing.T) {
	repo, cleanup := setupRepoManager(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("unexpired token resolves", func(t *testing.T) {
		user, token := seedInvitedUser(t, repo, "new.adviser@buksu.edu.ph", auth.RoleFacultyAdviser, time.Now().Add(time.Hour))

		found, err := repo.Users().GetByInvitationToken(ctx, token, time.Now())
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("expired token does not resolve", func(t *testing.T) {
		_, token := seedInvitedUser(t, repo, "late.adviser@buksu.edu.ph", auth.RoleFacultyAdviser, time.Now().Add(-time.Hour))

		_, err := repo.Users().GetByInvitationToken(ctx, token, time.Now())
		assert.True(t, auth.IsRecordNotFound(err))
	})

	t.Run("unknown token does not resolve", func(t *testing.T) {
		_, err := repo.Users().GetByInvitationToken(ctx, "no-such-token", time.Now())
		assert.True(t, auth.IsRecordNotFound(err))
	})
}

func TestUsersCompleteInvitationSingleUse(t *testing.T) {
	repo, cleanup := setupRepoManager(t)
	defer cleanup()

	ctx := context.Background()
	_, token := seedInvitedUser(t, repo, "new.head@buksu.edu.ph", auth.RoleProgramHead, time.Now().Add(time.Hour))

	completed, err := repo.Users().CompleteInvitation(ctx, token, "new-hash", time.Now())
	require.NoError(t, err)
	assert.True(t, completed.IsActive)
	assert.Nil(t, completed.InvitationToken)
	assert.Nil(t, completed.InvitationExpires)
	assert.Equal(t, "new-hash", completed.PasswordHash)

	// The identical token must never complete twice, TTL notwithstanding.
	_, err = repo.Users().CompleteInvitation(ctx, token, "other-hash", time.Now())
	assert.True(t, auth.IsRecordNotFound(err))
}

func TestUsersCompleteInvitationConcurrentSingleWinner(t *testing.T) {
	repo, cleanup := setupRepoManager(t)
	defer cleanup()

	ctx := context.Background()
	_, token := seedInvitedUser(t, repo, "raced.head@buksu.edu.ph", auth.RoleProgramHead, time.Now().Add(time.Hour))

	// Two completions race on the same token; the conditional update must
	// admit exactly one of them.
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func(hash string) {
			_, err := repo.Users().CompleteInvitation(ctx, token, hash, time.Now())
			results <- err
		}("hash-" + string(rune('a'+i)))
	}

	var wins, losses int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			wins++
		case auth.IsRecordNotFound(err):
			losses++
		default:
			t.Fatalf("unexpected completion error: %v", err)
		}
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	winner, err := repo.Users().GetByEmail(ctx, "raced.head@buksu.edu.ph")
	require.NoError(t, err)
	assert.True(t, winner.IsActive)
	assert.Nil(t, winner.InvitationToken)
}

func TestUsersCompleteInvitationExpired(t *testing.T) {
	repo, cleanup := setupRepoManager(t)
	defer cleanup()

	_, token := seedInvitedUser(t, repo, "late.head@buksu.edu.ph", auth.RoleProgramHead, time.Now().Add(-time.Minute))

	_, err := repo.Users().CompleteInvitation(context.Background(), token, "new-hash", time.Now())
	assert.True(t, auth.IsRecordNotFound(err))
}

func TestUsersGetOrCreateByEmail(t *testing.T) {
	repo, cleanup := setupRepoManager(t)
	defer cleanup()

	ctx := context.Background()

	existing := seedActiveUser(t, repo, "dean@buksu.edu.ph", "password123", auth.RoleAdmin)

	// An existing record wins outright; its role is not overwritten.
	got, err := repo.Users().GetOrCreateByEmail(ctx, &auth.User{
		Name:         "Dean Again",
		Email:        "dean@buksu.edu.ph",
		Role:         auth.RoleFacultyAdviser,
		PasswordHash: "other",
		IsActive:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.ID)
	assert.Equal(t, auth.RoleAdmin, got.Role)

	created, err := repo.Users().GetOrCreateByEmail(ctx, &auth.User{
		Name:         "Newcomer",
		Email:        "newcomer@buksu.edu.ph",
		Role:         auth.RoleFacultyAdviser,
		PasswordHash: "hash",
		IsActive:     true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, existing.ID, created.ID)
	assert.Equal(t, auth.RoleFacultyAdviser, created.Role)
}
