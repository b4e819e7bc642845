package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CompleteInvitationSQL performs the activation transition as one
// conditional update: the password lands, the account activates and the
// token columns clear only when the token still matches and is unexpired.
// Zero rows back means another completion already won or the token is
// invalid; two concurrent completions can never both succeed.
var CompleteInvitationSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"is_active" = TRUE,
	"invitation_token" = NULL,
	"invitation_expires" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."invitation_token" = ?
AND (
	"usr"."invitation_expires" > ?
) RETURNING *;`

type Users interface {
	repository.Repository[*User]

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetForSession(ctx context.Context, id string) (*User, error)
	GetByInvitationToken(ctx context.Context, token string, now time.Time) (*User, error)
	GetByInvitationTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*User, error)
	GetOrCreateByEmail(ctx context.Context, record *User) (*User, error)
	GetOrCreateByEmailTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)

	CompleteInvitation(ctx context.Context, token, passwordHash string, now time.Time) (*User, error)
	CompleteInvitationTx(ctx context.Context, tx bun.IDB, token, passwordHash string, now time.Time) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

// RegisterTx creates the record and translates unique constraint violations
// into the duplicate errors the public contract names. The storage
// constraint, not the caller's existence pre-check, is authoritative.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)

	created, err := a.Repository.CreateTx(ctx, tx, user)
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return created, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
				"email": email,
			})
		}
		return nil, err
	}

	return record, nil
}

// GetForSession resolves the request principal by id with the secret column
// excluded from the projection.
func (a *users) GetForSession(ctx context.Context, id string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		ExcludeColumn("password_hash").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
				"id": id,
			})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByInvitationToken(ctx context.Context, token string, now time.Time) (*User, error) {
	return a.GetByInvitationTokenTx(ctx, a.db, token, now)
}

// GetByInvitationTokenTx resolves a pending account by token. Absent and
// expired look identical to the caller.
func (a *users) GetByInvitationTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.invitation_token = ?", token).
		Where("?TableAlias.invitation_expires > ?", now).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetOrCreateByEmail(ctx context.Context, record *User) (*User, error) {
	return a.GetOrCreateByEmailTx(ctx, a.db, record)
}

// GetOrCreateByEmailTx is the OAuth upsert: an existing record wins outright,
// its role is never overwritten on repeat sign-in.
func (a *users) GetOrCreateByEmailTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	user, err := a.GetByEmailTx(ctx, tx, record.Email)
	if err == nil {
		return user, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return a.RegisterTx(ctx, tx, record)
}

func (a *users) CompleteInvitation(ctx context.Context, token, passwordHash string, now time.Time) (*User, error) {
	return a.CompleteInvitationTx(ctx, a.db, token, passwordHash, now)
}

func (a *users) CompleteInvitationTx(ctx context.Context, tx bun.IDB, token, passwordHash string, now time.Time) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, CompleteInvitationSQL, passwordHash, token, now)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound()
	}

	return res[0], nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Email = strings.ToLower(strings.TrimSpace(record.Email))

	if record.Name == "" {
		record.Name = EmailLocalPart(record.Email)
	}
}

// IsRecordNotFound re-exports the repository check so callers outside the
// storage layer do not import the repository package for one predicate.
func IsRecordNotFound(err error) bool {
	return repository.IsRecordNotFound(err)
}

// mapUniqueViolation converts driver-level unique constraint failures into
// the taxonomy. Column matching is by name since drivers word the message
// differently.
func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique") && !strings.Contains(msg, "duplicate") {
		return err
	}

	switch {
	case strings.Contains(msg, "student_id"):
		return ErrStudentIDAlreadyExists
	case strings.Contains(msg, "email"):
		return ErrEmailAlreadyExists
	default:
		return ErrEmailAlreadyExists
	}
}
