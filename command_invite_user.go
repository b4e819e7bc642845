package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// DefaultInvitationTTL is the validity window of an invitation token.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// InviteUserMessage creates a pending account that the invitee activates by
// setting their own password. No credential ever travels over email on this
// path; the token is the only secret, and it is single use.
type InviteUserMessage struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	StudentID string `json:"student_id"`

	OnResponse func(user *User)
}

func (e InviteUserMessage) Type() string { return "user.invite" }

type InviteUserHandler struct {
	repo   RepositoryManager
	mailer Mailer
	logger Logger
	ttl    time.Duration
	now    func() time.Time
}

// NewInviteUserHandler creates a handler with sane defaults.
func NewInviteUserHandler(repo RepositoryManager) *InviteUserHandler {
	return &InviteUserHandler{
		repo:   repo,
		mailer: noopMailer{},
		logger: defLogger{},
		ttl:    DefaultInvitationTTL,
		now:    time.Now,
	}
}

// WithMailer sets the delivery collaborator for the invitation message.
func (h *InviteUserHandler) WithMailer(m Mailer) *InviteUserHandler {
	h.mailer = normalizeMailer(m)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InviteUserHandler) WithLogger(logger Logger) *InviteUserHandler {
	h.logger = normalizeLogger(logger)
	return h
}

// WithInvitationTTL overrides the token validity window.
func (h *InviteUserHandler) WithInvitationTTL(ttl time.Duration) *InviteUserHandler {
	if ttl > 0 {
		h.ttl = ttl
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *InviteUserHandler) WithClock(clock func() time.Time) *InviteUserHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *InviteUserHandler) Execute(ctx context.Context, event InviteUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user invitation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InviteUserHandler) execute(ctx context.Context, event InviteUserMessage) error {
	role, err := ResolveRole(event.Email, event.Role)
	if err != nil {
		return err
	}

	studentID := strings.TrimSpace(event.StudentID)
	if IsStudentRole(role) && studentID == "" {
		return ErrStudentIDRequired
	}

	token := NewInvitationToken()
	expires := h.now().Add(h.ttl)

	user := &User{
		Name:              event.Name,
		Email:             event.Email,
		Role:              role,
		IsActive:          false,
		InvitationToken:   &token,
		InvitationExpires: &expires,
	}
	if IsStudentRole(role) {
		user.StudentID = &studentID
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err = h.repo.Users().RegisterTx(ctx, tx, user)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user invitation transaction failed")
	}

	// Delivery is fire and forget; a dead mail relay must not roll back the
	// account.
	go func(to, name, token string) {
		if err := h.mailer.SendInvitation(context.Background(), to, name, token); err != nil {
			h.logger.Warn("invitation mail delivery failed", "email", to, "error", err)
		}
	}(user.Email, user.Name, token)

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

// ProvisionUserMessage is the administrative invite that activates the
// account immediately and mails a generated temporary password. It is the
// weaker of the two invite mechanisms (the credential crosses the wire in
// plaintext); the token-based flow is preferred for new integrations.
type ProvisionUserMessage struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	StudentID string `json:"student_id"`

	OnResponse func(user *User)
}

func (e ProvisionUserMessage) Type() string { return "user.provision" }

type ProvisionUserHandler struct {
	repo   RepositoryManager
	mailer Mailer
	logger Logger
}

// NewProvisionUserHandler creates a handler with sane defaults.
func NewProvisionUserHandler(repo RepositoryManager) *ProvisionUserHandler {
	return &ProvisionUserHandler{
		repo:   repo,
		mailer: noopMailer{},
		logger: defLogger{},
	}
}

// WithMailer sets the delivery collaborator for the temporary credential.
func (h *ProvisionUserHandler) WithMailer(m Mailer) *ProvisionUserHandler {
	h.mailer = normalizeMailer(m)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ProvisionUserHandler) WithLogger(logger Logger) *ProvisionUserHandler {
	h.logger = normalizeLogger(logger)
	return h
}

func (h *ProvisionUserHandler) Execute(ctx context.Context, event ProvisionUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user provisioning",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ProvisionUserHandler) execute(ctx context.Context, event ProvisionUserMessage) error {
	role, err := ResolveRole(event.Email, event.Role)
	if err != nil {
		return err
	}

	studentID := strings.TrimSpace(event.StudentID)
	if IsStudentRole(role) && studentID == "" {
		return ErrStudentIDRequired
	}

	tempPassword := TemporaryPassword()

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(tempPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash temporary password")
		}

		user.Name = event.Name
		user.Email = event.Email
		user.PasswordHash = hash
		user.Role = role
		user.IsActive = true
		if IsStudentRole(role) {
			user.StudentID = &studentID
		}

		user, err = h.repo.Users().RegisterTx(ctx, tx, user)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user provisioning transaction failed")
	}

	go func(to, name, password string) {
		if err := h.mailer.SendTemporaryPassword(context.Background(), to, name, password); err != nil {
			h.logger.Warn("temporary password mail delivery failed", "email", to, "error", err)
		}
	}(user.Email, user.Name, tempPassword)

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
