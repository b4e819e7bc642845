package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// VerifyInvitation resolves a pending account by token and returns its
// read-only preview. Absent, expired and already-consumed tokens all come
// back as ErrInvalidInvitation.
func VerifyInvitation(ctx context.Context, repo RepositoryManager, token string) (*InvitationPreview, error) {
	if token == "" {
		return nil, ErrInvalidInvitation
	}

	user, err := repo.Users().GetByInvitationToken(ctx, token, time.Now())
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrInvalidInvitation
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not verify invitation")
	}

	return user.Preview(), nil
}

// CompleteInvitationMessage finalizes a pending account: CAPTCHA first, then
// the single-winner conditional update that stores the new password,
// activates the account and clears the token.
type CompleteInvitationMessage struct {
	Token    string `json:"token"`
	Password string `json:"password"`
	Captcha  string `json:"recaptcha"`
	RemoteIP string `json:"-"`

	OnResponse func(user *User)
}

func (e CompleteInvitationMessage) Type() string { return "user.invitation.complete" }

type CompleteInvitationHandler struct {
	repo    RepositoryManager
	captcha CaptchaVerifier
	logger  Logger
	now     func() time.Time
}

// NewCompleteInvitationHandler creates a handler with sane defaults.
func NewCompleteInvitationHandler(repo RepositoryManager, captcha CaptchaVerifier) *CompleteInvitationHandler {
	return &CompleteInvitationHandler{
		repo:    repo,
		captcha: captcha,
		logger:  defLogger{},
		now:     time.Now,
	}
}

// WithLogger overrides the logger used by the handler.
func (h *CompleteInvitationHandler) WithLogger(logger Logger) *CompleteInvitationHandler {
	h.logger = normalizeLogger(logger)
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *CompleteInvitationHandler) WithClock(clock func() time.Time) *CompleteInvitationHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *CompleteInvitationHandler) Execute(ctx context.Context, event CompleteInvitationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invitation completion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CompleteInvitationHandler) execute(ctx context.Context, event CompleteInvitationMessage) error {
	// The CAPTCHA gate runs before any token lookup so response timing
	// reveals nothing about which tokens exist.
	if h.captcha == nil || !h.captcha.Verify(ctx, event.Captcha, event.RemoteIP) {
		return ErrCaptchaFailed
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	var user *User

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// The token is re-resolved inside the update itself; a stale
		// verification from a prior request cannot complete an expired or
		// already-consumed invitation.
		user, err = h.repo.Users().CompleteInvitationTx(ctx, tx, event.Token, hash, h.now())
		if err != nil {
			if IsRecordNotFound(err) {
				return ErrInvalidInvitation
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to complete invitation")
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "invitation completion transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
