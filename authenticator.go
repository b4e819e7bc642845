package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// Auther orchestrates the credential and third-party sign-in flows. It is
// stateless apart from the injected collaborators; the Principal store is
// the only shared mutable resource.
type Auther struct {
	repo         RepositoryManager
	tokenService TokenService
	identity     IdentityVerifier
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, cfg Config) *Auther {
	return &Auther{
		repo: repo,
		tokenService: NewTokenService(
			[]byte(cfg.GetSigningKey()),
			cfg.GetTokenExpiration(),
			cfg.GetIssuer(),
			defLogger{},
		),
		logger: defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithTokenService overrides the session token implementation.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// WithIdentityVerifier wires the third-party ID-token verifier used by
// GoogleSignIn.
func (s *Auther) WithIdentityVerifier(v IdentityVerifier) *Auther {
	s.identity = v
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login authenticates an email/password pair against the stored account and
// the declared role. "No such account" and "wrong password" share one
// failure; a role mismatch is the only outcome that names stored state.
func (s *Auther) Login(ctx context.Context, email, password string, declaredRole Role) (string, *User, error) {
	if !AllowedEmail(email) {
		return "", nil, ErrDomainNotAllowed
	}

	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if IsRecordNotFound(err) {
			return "", nil, ErrInvalidCredentials
		}
		s.logger.Error("Login lookup error", "error", err)
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "login failed")
	}

	if !user.IsActive {
		return "", nil, ErrAccountInactive
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	if declaredRole != "" && user.Role != declaredRole {
		return "", nil, RoleMismatchError(user.Role)
	}

	token, err := s.tokenService.Issue(user.ID.String())
	if err != nil {
		s.logger.Error("Login token issue error", "error", err)
		return "", nil, err
	}

	return token, user, nil
}

// GoogleSignIn validates the ID-token credential, applies the role/domain
// policy and upserts the Principal by email. A pre-existing account keeps
// its stored role regardless of what the caller selected.
func (s *Auther) GoogleSignIn(ctx context.Context, credential string, selectedRole Role) (string, *User, error) {
	if s.identity == nil {
		return "", nil, goerrors.New("identity verifier not configured", goerrors.CategoryInternal)
	}

	payload, err := s.identity.Verify(ctx, credential)
	if err != nil {
		s.logger.Error("GoogleSignIn verification failed", "error", err)
		return "", nil, ErrIdentityVerification
	}

	role, err := ResolveRole(payload.Email, selectedRole)
	if err != nil {
		return "", nil, err
	}

	name := payload.Name
	if name == "" {
		name = EmailLocalPart(payload.Email)
	}

	record := &User{
		Name:  name,
		Email: payload.Email,
		Role:  role,
		// The plaintext behind this hash is discarded; the account can only
		// ever authenticate through the provider.
		PasswordHash: RandomPasswordHash(),
		IsActive:     true,
	}
	if id, err := hashid.NewUUID(payload.Email); err == nil {
		record.ID = id
	}

	user, err := s.repo.Users().GetOrCreateByEmail(ctx, record)
	if err != nil {
		s.logger.Error("GoogleSignIn upsert error", "error", err)
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "sign-in failed")
	}

	token, err := s.tokenService.Issue(user.ID.String())
	if err != nil {
		s.logger.Error("GoogleSignIn token issue error", "error", err)
		return "", nil, err
	}

	return token, user, nil
}

// ResolvePrincipal loads the request principal by id with the secret column
// excluded. The middleware treats a failed resolution as unauthenticated,
// never as a server fault.
func (s *Auther) ResolvePrincipal(ctx context.Context, id string) (*User, error) {
	return s.repo.Users().GetForSession(ctx, id)
}
