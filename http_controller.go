package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	"github.com/ToffDarell/CPAG-Graduates-Research-Monitoring-System-sub001/middleware/authware"
)

// RegisterAuthRoutes mounts the authentication surface on the given router.
// Public routes carry their own CAPTCHA gates; /me and the administrative
// invitation routes sit behind the bearer-token guard.
func RegisterAuthRoutes(app fiber.Router, controller *AuthController) {
	guard := controller.GuardConfig()

	app.Post(controller.Routes.Register, controller.RegisterPost)
	app.Post(controller.Routes.Login, controller.LoginPost)
	app.Post(controller.Routes.Google, controller.GooglePost)
	app.Get(controller.Routes.VerifyInvitation+"/:token", controller.VerifyInvitationGet)
	app.Post(controller.Routes.CompleteRegistration, controller.CompleteRegistrationPost)

	app.Get(controller.Routes.Me,
		authware.Protect(guard),
		authware.CheckAuth(guard),
		controller.MeGet,
	)

	app.Post(controller.Routes.Invitations,
		authware.Protect(guard),
		authware.CheckAuth(guard, string(RoleAdmin)),
		controller.InvitationPost,
	)
	app.Post(controller.Routes.Provision,
		authware.Protect(guard),
		authware.CheckAuth(guard, string(RoleAdmin)),
		controller.ProvisionPost,
	)
}

type AuthControllerRoutes struct {
	Register             string
	Login                string
	Me                   string
	Google               string
	VerifyInvitation     string
	CompleteRegistration string
	Invitations          string
	Provision            string
}

type AuthController struct {
	Debug   bool
	Logger  Logger
	Repo    RepositoryManager
	Auther  *Auther
	Captcha CaptchaVerifier
	Mailer  Mailer
	Routes  *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *Auther) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerCaptcha(captcha CaptchaVerifier) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Captcha = captcha
		return c
	}
}

func WithControllerMailer(mailer Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mailer = normalizeMailer(mailer)
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Mailer: noopMailer{},
		Routes: &AuthControllerRoutes{
			Register:             "/register",
			Login:                "/login",
			Me:                   "/me",
			Google:               "/google",
			VerifyInvitation:     "/verify-invitation",
			CompleteRegistration: "/complete-registration",
			Invitations:          "/invitations",
			Provision:            "/provision",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

// GuardConfig builds the middleware configuration for the protected routes.
// The domain guard re-validates the stored account against the institutional
// policy on every request, so a policy change locks out stale accounts
// without touching their tokens.
func (a *AuthController) GuardConfig() authware.Config {
	return authware.Config{
		Verifier: a.Auther.TokenService(),
		Resolver: principalResolver{auther: a.Auther},
		Guard: func(p authware.Principal) error {
			if _, err := ResolveRole(p.PrincipalEmail(), Role(p.PrincipalRole())); err != nil {
				return ErrAccessDenied
			}
			return nil
		},
		Logger: a.Logger,
	}
}

type principalResolver struct {
	auther *Auther
}

func (r principalResolver) ResolvePrincipal(ctx context.Context, id string) (authware.Principal, error) {
	user, err := r.auther.ResolvePrincipal(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RegisterPayload is the self-service registration body.
type RegisterPayload struct {
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
	Role      string `json:"role" form:"role"`
	StudentID string `json:"studentId" form:"studentId"`
	Recaptcha string `json:"recaptcha" form:"recaptcha"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.Role, validation.Required, validation.In(roleArgs()...)),
		validation.Field(&r.Recaptcha, validation.Required),
	)
}

func (a *AuthController) RegisterPost(c *fiber.Ctx) error {
	payload := new(RegisterPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if a.Debug {
		a.Logger.Debug("register payload %s", print.MaybePrettyJSON(payload))
	}

	if !a.verifyCaptcha(c, payload.Recaptcha) {
		return a.respondError(c, ErrCaptchaFailed)
	}

	var user *User
	msg := RegisterUserMessage{
		Name:      payload.Username,
		Email:     payload.Email,
		Password:  payload.Password,
		Role:      Role(payload.Role),
		StudentID: payload.StudentID,
		OnResponse: func(u *User) {
			user = u
		},
	}

	registerUser := NewRegisterUserHandler(a.Repo).WithLogger(a.Logger)
	if err := registerUser.Execute(c.UserContext(), msg); err != nil {
		a.Logger.Error("register execute", "error", err)
		return a.respondError(c, err)
	}

	token, err := a.Auther.TokenService().Issue(user.ID.String())
	if err != nil {
		a.Logger.Error("register token issue", "error", err)
		return a.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Name,
		"email":    user.Email,
		"role":     user.Role,
		"token":    token,
	})
}

// LoginPayload is the credential sign-in body.
type LoginPayload struct {
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
	Role      string `json:"role" form:"role"`
	Recaptcha string `json:"recaptcha" form:"recaptcha"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Role, validation.Required, validation.In(roleArgs()...)),
		validation.Field(&r.Recaptcha, validation.Required),
	)
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if !a.verifyCaptcha(c, payload.Recaptcha) {
		return a.respondError(c, ErrCaptchaFailed)
	}

	token, user, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password, Role(payload.Role))
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Name,
		"email":    user.Email,
		"role":     user.Role,
		"token":    token,
	})
}

func (a *AuthController) MeGet(c *fiber.Ctx) error {
	principal := authware.PrincipalFrom(c, "")
	user, ok := principal.(*User)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	return c.JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Name,
		"email":    user.Email,
		"role":     user.Role,
	})
}

// GooglePayload carries the provider credential from the sign-in widget.
type GooglePayload struct {
	Credential   string `json:"credential" form:"credential"`
	SelectedRole string `json:"selectedRole" form:"selectedRole"`
}

// Validate will run validation rules
func (r GooglePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Credential, validation.Required),
		validation.Field(&r.SelectedRole, validation.In(roleArgs()...)),
	)
}

func (a *AuthController) GooglePost(c *fiber.Ctx) error {
	payload := new(GooglePayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("google sign-in parse payload", "error", err)
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	token, user, err := a.Auther.GoogleSignIn(c.UserContext(), payload.Credential, Role(payload.SelectedRole))
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Name,
		"email":    user.Email,
		"role":     user.Role,
		"token":    token,
	})
}

func (a *AuthController) VerifyInvitationGet(c *fiber.Ctx) error {
	preview, err := VerifyInvitation(c.UserContext(), a.Repo, c.Params("token"))
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"valid": true,
		"user":  preview,
	})
}

// CompleteRegistrationPayload finalizes an invited account.
type CompleteRegistrationPayload struct {
	Token     string `json:"token" form:"token"`
	Password  string `json:"password" form:"password"`
	Recaptcha string `json:"recaptcha" form:"recaptcha"`
}

// Validate will run validation rules
func (r CompleteRegistrationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.Recaptcha, validation.Required),
	)
}

func (a *AuthController) CompleteRegistrationPost(c *fiber.Ctx) error {
	payload := new(CompleteRegistrationPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("complete registration parse payload", "error", err)
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if a.Debug {
		a.Logger.Debug("complete registration token %s", print.MaybePrettyJSON(payload.Token))
	}

	var user *User
	msg := CompleteInvitationMessage{
		Token:    payload.Token,
		Password: payload.Password,
		Captcha:  payload.Recaptcha,
		RemoteIP: c.IP(),
		OnResponse: func(u *User) {
			user = u
		},
	}

	completeInvitation := NewCompleteInvitationHandler(a.Repo, a.Captcha).WithLogger(a.Logger)
	if err := completeInvitation.Execute(c.UserContext(), msg); err != nil {
		return a.respondError(c, err)
	}

	token, err := a.Auther.TokenService().Issue(user.ID.String())
	if err != nil {
		a.Logger.Error("complete registration token issue", "error", err)
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Registration completed successfully",
		"token":   token,
		"user": fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// InvitePayload is the administrative body shared by the token-based
// invitation and the temporary-password provisioning routes.
type InvitePayload struct {
	Name      string `json:"name" form:"name"`
	Email     string `json:"email" form:"email"`
	Role      string `json:"role" form:"role"`
	StudentID string `json:"studentId" form:"studentId"`
}

// Validate will run validation rules
func (r InvitePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Role, validation.Required, validation.In(roleArgs()...)),
	)
}

func (a *AuthController) InvitationPost(c *fiber.Ctx) error {
	payload := new(InvitePayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("invitation parse payload", "error", err)
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	var user *User
	msg := InviteUserMessage{
		Name:      payload.Name,
		Email:     payload.Email,
		Role:      Role(payload.Role),
		StudentID: payload.StudentID,
		OnResponse: func(u *User) {
			user = u
		},
	}

	inviteUser := NewInviteUserHandler(a.Repo).
		WithMailer(a.Mailer).
		WithLogger(a.Logger)

	if err := inviteUser.Execute(c.UserContext(), msg); err != nil {
		a.Logger.Error("invitation execute", "error", err)
		return a.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Invitation sent",
		"user":    user.Preview(),
	})
}

func (a *AuthController) ProvisionPost(c *fiber.Ctx) error {
	payload := new(InvitePayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("provision parse payload", "error", err)
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	var user *User
	msg := ProvisionUserMessage{
		Name:      payload.Name,
		Email:     payload.Email,
		Role:      Role(payload.Role),
		StudentID: payload.StudentID,
		OnResponse: func(u *User) {
			user = u
		},
	}

	provisionUser := NewProvisionUserHandler(a.Repo).
		WithMailer(a.Mailer).
		WithLogger(a.Logger)

	if err := provisionUser.Execute(c.UserContext(), msg); err != nil {
		a.Logger.Error("provision execute", "error", err)
		return a.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Account provisioned",
		"user": fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// verifyCaptcha runs the fail-closed gate used by the public entry points.
// A missing verifier counts as a failure, never as a bypass.
func (a *AuthController) verifyCaptcha(c *fiber.Ctx, responseToken string) bool {
	if a.Captcha == nil {
		a.Logger.Warn("captcha verifier not configured; rejecting request")
		return false
	}
	return a.Captcha.Verify(c.UserContext(), responseToken, c.IP())
}

// respondError converts a taxonomy error into its HTTP response. Messages
// above the 5xx boundary are replaced with a generic one; the cause is
// logged server side only.
func (a *AuthController) respondError(c *fiber.Ctx, err error) error {
	status := StatusFromError(err)

	msg := "unexpected error"
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Message != "" && status < fiber.StatusInternalServerError {
		msg = rich.Message
	}

	if status >= fiber.StatusInternalServerError {
		a.Logger.Error("request failed", "error", err)
	}

	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// roleArgs feeds validation.In, which compares by interface equality, so the
// values must be plain strings to match the untyped payload fields.
func roleArgs() []any {
	roles := AllRoles()
	out := make([]any, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
