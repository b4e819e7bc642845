// Package authware provides Fiber middleware that guards routes with
// bearer-token authentication and role membership checks. The package
// owns its contracts so callers can adapt any token service and user
// store without an import cycle.
package authware

import (
	"context"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// DefaultContextKey is where the resolved principal is stored in the
// request-scoped Locals.
const DefaultContextKey = "principal"

const authScheme = "Bearer"

// Principal is the authenticated subject attached to the request.
type Principal interface {
	PrincipalID() string
	PrincipalRole() string
	PrincipalEmail() string
}

// TokenVerifier checks a raw bearer token and returns the subject it
// was issued to.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// PrincipalResolver loads the principal for a verified subject. Returning
// an error rejects the request.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, id string) (Principal, error)
}

// Logger lets callers plug their own logging implementation.
type Logger interface {
	Error(format string, args ...any)
}

type defLogger struct{}

func (l defLogger) Error(format string, args ...any) {
	log.Printf(format+"\n", args...)
}

// Config configures the guard middleware.
type Config struct {
	Verifier TokenVerifier
	Resolver PrincipalResolver

	// Guard runs after the principal is resolved and before role
	// matching. A non-nil error rejects the request with 403.
	Guard func(p Principal) error

	// ContextKey overrides DefaultContextKey.
	ContextKey string

	Logger Logger
}

func (cfg Config) contextKey() string {
	if cfg.ContextKey != "" {
		return cfg.ContextKey
	}
	return DefaultContextKey
}

func (cfg Config) logger() Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return defLogger{}
}

// Protect returns middleware that authenticates the request from its
// Authorization header. A missing or malformed header, a token that
// fails verification, or a subject that cannot be resolved all end the
// request with 401.
func Protect(cfg Config) fiber.Handler {
	key := cfg.contextKey()
	logger := cfg.logger()

	return func(c *fiber.Ctx) error {
		token, err := extractToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, "authentication required")
		}

		subject, err := cfg.Verifier.Verify(token)
		if err != nil {
			logger.Error("authware: token verification failed: %v", err)
			return unauthorized(c, "invalid or expired token")
		}

		principal, err := cfg.Resolver.ResolvePrincipal(c.UserContext(), subject)
		if err != nil {
			logger.Error("authware: principal resolution failed: %v", err)
			// A missing record means the credential no longer maps to an
			// account; anything else is a store fault, not the caller's.
			if !errors.IsNotFound(err) {
				return internalError(c)
			}
			return unauthorized(c, "invalid or expired token")
		}

		c.Locals(key, principal)
		return c.Next()
	}
}

// CheckAuth returns middleware that authorizes the request principal
// against the allowed roles. An empty role list admits any
// authenticated principal. Must run after Protect.
func CheckAuth(cfg Config, roles ...string) fiber.Handler {
	key := cfg.contextKey()

	return func(c *fiber.Ctx) error {
		principal := PrincipalFrom(c, key)
		if principal == nil {
			return unauthorized(c, "authentication required")
		}

		if cfg.Guard != nil {
			if err := cfg.Guard(principal); err != nil {
				return forbidden(c, messageFor(err, "access denied"))
			}
		}

		if len(roles) == 0 {
			return c.Next()
		}

		role := principal.PrincipalRole()
		for _, allowed := range roles {
			if strings.EqualFold(role, allowed) {
				return c.Next()
			}
		}

		return forbidden(c, "access denied")
	}
}

// Authorize is CheckAuth under the name route tables tend to read better
// with. The two are interchangeable.
func Authorize(cfg Config, roles ...string) fiber.Handler {
	return CheckAuth(cfg, roles...)
}

// PrincipalFrom retrieves the principal stored by Protect. Returns nil
// when the request is unauthenticated.
func PrincipalFrom(c *fiber.Ctx, key string) Principal {
	if key == "" {
		key = DefaultContextKey
	}
	principal, ok := c.Locals(key).(Principal)
	if !ok {
		return nil
	}
	return principal
}

func extractToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing authorization header", errors.CategoryAuth)
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], authScheme) || parts[1] == "" {
		return "", errors.New("malformed authorization header", errors.CategoryAuth)
	}

	return strings.TrimSpace(parts[1]), nil
}

func messageFor(err error, fallback string) string {
	var rich *errors.Error
	if errors.As(err, &rich) && rich.Message != "" {
		return rich.Message
	}
	return fallback
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
}

func forbidden(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": msg})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
