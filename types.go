package auth

import (
	"context"
	"fmt"
)

// Logger is the minimal logging surface this package needs; any printf-style
// logger adapts to it.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int // hours
	GetIssuer() string
	GetCaptchaSecret() string
	GetCaptchaEndpoint() string
	GetGoogleClientID() string
}

// BasicConfig is the concrete Config most callers use.
type BasicConfig struct {
	SigningKey      string
	TokenExpiration int
	Issuer          string
	CaptchaSecret   string
	CaptchaEndpoint string
	GoogleClientID  string
}

func (c BasicConfig) GetSigningKey() string      { return c.SigningKey }
func (c BasicConfig) GetTokenExpiration() int    { return c.TokenExpiration }
func (c BasicConfig) GetIssuer() string          { return c.Issuer }
func (c BasicConfig) GetCaptchaSecret() string   { return c.CaptchaSecret }
func (c BasicConfig) GetCaptchaEndpoint() string { return c.CaptchaEndpoint }
func (c BasicConfig) GetGoogleClientID() string  { return c.GoogleClientID }

// CaptchaVerifier gates the public, account-creating entry points.
// Implementations are fail-closed: every ambiguous outcome is false.
type CaptchaVerifier interface {
	Verify(ctx context.Context, responseToken, remoteIP string) bool
}

// IdentityPayload is the ephemeral result of a verified third-party
// assertion. It is never persisted.
type IdentityPayload struct {
	Email string
	Name  string
}

// IdentityVerifier validates a third-party ID-token credential.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*IdentityPayload, error)
}

// Mailer is the email-delivery collaborator. Calls are fire and forget;
// delivery failure never blocks account creation.
type Mailer interface {
	SendInvitation(ctx context.Context, to, name, token string) error
	SendTemporaryPassword(ctx context.Context, to, name, tempPassword string) error
}

type noopMailer struct{}

func (noopMailer) SendInvitation(context.Context, string, string, string) error        { return nil }
func (noopMailer) SendTemporaryPassword(context.Context, string, string, string) error { return nil }

// NoopMailer returns a Mailer that drops every message.
func NoopMailer() Mailer { return noopMailer{} }

func normalizeMailer(m Mailer) Mailer {
	if m == nil {
		return noopMailer{}
	}
	return m
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
