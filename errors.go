package auth

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeDomainNotAllowed   = "EMAIL_DOMAIN_NOT_ALLOWED"
	TextCodeRoleMismatch       = "ROLE_MISMATCH"
	TextCodeRoleDomainConflict = "ROLE_DOMAIN_CONFLICT"
	TextCodeAccessDenied       = "ACCESS_DENIED"
	TextCodeEmailExists        = "EMAIL_EXISTS"
	TextCodeStudentIDRequired  = "STUDENT_ID_REQUIRED"
	TextCodeStudentIDExists    = "STUDENT_ID_EXISTS"
	TextCodeInvalidInvitation  = "INVALID_INVITATION"
	TextCodeCaptchaFailed      = "CAPTCHA_FAILED"
	TextCodeAccountInactive    = "ACCOUNT_INACTIVE"
	TextCodeIdentityInvalid    = "IDENTITY_VERIFICATION_FAILED"
)

// ErrInvalidCredentials covers both "no such account" and "wrong password";
// the two are never distinguished in a response.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a session token is past its expiry.
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers every other session token failure: bad format,
// signature mismatch, unexpected algorithm.
var ErrTokenMalformed = errors.New("invalid token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrDomainNotAllowed is returned for emails outside the institutional domains.
var ErrDomainNotAllowed = errors.New("email must be an institutional account", errors.CategoryValidation).
	WithTextCode(TextCodeDomainNotAllowed).
	WithCode(errors.CodeBadRequest)

// ErrRoleDomainConflict is returned when the declared role contradicts the
// role the email domain binds.
var ErrRoleDomainConflict = errors.New("selected role does not match account type", errors.CategoryValidation).
	WithTextCode(TextCodeRoleDomainConflict).
	WithCode(errors.CodeBadRequest)

// ErrAccessDenied is the generic authorization failure.
var ErrAccessDenied = errors.New("access denied", errors.CategoryAuthz).
	WithTextCode(TextCodeAccessDenied).
	WithCode(errors.CodeForbidden)

// ErrEmailAlreadyExists is surfaced as 400 (not 409) to keep the public
// contract stable.
var ErrEmailAlreadyExists = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailExists).
	WithCode(errors.CodeBadRequest)

// ErrStudentIDRequired is returned when a graduate student registration is
// missing its student ID.
var ErrStudentIDRequired = errors.New("student ID is required for graduate students", errors.CategoryValidation).
	WithTextCode(TextCodeStudentIDRequired).
	WithCode(errors.CodeBadRequest)

// ErrStudentIDAlreadyExists is returned when the student ID is taken.
var ErrStudentIDAlreadyExists = errors.New("student ID already registered", errors.CategoryConflict).
	WithTextCode(TextCodeStudentIDExists).
	WithCode(errors.CodeBadRequest)

// ErrInvalidInvitation deliberately collapses "never existed", "expired" and
// "already used" into one outcome so the endpoint is not a token oracle.
var ErrInvalidInvitation = errors.New("invalid or expired invitation token", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidInvitation).
	WithCode(errors.CodeBadRequest)

// ErrCaptchaFailed is the fail-closed outcome of reCAPTCHA verification.
var ErrCaptchaFailed = errors.New("recaptcha verification failed", errors.CategoryValidation).
	WithTextCode(TextCodeCaptchaFailed).
	WithCode(errors.CodeBadRequest)

// ErrAccountInactive is returned when a pending account attempts to log in.
var ErrAccountInactive = errors.New("account is not active", errors.CategoryAuth).
	WithTextCode(TextCodeAccountInactive).
	WithCode(errors.CodeUnauthorized)

// ErrIdentityVerification is the opaque failure for Google ID-token
// validation; the underlying cause is logged server side only.
var ErrIdentityVerification = errors.New("identity verification failed", errors.CategoryAuth).
	WithTextCode(TextCodeIdentityInvalid).
	WithCode(errors.CodeUnauthorized)

// RoleMismatchError builds the login 403 that names the stored role.
func RoleMismatchError(actual Role) *errors.Error {
	return errors.New("account is registered as "+string(actual), errors.CategoryAuthz).
		WithTextCode(TextCodeRoleMismatch).
		WithCode(errors.CodeForbidden).
		WithMetadata(map[string]any{"actual_role": string(actual)})
}

// StatusFromError maps an error to the HTTP status the public contract
// promises. Anything outside the taxonomy is a 500.
func StatusFromError(err error) int {
	var rich *errors.Error
	if errors.As(err, &rich) && rich.Code != 0 {
		return rich.Code
	}
	return errors.CodeInternal
}
