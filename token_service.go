package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// DefaultTokenExpirationHours keeps sessions alive for roughly thirty days.
const DefaultTokenExpirationHours = 24 * 30

// TokenService mints and verifies the stateless session token. The only
// trust anchor is the signing key; there is no revocation list, so rotating
// the key invalidates every outstanding token.
type TokenService interface {
	Issue(principalID string) (string, error)
	Verify(token string) (string, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	tokenExpiration int
	issuer          string
	logger          Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, tokenExpiration int, issuer string, logger Logger) *TokenServiceImpl {
	if tokenExpiration <= 0 {
		tokenExpiration = DefaultTokenExpirationHours
	}
	return &TokenServiceImpl{
		signingKey:      signingKey,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		logger:          normalizeLogger(logger),
	}
}

// Issue produces a signed token whose only identity claim is the principal
// id in the subject.
func (ts *TokenServiceImpl) Issue(principalID string) (string, error) {
	if principalID == "" {
		return "", errors.New("principal id must not be empty", errors.CategoryInternal)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    ts.issuer,
		Subject:   principalID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ts.tokenExpiration) * time.Hour)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign session token")
	}

	return signed, nil
}

// Verify parses and validates a token string, returning the principal id.
// Every failure collapses into ErrTokenExpired or ErrTokenMalformed.
func (ts *TokenServiceImpl) Verify(tokenString string) (string, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenMalformed
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		ts.logger.Error("TokenService verify could not decode claims")
		return "", ErrTokenMalformed
	}

	return claims.Subject, nil
}
