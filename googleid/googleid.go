// Package googleid validates Google Sign-In ID tokens. Signatures are
// checked against Google's published JWKS, then the standard claims are
// pinned to the expected audience and issuer.
package googleid

import (
	"context"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

const defaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// Google rotates signing keys, so the key set is refreshed in the
// background for the lifetime of the verifier.
var jwksOptions = keyfunc.Options{
	RefreshInterval:   time.Hour,
	RefreshRateLimit:  time.Minute * 5,
	RefreshTimeout:    time.Second * 10,
	RefreshUnknownKID: true,
}

// Payload carries the identity attributes extracted from a verified token.
type Payload struct {
	Email string
	Name  string
}

// Config holds the verifier configuration. ClientID is the OAuth client
// the token audience must match.
type Config struct {
	ClientID string
	JWKSURL  string

	// KeyFunc overrides JWKS resolution. Used in tests with locally
	// generated keys.
	KeyFunc jwt.Keyfunc
}

// Verifier validates Google-issued ID tokens.
type Verifier struct {
	clientID string
	keyFunc  jwt.Keyfunc
}

type idClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}

// New creates a verifier for the given configuration. The JWKS endpoint
// is contacted eagerly so a misconfigured URL fails at startup.
func New(cfg Config) (*Verifier, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("googleid: client ID is required", errors.CategoryBadInput)
	}

	kf := cfg.KeyFunc
	if kf == nil {
		jwksURL := cfg.JWKSURL
		if jwksURL == "" {
			jwksURL = defaultJWKSURL
		}
		jwks, err := keyfunc.Get(jwksURL, jwksOptions)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "googleid: failed to load JWK set")
		}
		kf = jwks.Keyfunc
	}

	return &Verifier{
		clientID: cfg.ClientID,
		keyFunc:  kf,
	}, nil
}

// Verify parses and validates the credential, returning the identity it
// asserts. Any signature, audience, issuer, or expiry failure is an error.
func (v *Verifier) Verify(ctx context.Context, credential string) (*Payload, error) {
	claims := &idClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, v.keyFunc,
		jwt.WithAudience(v.clientID),
		jwt.WithValidMethods([]string{"RS256"}),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "googleid: token validation failed")
	}

	if !token.Valid {
		return nil, errors.New("googleid: token is not valid", errors.CategoryAuth)
	}

	if claims.Issuer != "accounts.google.com" && claims.Issuer != "https://accounts.google.com" {
		return nil, errors.New("googleid: unexpected token issuer", errors.CategoryAuth).
			WithMetadata(map[string]any{"issuer": claims.Issuer})
	}

	if claims.Email == "" {
		return nil, errors.New("googleid: token carries no email claim", errors.CategoryAuth)
	}

	name := claims.Name
	if name == "" {
		name = localPart(claims.Email)
	}

	return &Payload{
		Email: strings.ToLower(claims.Email),
		Name:  name,
	}, nil
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
