package auth

import (
	"context"

	"github.com/ToffDarell/CPAG-Graduates-Research-Monitoring-System-sub001/captcha"
	"github.com/ToffDarell/CPAG-Graduates-Research-Monitoring-System-sub001/googleid"
)

// NewCaptchaVerifier builds the fail-closed reCAPTCHA gate from the
// configured secret and endpoint.
func NewCaptchaVerifier(cfg Config) CaptchaVerifier {
	return captcha.New(captcha.Config{
		Secret:    cfg.GetCaptchaSecret(),
		VerifyURL: cfg.GetCaptchaEndpoint(),
	})
}

// googleIdentity adapts a googleid.Verifier to the IdentityVerifier
// interface consumed by the authenticator.
type googleIdentity struct {
	verifier *googleid.Verifier
}

// NewGoogleIdentity builds an identity verifier for Google Sign-In
// credentials using the configured OAuth client ID.
func NewGoogleIdentity(cfg Config) (IdentityVerifier, error) {
	verifier, err := googleid.New(googleid.Config{
		ClientID: cfg.GetGoogleClientID(),
	})
	if err != nil {
		return nil, err
	}
	return &googleIdentity{verifier: verifier}, nil
}

func (g *googleIdentity) Verify(ctx context.Context, credential string) (*IdentityPayload, error) {
	payload, err := g.verifier.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}
	return &IdentityPayload{
		Email: payload.Email,
		Name:  payload.Name,
	}, nil
}
