// Package captcha verifies reCAPTCHA response tokens against the upstream
// siteverify endpoint. Every ambiguous outcome is a failure: no token, no
// secret, transport error, non-2xx status, or a payload that does not say
// success explicitly.
package captcha

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// Config holds the verifier configuration.
type Config struct {
	Secret    string
	VerifyURL string

	HTTPClient *http.Client
}

// Verifier is the fail-closed reCAPTCHA gate used on the public,
// account-creating entry points.
type Verifier struct {
	config     Config
	httpClient *http.Client
}

// New creates a new reCAPTCHA verifier.
func New(cfg Config) *Verifier {
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = defaultVerifyURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Verifier{
		config:     cfg,
		httpClient: client,
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks the response token with the upstream provider. A missing
// token or secret short-circuits to false without a network call.
func (v *Verifier) Verify(ctx context.Context, responseToken, remoteIP string) bool {
	if strings.TrimSpace(responseToken) == "" || v.config.Secret == "" {
		return false
	}

	data := url.Values{
		"secret":   {v.config.Secret},
		"response": {responseToken},
	}
	if remoteIP != "" {
		data.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.config.VerifyURL, strings.NewReader(data.Encode()))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false
	}

	var result verifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return false
	}

	return result.Success
}
