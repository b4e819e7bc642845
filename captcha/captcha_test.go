package captcha_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ToffDarell/CPAG-Graduates-Research-Monitoring-System-sub001/captcha"
)

func newVerifier(url string) *captcha.Verifier {
	return captcha.New(captcha.Config{
		Secret:    "test-secret",
		VerifyURL: url,
	})
}

func TestVerifySuccess(t *testing.T) {
	var gotForm map[string]string

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotForm = map[string]string{
			"secret":   r.PostFormValue("secret"),
			"response": r.PostFormValue("response"),
			"remoteip": r.PostFormValue("remoteip"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "hostname": "localhost"}`))
	}))
	defer upstream.Close()

	ok := newVerifier(upstream.URL).Verify(context.Background(), "response-token", "203.0.113.7")
	assert.True(t, ok)
	assert.Equal(t, "test-secret", gotForm["secret"])
	assert.Equal(t, "response-token", gotForm["response"])
	assert.Equal(t, "203.0.113.7", gotForm["remoteip"])
}

func TestVerifyUpstreamSaysNo(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
	}))
	defer upstream.Close()

	assert.False(t, newVerifier(upstream.URL).Verify(context.Background(), "response-token", ""))
}

func TestVerifyNon2xx(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	assert.False(t, newVerifier(upstream.URL).Verify(context.Background(), "response-token", ""))
}

func TestVerifyMalformedBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer upstream.Close()

	assert.False(t, newVerifier(upstream.URL).Verify(context.Background(), "response-token", ""))
}

func TestVerifyUpstreamUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close() // connection refused from here on

	assert.False(t, newVerifier(upstream.URL).Verify(context.Background(), "response-token", ""))
}

func TestVerifyMissingInputsShortCircuit(t *testing.T) {
	calls := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer upstream.Close()

	t.Run("missing response token", func(t *testing.T) {
		assert.False(t, newVerifier(upstream.URL).Verify(context.Background(), "", "1.2.3.4"))
		assert.False(t, newVerifier(upstream.URL).Verify(context.Background(), "   ", "1.2.3.4"))
	})

	t.Run("missing secret", func(t *testing.T) {
		v := captcha.New(captcha.Config{VerifyURL: upstream.URL})
		assert.False(t, v.Verify(context.Background(), "response-token", "1.2.3.4"))
	})

	assert.Zero(t, calls)
}
