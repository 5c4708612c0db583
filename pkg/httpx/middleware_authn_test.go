package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pulsefeed/pulse/pkg/apierr"
	"github.com/pulsefeed/pulse/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var guardSecret = []byte("guard-test-secret-32-bytes-long!!!")

func guardedEcho(t *testing.T) http.Handler {
	t.Helper()
	verifier := jwtx.NewVerifier(guardSecret, "pulse-auth")
	return Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"userId": UserIDFromContext(r.Context()),
		})
	}), AuthnMiddleware(verifier))
}

func doGuarded(t *testing.T, h http.Handler, authz string) (*httptest.ResponseRecorder, apierr.Error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body apierr.Error
	if rec.Code != http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestAuthnMiddlewareAllowsValidToken(t *testing.T) {
	signer := jwtx.NewSigner(guardSecret, "pulse-auth", time.Minute)
	token, err := signer.Sign("user-42", "a@x.com", "member", time.Now())
	require.NoError(t, err)

	rec, _ := doGuarded(t, guardedEcho(t), "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "user-42")
}

func TestAuthnMiddlewareRejectionOrder(t *testing.T) {
	h := guardedEcho(t)

	t.Run("missing header reported as missing, not expired", func(t *testing.T) {
		rec, body := doGuarded(t, h, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, apierr.ErrMissingToken.Message, body.Message)
		require.Empty(t, body.Code)
	})

	t.Run("non-bearer header is invalid", func(t *testing.T) {
		rec, body := doGuarded(t, h, "Basic dXNlcjpwYXNz")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, apierr.ErrInvalidToken.Message, body.Message)
	})

	t.Run("malformed bearer token is invalid", func(t *testing.T) {
		rec, body := doGuarded(t, h, "Bearer not.a.jwt")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, apierr.ErrInvalidToken.Message, body.Message)
	})

	t.Run("expired token carries TOKEN_EXPIRED code", func(t *testing.T) {
		signer := jwtx.NewSigner(guardSecret, "pulse-auth", time.Minute)
		token, err := signer.Sign("user-42", "a@x.com", "member", time.Now().Add(-time.Hour))
		require.NoError(t, err)

		rec, body := doGuarded(t, h, "Bearer "+token)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "TOKEN_EXPIRED", body.Code)
	})

	t.Run("foreign secret is invalid, not expired", func(t *testing.T) {
		signer := jwtx.NewSigner([]byte("a-different-secret-of-32-bytes!!!"), "pulse-auth", time.Minute)
		token, err := signer.Sign("user-42", "a@x.com", "member", time.Now())
		require.NoError(t, err)

		rec, body := doGuarded(t, h, "Bearer "+token)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, apierr.ErrInvalidToken.Message, body.Message)
	})
}
