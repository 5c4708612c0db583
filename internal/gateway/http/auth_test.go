package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pulsefeed/pulse/internal/auth/rpc"
	"github.com/pulsefeed/pulse/internal/auth/service"
	"github.com/pulsefeed/pulse/internal/auth/store/drivers/sqlite"
	"github.com/pulsefeed/pulse/internal/gateway/mediator"
	"github.com/pulsefeed/pulse/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var gwSecret = []byte("gateway-test-secret-32-bytes-ok!!")

// newTestGateway wires a Router to a real auth service RPC surface running
// in-process behind an httptest server.
func newTestGateway(t *testing.T) *Router {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	sessions := &service.SessionService{
		Store:      st,
		Signer:     jwtx.NewSigner(gwSecret, "pulse-auth", jwtx.DefaultAccessTokenTTL),
		Verifier:   jwtx.NewVerifier(gwSecret, "pulse-auth"),
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
	}
	authRouter := rpc.NewRouter(sessions, st, "test", slog.New(slog.DiscardHandler))
	authRouter.ApplyRoutes()

	srv := httptest.NewServer(authRouter)
	t.Cleanup(srv.Close)

	gw := NewRouter(
		mediator.New(mediator.NewHTTPTransport(srv.URL)),
		jwtx.NewVerifier(gwSecret, "pulse-auth"),
		15*time.Minute,
		jwtx.DefaultRefreshTokenTTL,
		false,
		"test",
		slog.New(slog.DiscardHandler),
	)
	gw.ApplyRoutes()
	return gw
}

func postJSON(t *testing.T, gw *Router, path string, body any, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)
	return rec
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func registerAndLogin(t *testing.T, gw *Router) (AuthOutcome, *httptest.ResponseRecorder) {
	t.Helper()
	creds := CredentialsRequest{Email: "a@x.com", Password: "Password123!"}

	rec := postJSON(t, gw, "/auth/register", creds, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, gw, "/auth/login", creds, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome AuthOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	return outcome, rec
}

func TestRegisterEndpoint(t *testing.T) {
	gw := newTestGateway(t)

	rec := postJSON(t, gw, "/auth/register", CredentialsRequest{
		Email: "a@x.com", Password: "Password123!",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var user PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Equal(t, "a@x.com", user.Email)
	require.NotEmpty(t, user.Username)

	// no cookies until login
	require.Empty(t, rec.Result().Cookies())

	t.Run("duplicate email passes the 409 through", func(t *testing.T) {
		rec := postJSON(t, gw, "/auth/register", CredentialsRequest{
			Email: "a@x.com", Password: "Password123!",
		}, nil)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Contains(t, rec.Body.String(), "statusCode")
	})
}

func TestLoginSetsCookies(t *testing.T) {
	gw := newTestGateway(t)
	outcome, rec := registerAndLogin(t, gw)

	access := cookieByName(t, rec, accessCookieName)
	require.NotNil(t, access)
	require.Equal(t, outcome.AccessToken, access.Value)
	require.Equal(t, int(15*time.Minute/time.Second), access.MaxAge)
	require.True(t, access.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, access.SameSite)
	require.False(t, access.Secure) // dev mode in tests

	refresh := cookieByName(t, rec, refreshCookieName)
	require.NotNil(t, refresh)
	require.Equal(t, outcome.RefreshToken, refresh.Value)
	require.Equal(t, int(jwtx.DefaultRefreshTokenTTL/time.Second), refresh.MaxAge)
	require.True(t, refresh.HttpOnly)

	t.Run("bad credentials pass the 401 through", func(t *testing.T) {
		rec := postJSON(t, gw, "/auth/login", CredentialsRequest{
			Email: "a@x.com", Password: "WrongPass123!",
		}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Empty(t, rec.Result().Cookies())
	})
}

func TestRefreshTokenEndpoint(t *testing.T) {
	gw := newTestGateway(t)
	outcome, _ := registerAndLogin(t, gw)

	t.Run("missing cookie is a 401 before any RPC call", func(t *testing.T) {
		rec := postJSON(t, gw, "/auth/refreshToken", refreshRequest{UserID: outcome.User.ID}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rotation re-sets both cookies", func(t *testing.T) {
		rec := postJSON(t, gw, "/auth/refreshToken", refreshRequest{UserID: outcome.User.ID},
			func(req *http.Request) {
				req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: outcome.RefreshToken})
			})
		require.Equal(t, http.StatusOK, rec.Code)

		var rotated AuthOutcome
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))
		require.NotEqual(t, outcome.RefreshToken, rotated.RefreshToken)

		refresh := cookieByName(t, rec, refreshCookieName)
		require.NotNil(t, refresh)
		require.Equal(t, rotated.RefreshToken, refresh.Value)

		// the rotated-away token no longer works
		rec = postJSON(t, gw, "/auth/refreshToken", refreshRequest{UserID: outcome.User.ID},
			func(req *http.Request) {
				req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: outcome.RefreshToken})
			})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogoutEndpoints(t *testing.T) {
	gw := newTestGateway(t)
	outcome, _ := registerAndLogin(t, gw)

	withSession := func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+outcome.AccessToken)
		req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: outcome.RefreshToken})
	}

	t.Run("guard rejects before the handler runs", func(t *testing.T) {
		rec := postJSON(t, gw, "/auth/logout", struct{}{}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = postJSON(t, gw, "/auth/logout", struct{}{}, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer garbage")
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired access token is distinguishable", func(t *testing.T) {
		expired, err := jwtx.NewSigner(gwSecret, "pulse-auth", time.Minute).
			Sign(outcome.User.ID, outcome.User.Email, outcome.User.Role, time.Now().Add(-time.Hour))
		require.NoError(t, err)

		rec := postJSON(t, gw, "/auth/logout", struct{}{}, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+expired)
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "TOKEN_EXPIRED")
	})

	t.Run("logout clears both cookies", func(t *testing.T) {
		rec := postJSON(t, gw, "/auth/logout", struct{}{}, withSession)
		require.Equal(t, http.StatusOK, rec.Code)

		for _, name := range []string{accessCookieName, refreshCookieName} {
			c := cookieByName(t, rec, name)
			require.NotNil(t, c, name)
			require.Empty(t, c.Value)
			require.Negative(t, c.MaxAge)
		}
	})

	t.Run("logout with an already-revoked token still clears both cookies", func(t *testing.T) {
		// the session was consumed above, so the cookie is stale; the 401
		// must not strand the dead cookie on the client
		rec := postJSON(t, gw, "/auth/logout", struct{}{}, withSession)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		for _, name := range []string{accessCookieName, refreshCookieName} {
			c := cookieByName(t, rec, name)
			require.NotNil(t, c, name)
			require.Empty(t, c.Value)
			require.Negative(t, c.MaxAge)
		}
	})

	t.Run("logoutAllDevices reports the device count", func(t *testing.T) {
		// logout above consumed the session; log in twice more
		creds := CredentialsRequest{Email: "a@x.com", Password: "Password123!"}
		var last AuthOutcome
		for i := 0; i < 2; i++ {
			rec := postJSON(t, gw, "/auth/login", creds, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &last))
		}

		rec := postJSON(t, gw, "/auth/logoutAllDevices", struct{}{}, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+last.AccessToken)
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp LogoutAllResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.EqualValues(t, 2, resp.DevicesLoggedOut)
	})
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("healthy when the auth service answers", func(t *testing.T) {
		gw := newTestGateway(t)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		gw.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "healthy", resp.Status)
		require.Equal(t, "ok", resp.AuthService)
	})

	t.Run("unhealthy when the auth service is unreachable", func(t *testing.T) {
		gw := NewRouter(
			mediator.New(mediator.NewHTTPTransport("http://127.0.0.1:1")),
			jwtx.NewVerifier(gwSecret, "pulse-auth"),
			15*time.Minute,
			jwtx.DefaultRefreshTokenTTL,
			false,
			"test",
			slog.New(slog.DiscardHandler),
		)
		gw.ApplyRoutes()

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		gw.ServeHTTP(rec, req)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "unhealthy", resp.Status)
	})
}
