package e2e

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
	gatewayhttp "github.com/pulsefeed/pulse/internal/gateway/http"
	"github.com/pulsefeed/pulse/internal/gateway/mediator"
	"github.com/pulsefeed/pulse/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var e2eSecret = []byte("e2e-shared-secret-32-bytes-long!!")

// startStack runs the auth service and the gateway in-process, connected
// over real HTTP, and returns the gateway's base URL.
func startStack(t *testing.T) string {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	sessions := &service.SessionService{
		Store:      st,
		Signer:     jwtx.NewSigner(e2eSecret, "pulse-auth", jwtx.DefaultAccessTokenTTL),
		Verifier:   jwtx.NewVerifier(e2eSecret, "pulse-auth"),
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
	}
	authRouter := rpc.NewRouter(sessions, st, "e2e", slog.New(slog.DiscardHandler))
	authRouter.ApplyRoutes()
	authSrv := httptest.NewServer(authRouter)
	t.Cleanup(authSrv.Close)

	gw := gatewayhttp.NewRouter(
		mediator.New(mediator.NewHTTPTransport(authSrv.URL)),
		jwtx.NewVerifier(e2eSecret, "pulse-auth"),
		15*time.Minute,
		jwtx.DefaultRefreshTokenTTL,
		false,
		"e2e",
		slog.New(slog.DiscardHandler),
	)
	gw.ApplyRoutes()
	gwSrv := httptest.NewServer(gw)
	t.Cleanup(gwSrv.Close)

	return gwSrv.URL
}

type authOutcome struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
	} `json:"user"`
}

func post(t *testing.T, client *http.Client, url string, body any, mutate func(*http.Request)) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// TestSessionLifecycle walks the whole credential lifecycle through the real
// gateway and auth service: register, login, rotate, revoke everything.
func TestSessionLifecycle(t *testing.T) {
	base := startStack(t)
	client := &http.Client{}
	creds := map[string]string{"email": "a@x.com", "password": "Password123!"}

	// register: 201 with a generated username
	resp := post(t, client, base+"/auth/register", creds, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	registered := decodeBody[struct {
		Username string `json:"username"`
	}](t, resp)
	require.NotEmpty(t, registered.Username)

	// login: 200 with tokens and both cookies
	resp = post(t, client, base+"/auth/login", creds, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var accessCookie, refreshCookie *http.Cookie
	for _, c := range resp.Cookies() {
		switch c.Name {
		case "accessToken":
			accessCookie = c
		case "refreshToken":
			refreshCookie = c
		}
	}
	require.NotNil(t, accessCookie)
	require.NotNil(t, refreshCookie)
	require.True(t, refreshCookie.HttpOnly)

	login := decodeBody[authOutcome](t, resp)
	require.NotEmpty(t, login.AccessToken)
	require.Equal(t, login.RefreshToken, refreshCookie.Value)

	// refresh: 200 with new tokens
	resp = post(t, client, base+"/auth/refreshToken",
		map[string]string{"userId": login.User.ID},
		func(req *http.Request) { req.AddCookie(refreshCookie) })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := decodeBody[authOutcome](t, resp)
	require.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	// the old refresh token is now rejected
	resp = post(t, client, base+"/auth/refreshToken",
		map[string]string{"userId": login.User.ID},
		func(req *http.Request) { req.AddCookie(refreshCookie) })
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// logoutAllDevices: exactly one live session
	resp = post(t, client, base+"/auth/logoutAllDevices", struct{}{},
		func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+rotated.AccessToken)
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decodeBody[struct {
		DevicesLoggedOut int `json:"devicesLoggedOut"`
	}](t, resp)
	require.Equal(t, 1, all.DevicesLoggedOut)

	// even the newest refresh token is dead now
	resp = post(t, client, base+"/auth/refreshToken",
		map[string]string{"userId": login.User.ID},
		func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: "refreshToken", Value: rotated.RefreshToken})
		})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
