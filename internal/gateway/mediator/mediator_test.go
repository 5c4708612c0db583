package mediator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pulsefeed/pulse/pkg/apierr"
	"github.com/pulsefeed/pulse/pkg/httpx"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	status int
	body   []byte
	err    error

	gotPattern string
	gotPayload []byte
}

func (s *stubTransport) Send(ctx context.Context, pattern string, payload []byte) (int, []byte, error) {
	s.gotPattern = pattern
	s.gotPayload = payload
	return s.status, s.body, s.err
}

func TestCallDecodesSuccess(t *testing.T) {
	stub := &stubTransport{status: http.StatusOK, body: []byte(`{"message":"ok"}`)}
	m := New(stub)

	var out struct {
		Message string `json:"message"`
	}
	err := m.Call(context.Background(), "auth.logout", map[string]string{"userId": "u1"}, &out)
	require.NoError(t, err)
	require.Equal(t, "ok", out.Message)
	require.Equal(t, "auth.logout", stub.gotPattern)
	require.JSONEq(t, `{"userId":"u1"}`, string(stub.gotPayload))
}

func TestCallPassesRemoteStatusThrough(t *testing.T) {
	stub := &stubTransport{
		status: http.StatusConflict,
		body:   []byte(`{"statusCode":409,"message":"a user with this email already exists"}`),
	}
	m := New(stub)

	err := m.Call(context.Background(), "auth.register", map[string]string{}, nil)
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)
	require.Equal(t, "a user with this email already exists", apiErr.Message)
}

func TestCallCollapsesUnshapedFailures(t *testing.T) {
	t.Run("transport error", func(t *testing.T) {
		m := New(&stubTransport{err: errors.New("connection refused")})
		err := m.Call(context.Background(), "health.ping", map[string]string{}, nil)
		var apiErr *apierr.Error
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	})

	t.Run("non-JSON error body", func(t *testing.T) {
		m := New(&stubTransport{status: http.StatusBadGateway, body: []byte("upstream died")})
		err := m.Call(context.Background(), "health.ping", map[string]string{}, nil)
		var apiErr *apierr.Error
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
		// the remote detail is not leaked
		require.NotContains(t, apiErr.Message, "upstream")
	})
}

func TestCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	m := New(NewHTTPTransport(srv.URL))
	m.Timeout = 50 * time.Millisecond

	err := m.Call(context.Background(), "health.ping", map[string]string{}, nil)
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestHTTPTransportRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rpc/auth.login", r.URL.Path)
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"access_token": "tok"})
	}))
	defer srv.Close()

	status, body, err := NewHTTPTransport(srv.URL).Send(
		context.Background(), "auth.login", []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, string(body), "access_token")
}
