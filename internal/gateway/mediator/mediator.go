// Package mediator is the single translation point between the gateway and
// the auth service's RPC surface. Every call sends one request and awaits
// exactly one response; remote failures carrying a status code are re-raised
// locally with the same status and message, anything else collapses to a
// generic internal error.
package mediator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pulsefeed/pulse/pkg/apierr"
	"github.com/pulsefeed/pulse/pkg/slogx"
)

// DefaultCallTimeout bounds every mediated call so a stuck service cannot
// hold gateway requests open indefinitely.
const DefaultCallTimeout = 5 * time.Second

// Transport carries one request/response exchange for a pattern. It returns
// the remote status code and raw response body.
type Transport interface {
	Send(ctx context.Context, pattern string, payload []byte) (status int, body []byte, err error)
}

// Mediator wraps a Transport with error translation and a per-call timeout.
type Mediator struct {
	Transport Transport
	Timeout   time.Duration
}

func New(t Transport) *Mediator {
	return &Mediator{Transport: t, Timeout: DefaultCallTimeout}
}

// Call sends in to the given pattern and decodes the response into out (out
// may be nil when the caller ignores the body). The returned error is always
// an *apierr.Error.
func (m *Mediator) Call(ctx context.Context, pattern string, in, out any) error {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(in)
	if err != nil {
		slogx.FromContext(ctx).Error("mediator marshal failed",
			slog.String("pattern", pattern), "error", err)
		return apierr.ErrInternal
	}

	status, body, err := m.Transport.Send(ctx, pattern, payload)
	if err != nil {
		slogx.FromContext(ctx).Error("mediator call failed",
			slog.String("pattern", pattern), "error", err)
		return apierr.ErrInternal
	}

	if status < 200 || status > 299 {
		return translateRemoteError(ctx, pattern, status, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		slogx.FromContext(ctx).Error("mediator decode failed",
			slog.String("pattern", pattern), "error", err)
		return apierr.ErrInternal
	}
	return nil
}

// translateRemoteError re-raises a status-carrying remote error as-is, and
// collapses anything without a usable status into a generic 500.
func translateRemoteError(ctx context.Context, pattern string, status int, body []byte) *apierr.Error {
	var remote apierr.Error
	if err := json.Unmarshal(body, &remote); err == nil && remote.StatusCode != 0 {
		return &remote
	}

	slogx.FromContext(ctx).Error("mediator received unshaped error",
		slog.String("pattern", pattern), slog.Int("status", status))
	return apierr.ErrInternal
}

// HTTPTransport sends patterns as POST {BaseURL}/rpc/{pattern}.
type HTTPTransport struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
	}
}

func (t *HTTPTransport) Send(ctx context.Context, pattern string, payload []byte) (int, []byte, error) {
	url := t.BaseURL + "/rpc/" + pattern
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, body, nil
}
