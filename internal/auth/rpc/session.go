package rpc

import (
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"strings"

	"github.com/pulsefeed/pulse/internal/auth/service"
	"github.com/pulsefeed/pulse/pkg/apierr"
	"github.com/pulsefeed/pulse/pkg/httpx"
	"github.com/pulsefeed/pulse/pkg/idx"
	"github.com/pulsefeed/pulse/pkg/slogx"
)

// minPasswordLength is enforced at the edge; the service hashes whatever it
// is given.
const minPasswordLength = 8

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
}

type logoutAllRequest struct {
	UserID string `json:"userId"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type logoutAllResponse struct {
	Message          string `json:"message"`
	DevicesLoggedOut int64  `json:"devicesLoggedOut"`
}

func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apierr.BadRequest("invalid request body").Write(w)
		return
	}
	if apiErr := validateCredentials(req); apiErr != nil {
		apiErr.Write(w)
		return
	}

	user, err := rt.Sessions.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, user)
}

func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apierr.BadRequest("invalid request body").Write(w)
		return
	}
	if apiErr := validateCredentials(req); apiErr != nil {
		apiErr.Write(w)
		return
	}

	outcome, err := rt.Sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, outcome)
}

func (rt *Router) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apierr.BadRequest("invalid request body").Write(w)
		return
	}
	userID, apiErr := parseRefreshInput(req)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}

	outcome, err := rt.Sessions.RefreshToken(r.Context(), userID, req.RefreshToken)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, outcome)
}

func (rt *Router) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apierr.BadRequest("invalid request body").Write(w)
		return
	}
	userID, apiErr := parseRefreshInput(req)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}

	if err := rt.Sessions.Logout(r.Context(), userID, req.RefreshToken); err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

func (rt *Router) handleLogoutAllDevices(w http.ResponseWriter, r *http.Request) {
	var req logoutAllRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apierr.BadRequest("invalid request body").Write(w)
		return
	}
	userID, err := idx.Parse(req.UserID)
	if err != nil {
		apierr.BadRequest("invalid user id").Write(w)
		return
	}

	n, svcErr := rt.Sessions.LogoutAllDevices(r.Context(), userID)
	if svcErr != nil {
		rt.writeServiceError(w, r, svcErr)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, logoutAllResponse{
		Message:          "logged out from all devices",
		DevicesLoggedOut: n,
	})
}

func validateCredentials(req credentialsRequest) *apierr.Error {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return apierr.BadRequest("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apierr.BadRequest("email is not a valid address")
	}
	if len(req.Password) < minPasswordLength {
		return apierr.BadRequest("password must be at least 8 characters")
	}
	return nil
}

func parseRefreshInput(req refreshRequest) (idx.ID, *apierr.Error) {
	if req.RefreshToken == "" {
		return idx.Zero, apierr.ErrMissingRefresh
	}
	userID, err := idx.Parse(req.UserID)
	if err != nil {
		return idx.Zero, apierr.BadRequest("invalid user id")
	}
	return userID, nil
}

// writeServiceError maps session service sentinels onto API-facing errors.
// Anything unmapped is logged and collapsed to a generic 500.
func (rt *Router) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		apierr.ErrInvalidCredential.Write(w)
	case errors.Is(err, service.ErrInvalidRefresh):
		apierr.ErrInvalidRefresh.Write(w)
	case errors.Is(err, service.ErrEmailTaken):
		apierr.ErrDuplicateEmail.Write(w)
	case errors.Is(err, service.ErrUsernameExhausted):
		apierr.ErrSystemBusy.Write(w)
	default:
		slogx.FromContext(r.Context()).Error("rpc handler failed",
			"pattern", patternFromPath(r.URL), "error", err)
		apierr.ErrInternal.Write(w)
	}
}

func patternFromPath(u *url.URL) string {
	return strings.TrimPrefix(u.Path, "/rpc/")
}
