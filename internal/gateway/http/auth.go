package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/pulsefeed/pulse/pkg/apierr"
	"github.com/pulsefeed/pulse/pkg/httpx"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

// CredentialsRequest is the register/login request body.
type CredentialsRequest struct {
	Email    string `json:"email" example:"a@x.com"`
	Password string `json:"password" example:"Password123!"`
}

type refreshRequest struct {
	UserID string `json:"userId"`
}

// PublicUser mirrors the auth service's public user projection.
type PublicUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AuthOutcome mirrors the auth service's token pair response.
type AuthOutcome struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         PublicUser `json:"user"`
}

// MessageResponse is a plain confirmation body.
type MessageResponse struct {
	Message string `json:"message"`
}

// LogoutAllResponse reports how many device sessions were revoked.
type LogoutAllResponse struct {
	Message          string `json:"message"`
	DevicesLoggedOut int64  `json:"devicesLoggedOut"`
}

// handleRegister godoc
//
//	@Summary		Register a new account
//	@Description	Creates an account with a server-generated username. No cookies are set; follow with a login.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	json	body	CredentialsRequest	true	"Credentials"
//	@Success		201		{object}	PublicUser
//	@Failure		400		{object}	apierr.Error
//	@Failure		409		{object}	apierr.Error	"Email already registered"
//	@Router			/auth/register [post].
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apierr.BadRequest("invalid request body").Write(w)
		return
	}

	var user PublicUser
	if err := rt.mediator.Call(r.Context(), "auth.register", req, &user); err != nil {
		writeAPIError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, user)
}

// handleLogin godoc
//
//	@Summary		Log in with email and password
//	@Description	Verifies credentials, mints a token pair, and sets the access/refresh cookies.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	json	body	CredentialsRequest	true	"Credentials"
//	@Success		200		{object}	AuthOutcome
//	@Failure		400		{object}	apierr.Error
//	@Failure		401		{object}	apierr.Error	"Bad credentials"
//	@Router			/auth/login [post].
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apierr.BadRequest("invalid request body").Write(w)
		return
	}

	var outcome AuthOutcome
	if err := rt.mediator.Call(r.Context(), "auth.login", req, &outcome); err != nil {
		writeAPIError(w, err)
		return
	}

	rt.setAuthCookies(w, outcome.AccessToken, outcome.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, outcome)
}

// handleRefreshToken godoc
//
//	@Summary		Rotate the refresh token
//	@Description	Reads the refresh cookie, rotates the session, and re-sets both cookies. The previous refresh token is single-use and dies here.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	json	body	refreshRequest	true	"Session owner"
//	@Success		200		{object}	AuthOutcome
//	@Failure		401		{object}	apierr.Error	"Missing, expired, or already-rotated refresh token"
//	@Router			/auth/refreshToken [post].
func (rt *Router) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		apierr.ErrMissingRefresh.Write(w)
		return
	}

	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apierr.BadRequest("invalid request body").Write(w)
		return
	}

	payload := map[string]string{
		"refreshToken": cookie.Value,
		"userId":       req.UserID,
	}

	var outcome AuthOutcome
	if err := rt.mediator.Call(r.Context(), "auth.refreshToken", payload, &outcome); err != nil {
		writeAPIError(w, err)
		return
	}

	rt.setAuthCookies(w, outcome.AccessToken, outcome.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, outcome)
}

// handleLogout godoc
//
//	@Summary		Log out the current device
//	@Description	Revokes the session matching the refresh cookie and clears both cookies.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	MessageResponse
//	@Failure		401	{object}	apierr.Error
//	@Router			/auth/logout [post].
func (rt *Router) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		apierr.ErrMissingRefresh.Write(w)
		return
	}

	payload := map[string]string{
		"refreshToken": cookie.Value,
		"userId":       httpx.UserIDFromContext(r.Context()),
	}

	var resp MessageResponse
	if err := rt.mediator.Call(r.Context(), "auth.logout", payload, &resp); err != nil {
		// A rejected refresh token means the session is already gone
		// elsewhere; leaving the dead cookie behind would make every
		// later logout fail the same way.
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			rt.clearAuthCookies(w)
		}
		writeAPIError(w, err)
		return
	}

	rt.clearAuthCookies(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// handleLogoutAllDevices godoc
//
//	@Summary		Log out every device
//	@Description	Revokes all of the caller's sessions and clears the cookies. Zero revoked sessions is still a success.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	LogoutAllResponse
//	@Failure		401	{object}	apierr.Error
//	@Router			/auth/logoutAllDevices [post].
func (rt *Router) handleLogoutAllDevices(w http.ResponseWriter, r *http.Request) {
	payload := map[string]string{
		"userId": httpx.UserIDFromContext(r.Context()),
	}

	var resp LogoutAllResponse
	if err := rt.mediator.Call(r.Context(), "auth.logoutAllDevices", payload, &resp); err != nil {
		writeAPIError(w, err)
		return
	}

	rt.clearAuthCookies(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// setAuthCookies attaches the freshly minted token pair. Both cookies are
// httpOnly with SameSite=Strict; Secure is on outside dev.
func (rt *Router) setAuthCookies(w http.ResponseWriter, access, refresh string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    access,
		Path:     "/",
		MaxAge:   int(rt.accessTTL / time.Second),
		HttpOnly: true,
		Secure:   rt.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    refresh,
		Path:     "/",
		MaxAge:   int(rt.refreshTTL / time.Second),
		HttpOnly: true,
		Secure:   rt.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (rt *Router) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   rt.secureCookie,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// writeAPIError writes a mediated error; anything that is not an
// *apierr.Error falls back to the generic 500.
func writeAPIError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(*apierr.Error); ok {
		apiErr.Write(w)
		return
	}
	apierr.ErrInternal.Write(w)
}
