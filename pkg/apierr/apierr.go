// Package apierr defines the single API-facing error shape shared by the
// gateway and the RPC surface. Error bodies always carry {statusCode,
// message}; internals are never leaked to callers, only logged.
package apierr

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is an HTTP-status-carrying error. It is used both by handlers (to
// write responses) and by the mediator (to represent remote failures).
type Error struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`

	// Code is an optional machine-readable discriminator for failures that
	// share a status, e.g. TOKEN_EXPIRED vs a merely invalid token.
	Code string `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// Write writes the error to an HTTP response with its status code.
func (e *Error) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

// Predefined errors for the session lifecycle. Messages are deliberately
// generic for credential failures so callers cannot tell which check failed.
var (
	ErrInvalidCredential = &Error{StatusCode: http.StatusUnauthorized, Message: "incorrect email or password"}
	ErrMissingToken      = &Error{StatusCode: http.StatusUnauthorized, Message: "authentication failed: missing token"}
	ErrInvalidToken      = &Error{StatusCode: http.StatusUnauthorized, Message: "authentication token is invalid"}
	ErrTokenExpired      = &Error{StatusCode: http.StatusUnauthorized, Message: "access token has expired", Code: "TOKEN_EXPIRED"}
	ErrMissingRefresh    = &Error{StatusCode: http.StatusUnauthorized, Message: "refresh token is missing"}
	ErrInvalidRefresh    = &Error{StatusCode: http.StatusUnauthorized, Message: "refresh token is invalid or expired"}
	ErrDuplicateEmail    = &Error{StatusCode: http.StatusConflict, Message: "a user with this email already exists"}
	ErrSystemBusy        = &Error{StatusCode: http.StatusConflict, Message: "the system is busy, please try again later"}
	ErrInternal          = &Error{StatusCode: http.StatusInternalServerError, Message: "internal server error"}
)

// New builds an Error with an arbitrary status and message.
func New(status int, message string) *Error {
	return &Error{StatusCode: status, Message: message}
}

// BadRequest is the 400 constructor used by input validation.
func BadRequest(message string) *Error {
	return &Error{StatusCode: http.StatusBadRequest, Message: message}
}

// Forbidden is the 403 constructor for the authorization layer.
func Forbidden(message string) *Error {
	return &Error{StatusCode: http.StatusForbidden, Message: message}
}

// NotFound is the 404 constructor.
func NotFound(message string) *Error {
	return &Error{StatusCode: http.StatusNotFound, Message: message}
}
