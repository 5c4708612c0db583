package rpc

import (
	"net/http"

	"github.com/pulsefeed/pulse/pkg/apierr"
	"github.com/pulsefeed/pulse/pkg/httpx"
)

type validateRequest struct {
	Token string `json:"token"`
}

type validatePayload struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type validateResponse struct {
	Valid   bool             `json:"valid"`
	Payload *validatePayload `json:"payload,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// handleValidate answers the question "is this access token valid" with a
// structured result. Unlike every other pattern it never fails the call:
// a bad token is a 200 with valid=false.
func (rt *Router) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apierr.BadRequest("invalid request body").Write(w)
		return
	}

	claims, err := rt.Sessions.VerifyAccessToken(req.Token)
	if err != nil {
		httpx.WriteJSON(w, http.StatusOK, validateResponse{
			Valid: false,
			Error: err.Error(),
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, validateResponse{
		Valid: true,
		Payload: &validatePayload{
			Sub:   claims.Subject,
			Email: claims.Email,
			Role:  claims.Role,
		},
	})
}
