package http

import (
	"context"
	"net/http"
	"time"

	"github.com/pulsefeed/pulse/pkg/httpx"
)

// healthCheckTimeout bounds the mediated ping so the probe never hangs on a
// stuck auth service.
const healthCheckTimeout = 5 * time.Second

// HealthResponse aggregates the gateway's own status with the auth
// service's answer to health.ping.
type HealthResponse struct {
	Status      string `json:"status"`
	AuthService string `json:"authService"`
	Uptime      string `json:"uptime"`
	Version     string `json:"version"`
}

type pingResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// handleHealth godoc
//
//	@Summary		Aggregated health check
//	@Description	Pings the auth service over the RPC channel with a bounded timeout and reports healthy, degraded, or unhealthy.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/health [get].
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:  "healthy",
		Uptime:  time.Since(rt.startTime).String(),
		Version: rt.buildVersion,
	}

	var ping pingResponse
	if err := rt.mediator.Call(ctx, "health.ping", struct{}{}, &ping); err != nil {
		resp.Status = "unhealthy"
		resp.AuthService = "unreachable"
		httpx.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	resp.AuthService = ping.Status
	if ping.Status != "ok" {
		resp.Status = "degraded"
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// handleLivez always answers 200 while the gateway process runs.
func (rt *Router) handleLivez(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"uptime":  time.Since(rt.startTime).String(),
		"version": rt.buildVersion,
	})
}
