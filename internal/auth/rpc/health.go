package rpc

import (
	"net/http"
	"time"

	"github.com/pulsefeed/pulse/pkg/httpx"
)

type pingResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

type livezResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// handlePing answers the health.ping pattern. It reports ok as long as the
// store is reachable; the gateway applies its own timeout to the call.
func (rt *Router) handlePing(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := rt.store.Ping(r.Context()); err != nil {
		status = "degraded"
	}
	httpx.WriteJSON(w, http.StatusOK, pingResponse{
		Status:    status,
		Service:   ServiceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleLivez is the process liveness probe; 200 whenever the process runs.
func (rt *Router) handleLivez(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, livezResponse{
		Status:  "ok",
		Uptime:  time.Since(rt.startTime).String(),
		Version: rt.version,
	})
}
