// Package rpc exposes the session service's RPC surface. Every pattern is
// served as POST /rpc/{pattern} with a JSON body, mirroring request/response
// messaging: one request in, exactly one response out, errors carried as
// {statusCode, message} bodies.
package rpc

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pulsefeed/pulse/internal/auth/service"
	"github.com/pulsefeed/pulse/internal/auth/store"
	"github.com/pulsefeed/pulse/pkg/httpx"
	"github.com/pulsefeed/pulse/pkg/slogx"
)

const ServiceName = "pulse-auth"

// Router holds shared dependencies for the RPC handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	Sessions *service.SessionService

	store     store.Store
	startTime time.Time
	version   string
	logger    *slog.Logger
}

func NewRouter(sessions *service.SessionService, st store.Store, version string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		Sessions:  sessions,
		store:     st,
		startTime: time.Now(),
		version:   version,
		logger:    logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.Mux.HandleFunc("POST /rpc/auth.register", r.handleRegister)
	r.Mux.HandleFunc("POST /rpc/auth.login", r.handleLogin)
	r.Mux.HandleFunc("POST /rpc/auth.refreshToken", r.handleRefreshToken)
	r.Mux.HandleFunc("POST /rpc/auth.logout", r.handleLogout)
	r.Mux.HandleFunc("POST /rpc/auth.logoutAllDevices", r.handleLogoutAllDevices)
	r.Mux.HandleFunc("POST /rpc/auth.validate", r.handleValidate)
	r.Mux.HandleFunc("POST /rpc/health.ping", r.handlePing)

	r.Mux.HandleFunc("GET /livez", r.handleLivez)
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}
