package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pulsefeed/pulse/internal/gateway/mediator"
	"github.com/pulsefeed/pulse/pkg/httpx"
	"github.com/pulsefeed/pulse/pkg/jwtx"
	"github.com/pulsefeed/pulse/pkg/slogx"

	_ "github.com/pulsefeed/pulse/api/gateway" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for the gateway HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	mediator *mediator.Mediator
	verifier *jwtx.Verifier

	accessTTL    time.Duration
	refreshTTL   time.Duration
	secureCookie bool

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
}

func NewRouter(
	med *mediator.Mediator,
	verifier *jwtx.Verifier,
	accessTTL, refreshTTL time.Duration,
	secureCookie bool,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		mediator:     med,
		verifier:     verifier,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		secureCookie: secureCookie,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Pulse Gateway API
//	@version		0.1.0
//	@description	Public HTTP gateway for the Pulse backend. Forwards requests to the
//	@description	authentication service and manages the access/refresh token cookies.
//
//	@contact.name				Pulse Team
//	@contact.url				https://github.com/pulsefeed/pulse
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// Credential endpoints get the strict limit; token churn gets moderate.
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(http.HandlerFunc(r.handleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(r.handleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))
	r.Mux.Handle("POST /auth/refreshToken",
		httpx.Chain(http.HandlerFunc(r.handleRefreshToken),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		))

	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(r.handleLogout),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		))
	r.Mux.Handle("POST /auth/logoutAllDevices",
		httpx.Chain(http.HandlerFunc(r.handleLogoutAllDevices),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		))
}

func (r *Router) registerSystem() {
	r.Mux.HandleFunc("GET /health", r.handleHealth)
	r.Mux.HandleFunc("GET /livez", r.handleLivez)
}
