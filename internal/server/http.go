// Package server assembles the HTTP API: routes, the ordered gate pipeline,
// and otelhttp instrumentation.
package server

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	healthhandler "propertydesk/backend/internal/health/handler"
	identityhandler "propertydesk/backend/internal/identity/handler"
	"propertydesk/backend/internal/server/middleware"
	sessionhandler "propertydesk/backend/internal/session/handler"
)

// Deps holds the assembled handlers and gates.
type Deps struct {
	// Login serves POST /auth/login (public).
	Login *identityhandler.Handler
	// Sessions serves the authenticated session endpoints.
	Sessions *sessionhandler.Handler
	// Health serves GET /healthz (public).
	Health *healthhandler.Handler
	// AuthGate and ActivityGate guard every non-public route, in that order:
	// token validity and revocation first, then the session's clocks. An
	// unauthenticated request must never advance a session's idle clock.
	AuthGate     *middleware.AuthGate
	ActivityGate *middleware.ActivityGate
}

// NewHandler builds the root handler. Login and healthz are public; every
// other route runs behind the auth and activity gates.
func NewHandler(deps Deps) http.Handler {
	protect := func(h http.HandlerFunc) http.Handler {
		return deps.AuthGate.Wrap(deps.ActivityGate.Wrap(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", deps.Login.Login)
	mux.Handle("POST /auth/logout", protect(deps.Sessions.Logout))
	mux.Handle("POST /auth/logout-all", protect(deps.Sessions.LogoutAll))
	mux.Handle("GET /auth/sessions", protect(deps.Sessions.ListSessions))
	mux.Handle("POST /auth/sessions/{sessionId}/revoke", protect(deps.Sessions.RevokeSession))
	mux.HandleFunc("GET /healthz", deps.Health.Healthz)

	var root http.Handler = mux
	root = middleware.WithClientIPContext(root)
	return otelhttp.NewHandler(root, "propertydesk-api")
}
