package middleware

import (
	"context"
	"net/http"

	"propertydesk/backend/internal/server/httpjson"
	sessionservice "propertydesk/backend/internal/session/service"
)

// ActivityTracker is the lifecycle operation the activity gate needs.
type ActivityTracker interface {
	TouchActivity(ctx context.Context, accessTokenHash string) (sessionservice.TouchOutcome, error)
}

// ActivityGate runs after the auth gate: it resolves the session behind the
// presented token, advances its idle clock, and rejects dead sessions with a
// reason code. It never queries the blacklist; the auth gate already did.
type ActivityGate struct {
	lifecycle ActivityTracker
}

// NewActivityGate returns an ActivityGate over the given lifecycle.
func NewActivityGate(lifecycle ActivityTracker) *ActivityGate {
	return &ActivityGate{lifecycle: lifecycle}
}

// Wrap returns next guarded by the gate.
func (g *ActivityGate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetIdentity(r.Context())
		if !ok {
			httpjson.Error(w, http.StatusUnauthorized, CodeAuthenticationFailed, "missing or invalid authorization")
			return
		}
		outcome, err := g.lifecycle.TouchActivity(r.Context(), id.TokenHash)
		if err != nil {
			// Fail closed on storage errors, same as the auth gate.
			reject(w, CodeSessionNotFound, "session unavailable")
			return
		}
		// Only TouchOK reaches next; on every other outcome the wrapped
		// handler never runs, so a dead session's identity is never acted on.
		switch outcome {
		case sessionservice.TouchOK:
			next.ServeHTTP(w, r)
		case sessionservice.TouchExpiredIdle:
			reject(w, CodeSessionExpiredIdle, "session expired due to inactivity")
		case sessionservice.TouchExpiredAbsolute:
			reject(w, CodeSessionExpiredAbsolute, "session reached its maximum lifetime")
		default:
			reject(w, CodeSessionNotFound, "session not found")
		}
	})
}

func reject(w http.ResponseWriter, code, message string) {
	httpjson.Error(w, http.StatusUnauthorized, code, message)
}
