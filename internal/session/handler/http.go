// Package handler exposes the session management endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"propertydesk/backend/internal/server/authcookie"
	"propertydesk/backend/internal/server/httpjson"
	"propertydesk/backend/internal/server/middleware"
	"propertydesk/backend/internal/session/domain"
	sessionservice "propertydesk/backend/internal/session/service"
)

// SessionManager is the slice of the lifecycle the handlers need.
type SessionManager interface {
	Logout(ctx context.Context, accessTokenHash string) error
	RevokeAllUserSessions(ctx context.Context, userID, exceptSessionID string) (int, error)
	RevokeSession(ctx context.Context, userID, sessionID string) error
	ListActive(ctx context.Context, userID string) ([]domain.Info, error)
}

// Handler serves the authenticated session endpoints: logout, logout-all,
// session list, and per-session revoke. All of them run behind both gates,
// so the request identity is always present.
type Handler struct {
	lifecycle    SessionManager
	secureCookie bool
}

// NewHandler returns a session handler.
func NewHandler(lifecycle SessionManager, secureCookie bool) *Handler {
	return &Handler{lifecycle: lifecycle, secureCookie: secureCookie}
}

type statusResponse struct {
	Status string `json:"status"`
}

func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// Logout invalidates the caller's session and clears the refresh cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, middleware.CodeAuthenticationFailed, "missing or invalid authorization")
		return
	}
	if err := h.lifecycle.Logout(r.Context(), id.TokenHash); err != nil {
		if errors.Is(err, sessionservice.ErrSessionNotFound) {
			// The token passed the gates moments ago; treat a vanished
			// session as already logged out.
			authcookie.Clear(w, h.secureCookie)
			httpjson.Write(w, http.StatusOK, statusResponse{Status: "ok"})
			return
		}
		log.Printf("logout: %v", err)
		httpjson.Error(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	authcookie.Clear(w, h.secureCookie)
	httpjson.Write(w, http.StatusOK, statusResponse{Status: "ok"})
}

type logoutAllRequest struct {
	ExceptCurrent bool `json:"exceptCurrent"`
}

type logoutAllResponse struct {
	DevicesCount int `json:"devicesCount"`
}

// LogoutAll invalidates every active session of the caller. With
// exceptCurrent the calling device stays signed in.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, middleware.CodeAuthenticationFailed, "missing or invalid authorization")
		return
	}
	var req logoutAllRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			httpjson.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body")
			return
		}
	}
	except := ""
	if req.ExceptCurrent {
		except = id.SessionID
	}
	count, err := h.lifecycle.RevokeAllUserSessions(r.Context(), id.UserID, except)
	if err != nil {
		log.Printf("logout-all: %v", err)
		httpjson.Error(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if !req.ExceptCurrent {
		authcookie.Clear(w, h.secureCookie)
	}
	httpjson.Write(w, http.StatusOK, logoutAllResponse{DevicesCount: count})
}

type sessionInfoResponse struct {
	SessionID      string    `json:"sessionId"`
	DeviceType     string    `json:"deviceType"`
	IPAddress      string    `json:"ipAddress"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	CreatedAt      time.Time `json:"createdAt"`
	IsCurrent      bool      `json:"isCurrent"`
}

// ListSessions returns the caller's active sessions, current device flagged.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, middleware.CodeAuthenticationFailed, "missing or invalid authorization")
		return
	}
	infos, err := h.lifecycle.ListActive(r.Context(), id.UserID)
	if err != nil {
		log.Printf("list sessions: %v", err)
		httpjson.Error(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	out := make([]sessionInfoResponse, len(infos))
	for i, in := range infos {
		out[i] = sessionInfoResponse{
			SessionID:      in.SessionID,
			DeviceType:     in.DeviceType,
			IPAddress:      in.IPAddress,
			LastActivityAt: in.LastActivityAt,
			CreatedAt:      in.CreatedAt,
			IsCurrent:      in.SessionID == id.SessionID,
		}
	}
	httpjson.Write(w, http.StatusOK, out)
}

// RevokeSession invalidates one of the caller's sessions by ID. Sessions of
// other users are reported as not found.
func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, middleware.CodeAuthenticationFailed, "missing or invalid authorization")
		return
	}
	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		httpjson.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "missing session id")
		return
	}
	if err := h.lifecycle.RevokeSession(r.Context(), id.UserID, sessionID); err != nil {
		if errors.Is(err, sessionservice.ErrSessionNotFound) {
			httpjson.Error(w, http.StatusNotFound, middleware.CodeSessionNotFound, "session not found")
			return
		}
		log.Printf("revoke session: %v", err)
		httpjson.Error(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	httpjson.Write(w, http.StatusOK, statusResponse{Status: "ok"})
}
