// Package handler exposes the login endpoint.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"propertydesk/backend/internal/audit"
	identityservice "propertydesk/backend/internal/identity/service"
	"propertydesk/backend/internal/security"
	"propertydesk/backend/internal/server/authcookie"
	"propertydesk/backend/internal/server/httpjson"
	"propertydesk/backend/internal/server/middleware"
	sessiondomain "propertydesk/backend/internal/session/domain"
)

// CodeInvalidCredentials is the error code for failed logins.
const CodeInvalidCredentials = "INVALID_CREDENTIALS"

// SessionCreator is the lifecycle operation login needs.
type SessionCreator interface {
	Create(ctx context.Context, sessionID, userID string, tokens sessiondomain.IssuedTokens, client sessiondomain.ClientContext) error
}

// Handler serves POST /auth/login.
type Handler struct {
	verifier     *identityservice.Verifier
	tokens       *security.TokenProvider
	lifecycle    SessionCreator
	auditLogger  audit.AuditLogger
	secureCookie bool
}

// NewHandler returns a login handler. auditLogger may be nil.
func NewHandler(verifier *identityservice.Verifier, tokens *security.TokenProvider, lifecycle SessionCreator, auditLogger audit.AuditLogger, secureCookie bool) *Handler {
	return &Handler{
		verifier:     verifier,
		tokens:       tokens,
		lifecycle:    lifecycle,
		auditLogger:  auditLogger,
		secureCookie: secureCookie,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID    string    `json:"sessionId"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Login authenticates email/password, issues tokens, and registers the
// device session. The session ID is generated first because both tokens
// carry it as a claim.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body")
		return
	}
	user, err := h.verifier.Verify(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identityservice.ErrInvalidCredentials) {
			if h.auditLogger != nil {
				h.auditLogger.LogEvent(r.Context(), "", "auth.login_failure", "auth", req.Email)
			}
			httpjson.Error(w, http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password")
			return
		}
		log.Printf("login: verify: %v", err)
		httpjson.Error(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	sessionID := uuid.New().String()
	accessToken, _, accessExp, err := h.tokens.IssueAccess(sessionID, user.ID)
	if err != nil {
		log.Printf("login: issue access token: %v", err)
		httpjson.Error(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	refreshToken, _, refreshExp, err := h.tokens.IssueRefresh(sessionID, user.ID)
	if err != nil {
		log.Printf("login: issue refresh token: %v", err)
		httpjson.Error(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	// The token expiries travel with the session so revocation entries can
	// outlive the session's own deadline.
	tokens := sessiondomain.IssuedTokens{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}
	client := sessiondomain.ClientContext{
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
	if err := h.lifecycle.Create(r.Context(), sessionID, user.ID, tokens, client); err != nil {
		log.Printf("login: create session: %v", err)
		httpjson.Error(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	authcookie.Set(w, refreshToken, h.tokens.RefreshTTL(), h.secureCookie)
	httpjson.Write(w, http.StatusOK, loginResponse{
		SessionID:    sessionID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExp,
	})
}
