package middleware

import (
	"context"
	"net/http"
	"strings"

	"propertydesk/backend/internal/security"
	"propertydesk/backend/internal/server/httpjson"
)

const bearerPrefix = "bearer "

// Error codes surfaced by the gates.
const (
	CodeAuthenticationFailed   = "AUTHENTICATION_FAILED"
	CodeTokenRevoked           = "TOKEN_REVOKED"
	CodeSessionNotFound        = "SESSION_NOT_FOUND"
	CodeSessionExpiredIdle     = "SESSION_EXPIRED_IDLE"
	CodeSessionExpiredAbsolute = "SESSION_EXPIRED_ABSOLUTE"
)

// BlacklistChecker is the single blacklist query the auth gate needs.
type BlacklistChecker interface {
	Exists(ctx context.Context, tokenHash string) (bool, error)
}

// AuthGate validates the Bearer access token and checks the blacklist
// before any business logic runs. It attaches the caller's Identity to the
// request context. Runs on every protected request, so the blacklist check
// is a single indexed lookup.
type AuthGate struct {
	tokens    *security.TokenProvider
	blacklist BlacklistChecker
}

// NewAuthGate returns an AuthGate using the given token provider and blacklist.
func NewAuthGate(tokens *security.TokenProvider, blacklist BlacklistChecker) *AuthGate {
	return &AuthGate{tokens: tokens, blacklist: blacklist}
}

// Wrap returns next guarded by the gate.
func (g *AuthGate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r.Header)
		if token == "" {
			httpjson.Error(w, http.StatusUnauthorized, CodeAuthenticationFailed, "missing or invalid authorization")
			return
		}
		ti, err := g.tokens.ValidateAccess(token)
		if err != nil {
			httpjson.Error(w, http.StatusUnauthorized, CodeAuthenticationFailed, "missing or invalid authorization")
			return
		}
		hash := security.HashToken(token)
		revoked, err := g.blacklist.Exists(r.Context(), hash)
		if err != nil {
			// Fail closed: a blacklist we cannot read is a blacklist that
			// might contain this token.
			httpjson.Error(w, http.StatusUnauthorized, CodeAuthenticationFailed, "authorization check unavailable")
			return
		}
		if revoked {
			httpjson.Error(w, http.StatusUnauthorized, CodeTokenRevoked, "token has been revoked")
			return
		}
		ctx := WithIdentity(r.Context(), Identity{
			UserID:    ti.UserID,
			SessionID: ti.SessionID,
			TokenHash: hash,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractBearer returns the Bearer token from the Authorization header, or
// "" if missing or malformed.
func extractBearer(h http.Header) string {
	v := strings.TrimSpace(h.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
