package domain

import (
	"time"

	blacklistdomain "propertydesk/backend/internal/blacklist/domain"
)

// Session represents one authenticated device/login instance, tracked
// independently of the tokens issued for it. ID is an opaque client-facing
// reference only; request-path lookups go through AccessTokenHash.
type Session struct {
	ID               string
	UserID           string
	AccessTokenHash  string
	RefreshTokenHash string
	AccessExpiresAt  time.Time // the access token's exp claim
	RefreshExpiresAt time.Time // the refresh token's exp claim
	IPAddress        string
	UserAgent        string
	DeviceType       string
	Active           bool
	CreatedAt        time.Time
	LastActivityAt   time.Time
	ExpiresAt        time.Time  // fixed at CreatedAt + absolute timeout
	InvalidatedAt    *time.Time // nil while active; set once, never cleared
}

// IssuedTokens is the raw token pair handed to the client at login, with
// each token's own expiry. The raw tokens are hashed before storage.
type IssuedTokens struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// BlacklistEntries builds the revocation entries for both of the session's
// tokens. Each entry lives until its token's own expiry, which can be well
// past the session's absolute deadline (a refresh token issued at login
// outlives a 12h session by default), so a revoked token stays rejected for
// as long as it could still be presented. The session deadline bounds an
// entry only when the token expiry is unknown.
func (s *Session) BlacklistEntries(reason blacklistdomain.Reason, now time.Time) []blacklistdomain.Entry {
	return []blacklistdomain.Entry{
		{TokenHash: s.AccessTokenHash, TokenType: blacklistdomain.TokenTypeAccess, Reason: reason, ExpiresAt: orDeadline(s.AccessExpiresAt, s.ExpiresAt), CreatedAt: now},
		{TokenHash: s.RefreshTokenHash, TokenType: blacklistdomain.TokenTypeRefresh, Reason: reason, ExpiresAt: orDeadline(s.RefreshExpiresAt, s.ExpiresAt), CreatedAt: now},
	}
}

func orDeadline(tokenExp, deadline time.Time) time.Time {
	if tokenExp.IsZero() {
		return deadline
	}
	return tokenExp
}

// Info is the client-facing projection of a session: no token hashes.
type Info struct {
	SessionID      string
	DeviceType     string
	IPAddress      string
	LastActivityAt time.Time
	CreatedAt      time.Time
}

// Info returns the projection of s exposed on the session list.
func (s *Session) Info() Info {
	return Info{
		SessionID:      s.ID,
		DeviceType:     s.DeviceType,
		IPAddress:      s.IPAddress,
		LastActivityAt: s.LastActivityAt,
		CreatedAt:      s.CreatedAt,
	}
}

// ClientContext carries the request attributes captured at login.
type ClientContext struct {
	IPAddress string
	UserAgent string
}
