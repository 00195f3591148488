package domain

import "time"

// TokenType identifies which of the two bearer tokens an entry revokes.
type TokenType string

const (
	TokenTypeAccess  TokenType = "ACCESS"
	TokenTypeRefresh TokenType = "REFRESH"
)

// Reason records why a token was revoked. Clients use it to choose between
// silent refresh and forced re-login.
type Reason string

const (
	ReasonLogout            Reason = "LOGOUT"
	ReasonLogoutAll         Reason = "LOGOUT_ALL"
	ReasonIdleTimeout       Reason = "IDLE_TIMEOUT"
	ReasonAbsoluteTimeout   Reason = "ABSOLUTE_TIMEOUT"
	ReasonPasswordReset     Reason = "PASSWORD_RESET"
	ReasonSecurityViolation Reason = "SECURITY_VIOLATION"
)

// Entry is one revoked token. ExpiresAt is the owning session's absolute
// expiry, an upper bound on how long either token could still be presented,
// so the row can be reaped once the token would have died anyway.
// One row per TokenHash; re-revoking the same token is a no-op.
type Entry struct {
	TokenHash string
	TokenType TokenType
	Reason    Reason
	ExpiresAt time.Time
	CreatedAt time.Time
}
