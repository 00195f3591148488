// Package service implements the session lifecycle: creation with bounded
// concurrent sessions per user, per-request activity tracking against two
// expiry clocks, and invalidation backed by the token blacklist.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"propertydesk/backend/internal/audit"
	blacklistdomain "propertydesk/backend/internal/blacklist/domain"
	"propertydesk/backend/internal/platform/useragent"
	"propertydesk/backend/internal/security"
	"propertydesk/backend/internal/session/domain"
	sessionrepo "propertydesk/backend/internal/session/repository"
)

// Sentinel errors; handlers map them to HTTP status codes.
var (
	// ErrSessionNotFound is returned when no session matches, and also when a
	// session exists but belongs to another user, so callers cannot probe for
	// the existence of other users' sessions.
	ErrSessionNotFound = errors.New("session not found")
)

// TouchOutcome is the result of evaluating a request against the session's
// two expiry clocks.
type TouchOutcome int

const (
	TouchOK TouchOutcome = iota
	TouchExpiredIdle
	TouchExpiredAbsolute
	TouchNotFound
)

const userLockStripes = 64

// Lifecycle owns all session mutation. The gates and handlers read through
// it; nothing else writes sessions or the blacklist.
type Lifecycle struct {
	sessions        sessionrepo.Repository
	idleTimeout     time.Duration
	absoluteTimeout time.Duration
	maxSessions     int
	auditLogger     audit.AuditLogger
	now             func() time.Time

	// userLocks serializes create() per user so concurrent logins at the cap
	// cannot both skip eviction. The repository transaction closes the same
	// race at the storage layer; the lock keeps the window from ever opening.
	userLocks [userLockStripes]sync.Mutex
}

// NewLifecycle returns a Lifecycle with the given store and timeout policy.
// auditLogger may be nil to disable audit events.
func NewLifecycle(sessions sessionrepo.Repository, idleTimeout, absoluteTimeout time.Duration, maxSessions int, auditLogger audit.AuditLogger) *Lifecycle {
	return &Lifecycle{
		sessions:        sessions,
		idleTimeout:     idleTimeout,
		absoluteTimeout: absoluteTimeout,
		maxSessions:     maxSessions,
		auditLogger:     auditLogger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the clock. For tests only.
func (l *Lifecycle) SetNow(now func() time.Time) { l.now = now }

func (l *Lifecycle) userLock(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &l.userLocks[h.Sum32()%userLockStripes]
}

// Create registers a new device session for userID under the given ID,
// evicting the user's oldest active session when the concurrency cap is
// reached. The ID is supplied by the caller because the tokens carry it as a
// claim and must be issued first. Raw tokens are hashed and discarded; only
// the hashes are stored.
func (l *Lifecycle) Create(ctx context.Context, sessionID, userID string, tokens domain.IssuedTokens, client domain.ClientContext) error {
	mu := l.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	now := l.now()
	s := &domain.Session{
		ID:               sessionID,
		UserID:           userID,
		AccessTokenHash:  security.HashToken(tokens.AccessToken),
		RefreshTokenHash: security.HashToken(tokens.RefreshToken),
		AccessExpiresAt:  tokens.AccessExpiresAt,
		RefreshExpiresAt: tokens.RefreshExpiresAt,
		IPAddress:        client.IPAddress,
		UserAgent:        client.UserAgent,
		DeviceType:       useragent.DeviceType(client.UserAgent),
		Active:           true,
		CreatedAt:        now,
		LastActivityAt:   now,
		ExpiresAt:        now.Add(l.absoluteTimeout),
	}

	evicted, err := l.sessions.CreateWithEviction(ctx, s, l.maxSessions, blacklistdomain.ReasonLogout)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if evicted != nil {
		l.auditEvent(ctx, userID, "session.evicted", evicted.ID, "max concurrent sessions reached")
	}
	l.auditEvent(ctx, userID, "session.created", s.ID, client.IPAddress)
	return nil
}

// TouchActivity looks up the session by the hash of the presented access
// token and evaluates both expiry clocks. Idle is checked before absolute so
// a long-idle session reports the more actionable reason. On OK the
// activity timestamp advances; either expiry invalidates the session.
//
// Equality is not expiry: a request arriving exactly idleTimeout after the
// previous one is still in time, and a session is dead only strictly after
// its stored expires_at.
func (l *Lifecycle) TouchActivity(ctx context.Context, accessTokenHash string) (TouchOutcome, error) {
	s, err := l.sessions.GetByAccessTokenHash(ctx, accessTokenHash)
	if err != nil {
		return TouchNotFound, fmt.Errorf("touch activity: %w", err)
	}
	if s == nil || !s.Active {
		return TouchNotFound, nil
	}

	now := l.now()
	if now.Sub(s.LastActivityAt) > l.idleTimeout {
		if err := l.Invalidate(ctx, s, blacklistdomain.ReasonIdleTimeout); err != nil {
			return TouchExpiredIdle, err
		}
		return TouchExpiredIdle, nil
	}
	// The stored expires_at is the single source of truth for absolute age;
	// it was fixed at creation and is never recomputed from wall-clock deltas.
	if now.After(s.ExpiresAt) {
		if err := l.Invalidate(ctx, s, blacklistdomain.ReasonAbsoluteTimeout); err != nil {
			return TouchExpiredAbsolute, err
		}
		return TouchExpiredAbsolute, nil
	}

	if _, err := l.sessions.TouchActivity(ctx, s.ID, now); err != nil {
		return TouchNotFound, fmt.Errorf("touch activity: %w", err)
	}
	return TouchOK, nil
}

// Invalidate terminates the session: active goes false (terminal) and both
// token hashes enter the blacklist in the same atomic unit. Invalidating an
// already-inactive session is a no-op.
//
// Each blacklist entry lives until its token's own expiry, so a revoked
// token is rejected for as long as it could still be presented, even when
// that outlasts the session's absolute deadline.
func (l *Lifecycle) Invalidate(ctx context.Context, s *domain.Session, reason blacklistdomain.Reason) error {
	now := l.now()
	applied, err := l.sessions.Invalidate(ctx, s.ID, now, s.BlacklistEntries(reason, now))
	if err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	if applied {
		l.auditEvent(ctx, s.UserID, "session.invalidated", s.ID, string(reason))
	}
	return nil
}

// Logout finds the caller's session by access-token hash and invalidates it.
func (l *Lifecycle) Logout(ctx context.Context, accessTokenHash string) error {
	s, err := l.sessions.GetByAccessTokenHash(ctx, accessTokenHash)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if s == nil {
		return ErrSessionNotFound
	}
	return l.Invalidate(ctx, s, blacklistdomain.ReasonLogout)
}

// RevokeAllUserSessions invalidates every active session of userID except
// exceptSessionID (empty to revoke all). Returns the number invalidated.
func (l *Lifecycle) RevokeAllUserSessions(ctx context.Context, userID, exceptSessionID string) (int, error) {
	active, err := l.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}
	count := 0
	for _, s := range active {
		if s.ID == exceptSessionID {
			continue
		}
		if err := l.Invalidate(ctx, s, blacklistdomain.ReasonLogoutAll); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// RevokeSession invalidates one of the caller's sessions by its opaque ID.
// A session owned by a different user reports ErrSessionNotFound, identical
// to an absent one.
func (l *Lifecycle) RevokeSession(ctx context.Context, userID, sessionID string) error {
	s, err := l.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if s == nil || s.UserID != userID {
		return ErrSessionNotFound
	}
	return l.Invalidate(ctx, s, blacklistdomain.ReasonLogout)
}

// ListActive returns the user's active sessions, most recently used first,
// projected without token hashes.
func (l *Lifecycle) ListActive(ctx context.Context, userID string) ([]domain.Info, error) {
	active, err := l.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]domain.Info, len(active))
	for i, s := range active {
		out[i] = s.Info()
	}
	return out, nil
}

func (l *Lifecycle) auditEvent(ctx context.Context, userID, action, resource, metadata string) {
	if l.auditLogger == nil {
		return
	}
	l.auditLogger.LogEvent(ctx, userID, action, resource, metadata)
}
