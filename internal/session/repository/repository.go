package repository

import (
	"context"
	"time"

	blacklistdomain "propertydesk/backend/internal/blacklist/domain"
	"propertydesk/backend/internal/session/domain"
)

// Repository defines persistence for sessions. Multi-row operations
// (create with eviction, invalidate with blacklisting) are atomic at the
// storage layer so callers never observe partial state.
type Repository interface {
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// GetByAccessTokenHash returns the session owning the access token hash,
	// or nil if not found. This is the request-path lookup.
	GetByAccessTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	// ListActiveByUser returns the user's active sessions ordered by
	// last_activity_at descending.
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// CountActiveByUser returns the number of active sessions for the user.
	CountActiveByUser(ctx context.Context, userID string) (int, error)
	// CreateWithEviction inserts s. If the user already has maxActive active
	// sessions, the oldest by created_at is invalidated first and its token
	// hashes blacklisted with evictReason, all in one atomic unit. Returns the
	// evicted session, or nil when no eviction was needed.
	CreateWithEviction(ctx context.Context, s *domain.Session, maxActive int, evictReason blacklistdomain.Reason) (*domain.Session, error)
	// Invalidate atomically sets active=false and inserts the blacklist
	// entries. Returns false when the session was already inactive (the
	// entries are not inserted again; invalidation is idempotent) or absent.
	Invalidate(ctx context.Context, id string, at time.Time, entries []blacklistdomain.Entry) (bool, error)
	// TouchActivity advances last_activity_at. The update is conditional on
	// the row still being active and on monotonicity, so a touch racing an
	// invalidate can never resurrect a session. Returns false if no row
	// was updated.
	TouchActivity(ctx context.Context, id string, at time.Time) (bool, error)
	// DeleteExpiredBefore removes sessions whose expires_at is before the
	// cutoff, regardless of active flag. Returns the count deleted.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// DeleteInactiveBefore removes invalidated sessions whose invalidated_at
	// is before the cutoff. Returns the count deleted.
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
