package repository

import (
	"context"
	"time"

	"propertydesk/backend/internal/blacklist/domain"
)

// Repository defines persistence for the token revocation ledger.
// Exists runs on every authenticated request and must be a single
// indexed lookup.
type Repository interface {
	Exists(ctx context.Context, tokenHash string) (bool, error)
	Insert(ctx context.Context, e *domain.Entry) error
	// DeleteExpired removes entries whose expires_at is before the cutoff
	// and returns the number of rows deleted.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
