package repository

import (
	"context"
	"database/sql"
	"time"

	"propertydesk/backend/internal/blacklist/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a blacklist repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Exists reports whether tokenHash is revoked. Primary-key lookup; this is
// the hot path consulted by the authentication gate on every request.
func (r *PostgresRepository) Exists(ctx context.Context, tokenHash string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE token_hash = $1)`,
		tokenHash,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Insert persists the entry. A duplicate token_hash is a no-op so that
// invalidation stays idempotent.
func (r *PostgresRepository) Insert(ctx context.Context, e *domain.Entry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO token_blacklist (token_hash, token_type, reason, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (token_hash) DO NOTHING`,
		e.TokenHash, string(e.TokenType), string(e.Reason), e.ExpiresAt, e.CreatedAt,
	)
	return err
}

// DeleteExpired removes entries with expires_at before the cutoff and returns the count.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM token_blacklist WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
