package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	blacklistdomain "propertydesk/backend/internal/blacklist/domain"
	"propertydesk/backend/internal/session/domain"
)

const sessionColumns = `id, user_id, access_token_hash, refresh_token_hash, access_expires_at,
	refresh_expires_at, ip_address, user_agent, device_type, active, created_at,
	last_activity_at, expires_at, invalidated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetByAccessTokenHash returns the session owning the access token hash, or nil if not found.
func (r *PostgresRepository) GetByAccessTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE access_token_hash = $1`, hash)
	return scanSession(row)
}

// ListActiveByUser returns the user's active sessions ordered by last_activity_at descending.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND active
		 ORDER BY last_activity_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountActiveByUser returns the number of active sessions for the user.
func (r *PostgresRepository) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE user_id = $1 AND active`, userID).Scan(&n)
	return n, err
}

// CreateWithEviction inserts s, first evicting the user's oldest active
// session when the cap is reached. The user's active rows are locked for the
// duration of the transaction, so two concurrent logins at the limit cannot
// both skip eviction.
func (r *PostgresRepository) CreateWithEviction(ctx context.Context, s *domain.Session, maxActive int, evictReason blacklistdomain.Reason) (*domain.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND active
		 ORDER BY created_at ASC
		 FOR UPDATE`, s.UserID)
	if err != nil {
		return nil, err
	}
	var active []*domain.Session
	for rows.Next() {
		row, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		active = append(active, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var evicted *domain.Session
	if len(active) >= maxActive {
		// Oldest by created_at; the ORDER BY above breaks ties ascending.
		evicted = active[0]
		if err := invalidateTx(ctx, tx, evicted.ID, s.CreatedAt, evicted.BlacklistEntries(evictReason, s.CreatedAt)); err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		s.ID, s.UserID, s.AccessTokenHash, s.RefreshTokenHash,
		s.AccessExpiresAt, s.RefreshExpiresAt,
		nullString(s.IPAddress), nullString(s.UserAgent), s.DeviceType, s.Active,
		s.CreatedAt, s.LastActivityAt, s.ExpiresAt, timeToNullTime(s.InvalidatedAt))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return evicted, nil
}

// Invalidate atomically sets active=false and inserts the blacklist entries.
// Returns false when the session was already inactive or absent.
func (r *PostgresRepository) Invalidate(ctx context.Context, id string, at time.Time, entries []blacklistdomain.Entry) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET active = FALSE, invalidated_at = $2
		 WHERE id = $1 AND active`, id, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Already inactive (terminal) or unknown id; nothing to blacklist.
		return false, tx.Commit()
	}

	for i := range entries {
		e := &entries[i]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO token_blacklist (token_hash, token_type, reason, expires_at, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (token_hash) DO NOTHING`,
			e.TokenHash, string(e.TokenType), string(e.Reason), e.ExpiresAt, e.CreatedAt)
		if err != nil {
			return false, err
		}
	}
	return true, tx.Commit()
}

// TouchActivity advances last_activity_at; conditional on the row being
// active and the timestamp non-decreasing.
func (r *PostgresRepository) TouchActivity(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity_at = $2
		 WHERE id = $1 AND active AND last_activity_at <= $2`, id, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteExpiredBefore removes sessions whose expires_at is before the cutoff.
func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteInactiveBefore removes invalidated sessions whose invalidated_at is before the cutoff.
func (r *PostgresRepository) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE NOT active AND invalidated_at IS NOT NULL AND invalidated_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func invalidateTx(ctx context.Context, tx *sql.Tx, id string, at time.Time, entries []blacklistdomain.Entry) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET active = FALSE, invalidated_at = $2
		 WHERE id = $1 AND active`, id, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	for i := range entries {
		e := &entries[i]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO token_blacklist (token_hash, token_type, reason, expires_at, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (token_hash) DO NOTHING`,
			e.TokenHash, string(e.TokenType), string(e.Reason), e.ExpiresAt, e.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var ip, ua sql.NullString
	var invalidatedAt sql.NullTime
	err := row.Scan(&s.ID, &s.UserID, &s.AccessTokenHash, &s.RefreshTokenHash,
		&s.AccessExpiresAt, &s.RefreshExpiresAt,
		&ip, &ua, &s.DeviceType, &s.Active,
		&s.CreatedAt, &s.LastActivityAt, &s.ExpiresAt, &invalidatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.IPAddress = ip.String
	s.UserAgent = ua.String
	s.InvalidatedAt = nullTimeToPtr(invalidatedAt)
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
