package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/michalprusek/spheroseg-sub010/internal/auth/domain"
)

func (r *PostgresRepository) Insert(ctx context.Context, rec *domain.RefreshTokenRecord) error {
	query := `INSERT INTO refresh_tokens
	          (token_id, family_id, device_id, user_id, user_agent, ip_address, created_at, expires_at, revoked)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query,
		rec.TokenID, rec.FamilyID, rec.DeviceID, rec.UserID,
		rec.UserAgent, rec.IPAddress, rec.CreatedAt, rec.ExpiresAt, rec.Revoked)
	if err != nil {
		return fmt.Errorf("failed to insert refresh token: %w", err)
	}

	return nil
}

// FindActiveByTokenID returns the unexpired record for a token id, revoked
// or not; the caller distinguishes revoked from missing. Expired records are
// treated as missing.
func (r *PostgresRepository) FindActiveByTokenID(ctx context.Context, tokenID string, now time.Time) (*domain.RefreshTokenRecord, error) {
	query := `SELECT token_id, family_id, device_id, user_id, user_agent, ip_address,
	                 created_at, expires_at, revoked, revoked_at
	          FROM refresh_tokens
	          WHERE token_id = $1 AND expires_at > $2
	          LIMIT 1`
	row := r.db.QueryRow(ctx, query, tokenID, now)

	var rec domain.RefreshTokenRecord
	err := row.Scan(&rec.TokenID, &rec.FamilyID, &rec.DeviceID, &rec.UserID,
		&rec.UserAgent, &rec.IPAddress, &rec.CreatedAt, &rec.ExpiresAt,
		&rec.Revoked, &rec.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}

	return &rec, nil
}

// ConditionalRevoke revokes the record only while it is still active and
// reports whether this call did it. The single UPDATE is the whole race
// protection for rotation: concurrent callers see rows-affected 0.
func (r *PostgresRepository) ConditionalRevoke(ctx context.Context, tokenID string, now time.Time) (bool, error) {
	query := `UPDATE refresh_tokens
	          SET revoked = true, revoked_at = $2
	          WHERE token_id = $1 AND revoked = false AND expires_at > $2`
	tag, err := r.db.Exec(ctx, query, tokenID, now)
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) RevokeFamily(ctx context.Context, familyID string, now time.Time) error {
	query := `UPDATE refresh_tokens
	          SET revoked = true, revoked_at = $2
	          WHERE family_id = $1 AND revoked = false`
	if _, err := r.db.Exec(ctx, query, familyID, now); err != nil {
		return fmt.Errorf("failed to revoke token family: %w", err)
	}

	return nil
}

// RevokeAllForUser bulk-revokes a user's active tokens in one UPDATE,
// honoring the filter's exclusions.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string, filter domain.RevokeFilter, now time.Time) (int64, error) {
	query := `UPDATE refresh_tokens
	          SET revoked = true, revoked_at = $2
	          WHERE user_id = $1 AND revoked = false`
	args := []any{userID, now}

	if filter.ExceptFamilyID != "" {
		args = append(args, filter.ExceptFamilyID)
		query += fmt.Sprintf(" AND family_id <> $%d", len(args))
	}
	if filter.ExceptDeviceID != "" {
		args = append(args, filter.ExceptDeviceID)
		query += fmt.Sprintf(" AND device_id <> $%d", len(args))
	}
	if !filter.OlderThan.IsZero() {
		args = append(args, filter.OlderThan)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke user tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) CountActiveInFamily(ctx context.Context, familyID string, now time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM refresh_tokens
	          WHERE family_id = $1 AND revoked = false AND expires_at > $2`
	row := r.db.QueryRow(ctx, query, familyID, now)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count family tokens: %w", err)
	}

	return count, nil
}

func (r *PostgresRepository) ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]domain.RefreshTokenRecord, error) {
	query := `SELECT token_id, family_id, device_id, user_id, user_agent, ip_address,
	                 created_at, expires_at, revoked, revoked_at
	          FROM refresh_tokens
	          WHERE user_id = $1 AND revoked = false AND expires_at > $2
	          ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list user tokens: %w", err)
	}
	defer rows.Close()

	var records []domain.RefreshTokenRecord
	for rows.Next() {
		var rec domain.RefreshTokenRecord
		if err := rows.Scan(&rec.TokenID, &rec.FamilyID, &rec.DeviceID, &rec.UserID,
			&rec.UserAgent, &rec.IPAddress, &rec.CreatedAt, &rec.ExpiresAt,
			&rec.Revoked, &rec.RevokedAt); err != nil {
			return nil, fmt.Errorf("failed to scan refresh token row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read refresh token rows: %w", err)
	}

	return records, nil
}

// DeleteExpiredOrRevoked removes one bounded batch of terminal rows older
// than the cutoff. The subquery's WHERE can only match expired or revoked
// rows, so active records survive regardless of the limit.
func (r *PostgresRepository) DeleteExpiredOrRevoked(ctx context.Context, olderThan time.Time, limit int) (int64, error) {
	query := `DELETE FROM refresh_tokens
	          WHERE token_id IN (
	              SELECT token_id FROM refresh_tokens
	              WHERE expires_at < $1 OR (revoked = true AND revoked_at < $1)
	              LIMIT $2
	          )`
	tag, err := r.db.Exec(ctx, query, olderThan, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete terminal refresh tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}
