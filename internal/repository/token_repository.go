package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type TokenRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

func NewTokenRepository(db *pgxpool.Pool, log zerolog.Logger) *TokenRepository {
	return &TokenRepository{db: db, log: log}
}

// Replace issues a token for its (user, device name, ip) triple, revoking any
// prior token for the same triple in the same transaction so two tokens are
// never simultaneously live for one device.
func (r *TokenRepository) Replace(ctx context.Context, t *AccessToken) error {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM access_tokens WHERE user_id = $1 AND name = $2 AND ip_address = $3`,
		t.UserID, t.Name, t.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke prior token: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO access_tokens (id, user_id, name, token_hash, ip_address, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.UserID, t.Name, t.TokenHash, t.IPAddress, t.CreatedAt, t.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit token replacement: %w", err)
	}
	return nil
}

// GetByHash resolves a presented secret's digest to its token record.
func (r *TokenRepository) GetByHash(ctx context.Context, digest string) (*AccessToken, error) {
	t := &AccessToken{}

	query := `
		SELECT id, user_id, name, token_hash, ip_address, created_at, last_used_at, expires_at
		FROM access_tokens
		WHERE token_hash = $1
	`

	err := r.db.QueryRow(ctx, query, digest).Scan(
		&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.IPAddress,
		&t.CreatedAt, &t.LastUsedAt, &t.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return t, nil
}

// DeleteIfExpired removes the token only when it is expired relative to the
// supplied check time. The conditional delete keeps concurrent requests
// racing on the same expired token from ever observing a half-revoked state:
// at most one delete wins, and losers see zero rows affected.
func (r *TokenRepository) DeleteIfExpired(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `DELETE FROM access_tokens WHERE id = $1 AND expires_at IS NOT NULL AND expires_at <= $2`

	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to revoke expired token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete revokes a token by id. Revoking a token that no longer exists is a
// no-op, not an error.
func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM access_tokens WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// DeleteOwned revokes a token only when it belongs to the given user.
func (r *TokenRepository) DeleteOwned(ctx context.Context, userID, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM access_tokens WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// DeleteForUser revokes every token of a user except the one named by
// exceptID; pass an empty exceptID to revoke all sessions.
func (r *TokenRepository) DeleteForUser(ctx context.Context, userID, exceptID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM access_tokens WHERE user_id = $1 AND id <> $2`, userID, exceptID); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

// ListForUser retrieves the live sessions of a user.
func (r *TokenRepository) ListForUser(ctx context.Context, userID string) ([]*AccessToken, error) {
	query := `
		SELECT id, user_id, name, token_hash, ip_address, created_at, last_used_at, expires_at
		FROM access_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]*AccessToken, 0)
	for rows.Next() {
		t := &AccessToken{}
		err := rows.Scan(
			&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.IPAddress,
			&t.CreatedAt, &t.LastUsedAt, &t.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, t)
	}

	return tokens, rows.Err()
}

// TouchLastUsed records request-time token usage.
func (r *TokenRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.Exec(ctx, `UPDATE access_tokens SET last_used_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("failed to touch token: %w", err)
	}
	return nil
}
