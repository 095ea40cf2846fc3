package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type ResetRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

func NewResetRepository(db *pgxpool.Pool, log zerolog.Logger) *ResetRepository {
	return &ResetRepository{db: db, log: log}
}

// Upsert stores the digest of the latest reset token for an email,
// superseding any earlier outstanding token.
func (r *ResetRepository) Upsert(ctx context.Context, email, tokenHash string) error {
	query := `
		INSERT INTO password_resets (email, token_hash, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET token_hash = EXCLUDED.token_hash, created_at = EXCLUDED.created_at
	`

	if _, err := r.db.Exec(ctx, query, email, tokenHash, time.Now()); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

// Get retrieves the outstanding reset record for an email.
func (r *ResetRepository) Get(ctx context.Context, email string) (*PasswordReset, error) {
	rec := &PasswordReset{}

	err := r.db.QueryRow(ctx,
		`SELECT email, token_hash, created_at FROM password_resets WHERE email = $1`,
		email,
	).Scan(&rec.Email, &rec.TokenHash, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}

	return rec, nil
}

// Delete consumes the reset record; deleting an absent record is a no-op.
func (r *ResetRepository) Delete(ctx context.Context, email string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM password_resets WHERE email = $1`, email); err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	return nil
}
