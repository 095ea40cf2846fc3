package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type ProfileRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

func NewProfileRepository(db *pgxpool.Pool, log zerolog.Logger) *ProfileRepository {
	return &ProfileRepository{db: db, log: log}
}

// GetByUserID retrieves a user's profile.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*Profile, error) {
	p := &Profile{}

	query := `
		SELECT user_id, photo, identity_number, full_name, birth_date, gender, phone_number, address, created_by, updated_by
		FROM profiles
		WHERE user_id = $1
	`

	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.Photo, &p.IdentityNumber, &p.FullName, &p.BirthDate,
		&p.Gender, &p.PhoneNumber, &p.Address, &p.CreatedBy, &p.UpdatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return p, nil
}

// IdentityNumberTaken reports whether an identity number belongs to a
// different user's profile.
func (r *ProfileRepository) IdentityNumberTaken(ctx context.Context, identityNumber, excludeUserID string) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM profiles WHERE identity_number = $1 AND user_id <> $2)`,
		identityNumber, excludeUserID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check identity number: %w", err)
	}
	return taken, nil
}

// Upsert creates or replaces a user's profile. An incoming nil photo keeps
// the stored one.
func (r *ProfileRepository) Upsert(ctx context.Context, p *Profile, actorID string) error {
	p.TouchCreated(actorID)
	p.TouchUpdated(actorID)

	query := `
		INSERT INTO profiles (user_id, photo, identity_number, full_name, birth_date, gender, phone_number, address, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			photo = COALESCE(EXCLUDED.photo, profiles.photo),
			identity_number = EXCLUDED.identity_number,
			full_name = EXCLUDED.full_name,
			birth_date = EXCLUDED.birth_date,
			gender = EXCLUDED.gender,
			phone_number = EXCLUDED.phone_number,
			address = EXCLUDED.address,
			updated_at = NOW(),
			updated_by = EXCLUDED.updated_by
	`

	_, err := r.db.Exec(ctx, query,
		p.UserID, p.Photo, p.IdentityNumber, p.FullName, p.BirthDate,
		p.Gender, p.PhoneNumber, p.Address, p.CreatedBy, p.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// GetSettings retrieves the settings blob for a user; missing rows yield an
// empty object.
func (r *ProfileRepository) GetSettings(ctx context.Context, userID string) (json.RawMessage, error) {
	var raw json.RawMessage

	err := r.db.QueryRow(ctx, `SELECT settings FROM user_settings WHERE user_id = $1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return json.RawMessage(`{}`), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return raw, nil
}

// SaveSettings creates or replaces a user's settings blob.
func (r *ProfileRepository) SaveSettings(ctx context.Context, userID string, settings json.RawMessage) error {
	query := `
		INSERT INTO user_settings (user_id, settings, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = NOW()
	`

	if _, err := r.db.Exec(ctx, query, userID, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
