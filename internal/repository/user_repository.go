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

// ListParams are the common search/sort/paginate inputs of the listing
// endpoints. Sort columns are whitelisted per query.
type ListParams struct {
	Search    string
	Status    *bool
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

func (p *ListParams) normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 || p.PerPage > 100 {
		p.PerPage = 10
	}
	if p.SortOrder != "asc" {
		p.SortOrder = "desc"
	}
}

func (p *ListParams) offset() int {
	return (p.Page - 1) * p.PerPage
}

// CompositeUserUpdate is the transactional payload of the admin user update:
// account row, profile upsert and optional role replacement commit together
// or not at all.
type CompositeUserUpdate struct {
	Name     string
	Email    string
	IsActive bool
	Profile  Profile
	Roles    *[]string
}

type UserRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

func NewUserRepository(db *pgxpool.Pool, log zerolog.Logger) *UserRepository {
	return &UserRepository{db: db, log: log}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *User, actorID string) error {
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	user.TouchCreated(actorID)

	query := `
		INSERT INTO users (id, name, email, password_hash, is_active, created_at, updated_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.IsActive,
		user.CreatedAt, user.UpdatedAt, user.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

const userColumns = `id, name, email, password_hash, is_active, created_at, updated_at, deleted_at, created_by, updated_by, deleted_by`

func (r *UserRepository) scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
		&user.CreatedBy, &user.UpdatedBy, &user.DeletedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by exact email match. Soft-deleted rows are
// invisible here so they can never authenticate.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

// GetByID retrieves a live user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

// NameTaken reports whether a login name is already used by another user.
func (r *UserRepository) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE name = $1 AND id <> $2)`

	var taken bool
	if err := r.db.QueryRow(ctx, query, name, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("failed to check name: %w", err)
	}
	return taken, nil
}

// EmailTaken reports whether an email is already used by another user.
func (r *UserRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND id <> $2)`

	var taken bool
	if err := r.db.QueryRow(ctx, query, email, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return taken, nil
}

// List retrieves live users joined with their profile, filtered and paginated.
func (r *UserRepository) List(ctx context.Context, params ListParams) ([]*UserListItem, int64, error) {
	params.normalize()

	where := ` WHERE u.deleted_at IS NULL`
	args := []interface{}{}

	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		where += fmt.Sprintf(` AND (LOWER(u.name) LIKE LOWER($%d) OR LOWER(u.email) LIKE LOWER($%d) OR LOWER(p.full_name) LIKE LOWER($%d))`,
			len(args), len(args), len(args))
	}
	if params.Status != nil {
		args = append(args, *params.Status)
		where += fmt.Sprintf(` AND u.is_active = $%d`, len(args))
	}

	from := ` FROM users u LEFT JOIN profiles p ON u.id = p.user_id`

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	sortBy := map[string]string{
		"id":        "u.id",
		"name":      "u.name",
		"email":     "u.email",
		"is_active": "u.is_active",
		"full_name": "p.full_name",
	}[params.SortBy]
	if sortBy == "" {
		sortBy = "u.created_at"
	}

	query := `SELECT u.id, u.name, u.email, u.is_active, p.full_name, p.photo` + from + where +
		fmt.Sprintf(` ORDER BY %s %s LIMIT $%d OFFSET $%d`, sortBy, params.SortOrder, len(args)+1, len(args)+2)
	args = append(args, params.PerPage, params.offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	items := make([]*UserListItem, 0)
	for rows.Next() {
		item := &UserListItem{}
		if err := rows.Scan(&item.ID, &item.Name, &item.Email, &item.IsActive, &item.FullName, &item.Photo); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	for _, item := range items {
		item.Roles, err = r.RoleNames(ctx, item.ID)
		if err != nil {
			return nil, 0, err
		}
	}

	return items, total, nil
}

// RoleNames retrieves the names of the roles assigned to a user.
func (r *UserRepository) RoleNames(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT r.name
		FROM roles r
		INNER JOIN user_roles ur ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`
	return r.collectNames(ctx, query, userID)
}

// PermissionNames retrieves the effective permission set of a user: the
// union of permissions granted by all assigned roles, recomputed on demand.
func (r *UserRepository) PermissionNames(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT DISTINCT p.name
		FROM permissions p
		INNER JOIN role_permissions rp ON p.id = rp.permission_id
		INNER JOIN user_roles ur ON rp.role_id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY p.name
	`
	return r.collectNames(ctx, query, userID)
}

func (r *UserRepository) collectNames(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash, actorID string) error {
	sig := Signature{}
	sig.TouchUpdated(actorID)

	query := `UPDATE users SET password_hash = $2, updated_at = NOW(), updated_by = $3 WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query, id, hash, sig.UpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateIdentity changes the login name and email of a user.
func (r *UserRepository) UpdateIdentity(ctx context.Context, id, name, email, actorID string) error {
	sig := Signature{}
	sig.TouchUpdated(actorID)

	query := `UPDATE users SET name = $2, email = $3, updated_at = NOW(), updated_by = $4 WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query, id, name, email, sig.UpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateComposite applies the admin user update inside one transaction.
func (r *UserRepository) UpdateComposite(ctx context.Context, id string, in CompositeUserUpdate, actorID string) error {
	sig := Signature{}
	sig.TouchUpdated(actorID)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE users SET name = $2, email = $3, is_active = $4, updated_at = NOW(), updated_by = $5
		WHERE id = $1 AND deleted_at IS NULL`,
		id, in.Name, in.Email, in.IsActive, sig.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	profile := in.Profile
	profile.UserID = id
	profile.TouchCreated(actorID)
	profile.TouchUpdated(actorID)

	_, err = tx.Exec(ctx, `
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
			updated_by = EXCLUDED.updated_by`,
		profile.UserID, profile.Photo, profile.IdentityNumber, profile.FullName,
		profile.BirthDate, profile.Gender, profile.PhoneNumber, profile.Address,
		profile.CreatedBy, profile.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	if in.Roles != nil {
		if err := replaceUserRoles(ctx, tx, id, *in.Roles); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user update: %w", err)
	}
	return nil
}

func replaceUserRoles(ctx context.Context, tx pgx.Tx, userID string, names []string) error {
	roleIDs := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))

	if len(names) > 0 {
		rows, err := tx.Query(ctx, `SELECT id, name FROM roles WHERE name = ANY($1)`, names)
		if err != nil {
			return fmt.Errorf("failed to resolve roles: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id, name string
			if err := rows.Scan(&id, &name); err != nil {
				return fmt.Errorf("failed to scan role: %w", err)
			}
			roleIDs = append(roleIDs, id)
			seen[name] = true
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to resolve roles: %w", err)
		}

		for _, name := range names {
			if !seen[name] {
				return fmt.Errorf("%w: %s", ErrUnknownRole, name)
			}
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear user roles: %w", err)
	}

	for _, roleID := range roleIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, roleID); err != nil {
			return fmt.Errorf("failed to assign role: %w", err)
		}
	}

	return nil
}

// SoftDelete marks users deleted without removing their rows. Already
// deleted ids are skipped.
func (r *UserRepository) SoftDelete(ctx context.Context, ids []string, actorID string) (int64, error) {
	sig := Signature{}
	sig.TouchDeleted(actorID)

	query := `UPDATE users SET deleted_at = NOW(), deleted_by = $2 WHERE id = ANY($1) AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query, ids, sig.DeletedBy)
	if err != nil {
		return 0, fmt.Errorf("failed to delete users: %w", err)
	}
	return tag.RowsAffected(), nil
}
