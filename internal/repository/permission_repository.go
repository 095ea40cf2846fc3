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

type PermissionRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

func NewPermissionRepository(db *pgxpool.Pool, log zerolog.Logger) *PermissionRepository {
	return &PermissionRepository{db: db, log: log}
}

// Create inserts a permission and, when grantToRole names an existing role,
// grants the new permission to it in the same transaction. This is how the
// bootstrap role accumulates every permission: a creation-time convention,
// not a runtime bypass.
func (r *PermissionRepository) Create(ctx context.Context, perm *Permission, grantToRole, actorID string) error {
	perm.ID = uuid.New().String()
	perm.CreatedAt = time.Now()
	perm.UpdatedAt = perm.CreatedAt
	perm.TouchCreated(actorID)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO permissions (id, name, guard_name, description, created_at, updated_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		perm.ID, perm.Name, perm.GuardName, perm.Description,
		perm.CreatedAt, perm.UpdatedAt, perm.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}

	if grantToRole != "" {
		var roleID string
		err := tx.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, grantToRole).Scan(&roleID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// No bootstrap role yet; nothing to grant.
		case err != nil:
			return fmt.Errorf("failed to find bootstrap role: %w", err)
		default:
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				roleID, perm.ID,
			); err != nil {
				return fmt.Errorf("failed to grant permission to bootstrap role: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit permission creation: %w", err)
	}
	return nil
}

// GetByID retrieves a permission by id.
func (r *PermissionRepository) GetByID(ctx context.Context, id string) (*Permission, error) {
	perm := &Permission{}

	query := `
		SELECT id, name, guard_name, description, created_at, updated_at, created_by, updated_by
		FROM permissions
		WHERE id = $1
	`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&perm.ID, &perm.Name, &perm.GuardName, &perm.Description,
		&perm.CreatedAt, &perm.UpdatedAt, &perm.CreatedBy, &perm.UpdatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	return perm, nil
}

// NameTaken reports whether a permission name is used by another permission.
func (r *PermissionRepository) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM permissions WHERE name = $1 AND id <> $2)`,
		name, excludeID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check permission name: %w", err)
	}
	return taken, nil
}

// List retrieves permissions filtered and paginated.
func (r *PermissionRepository) List(ctx context.Context, params ListParams) ([]*Permission, int64, error) {
	params.normalize()

	where := ``
	args := []interface{}{}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		where = ` WHERE LOWER(name) LIKE LOWER($1)`
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM permissions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count permissions: %w", err)
	}

	sortBy := map[string]string{
		"id":   "id",
		"name": "name",
	}[params.SortBy]
	if sortBy == "" {
		sortBy = "created_at"
	}

	query := `SELECT id, name, guard_name, description, created_at, updated_at FROM permissions` + where +
		fmt.Sprintf(` ORDER BY %s %s LIMIT $%d OFFSET $%d`, sortBy, params.SortOrder, len(args)+1, len(args)+2)
	args = append(args, params.PerPage, params.offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	perms := make([]*Permission, 0)
	for rows.Next() {
		perm := &Permission{}
		err := rows.Scan(&perm.ID, &perm.Name, &perm.GuardName, &perm.Description, &perm.CreatedAt, &perm.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, perm)
	}

	return perms, total, rows.Err()
}

// NameOptions lists permission names matching a search term.
func (r *PermissionRepository) NameOptions(ctx context.Context, search string) ([]string, error) {
	query := `SELECT name FROM permissions`
	args := []interface{}{}
	if search != "" {
		args = append(args, "%"+search+"%")
		query += ` WHERE LOWER(name) LIKE LOWER($1)`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list permission names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan permission name: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// Update updates a permission.
func (r *PermissionRepository) Update(ctx context.Context, perm *Permission, actorID string) error {
	perm.TouchUpdated(actorID)

	query := `
		UPDATE permissions SET name = $2, guard_name = $3, description = $4, updated_at = NOW(), updated_by = $5
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, perm.ID, perm.Name, perm.GuardName, perm.Description, perm.UpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to update permission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes permissions by id; grants cascade.
func (r *PermissionRepository) Delete(ctx context.Context, ids []string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM permissions WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete permissions: %w", err)
	}
	return tag.RowsAffected(), nil
}
