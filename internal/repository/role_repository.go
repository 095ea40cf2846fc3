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

type RoleRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

func NewRoleRepository(db *pgxpool.Pool, log zerolog.Logger) *RoleRepository {
	return &RoleRepository{db: db, log: log}
}

// Create creates a new role.
func (r *RoleRepository) Create(ctx context.Context, role *Role, actorID string) error {
	role.ID = uuid.New().String()
	role.CreatedAt = time.Now()
	role.UpdatedAt = role.CreatedAt
	role.TouchCreated(actorID)

	query := `
		INSERT INTO roles (id, name, guard_name, description, created_at, updated_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		role.ID, role.Name, role.GuardName, role.Description,
		role.CreatedAt, role.UpdatedAt, role.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	return nil
}

// GetByID retrieves a role by id.
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*Role, error) {
	role := &Role{}

	query := `
		SELECT id, name, guard_name, description, created_at, updated_at, created_by, updated_by
		FROM roles
		WHERE id = $1
	`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&role.ID, &role.Name, &role.GuardName, &role.Description,
		&role.CreatedAt, &role.UpdatedAt, &role.CreatedBy, &role.UpdatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return role, nil
}

// GetByName retrieves a role by its unique name.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*Role, error) {
	role := &Role{}

	query := `
		SELECT id, name, guard_name, description, created_at, updated_at, created_by, updated_by
		FROM roles
		WHERE name = $1
	`

	err := r.db.QueryRow(ctx, query, name).Scan(
		&role.ID, &role.Name, &role.GuardName, &role.Description,
		&role.CreatedAt, &role.UpdatedAt, &role.CreatedBy, &role.UpdatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return role, nil
}

// NameTaken reports whether a role name is already used by another role.
func (r *RoleRepository) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM roles WHERE name = $1 AND id <> $2)`, name, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check role name: %w", err)
	}
	return taken, nil
}

// List retrieves roles with their user and permission counts.
func (r *RoleRepository) List(ctx context.Context, params ListParams) ([]*Role, int64, error) {
	params.normalize()

	where := ``
	args := []interface{}{}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		where = ` WHERE LOWER(r.name) LIKE LOWER($1)`
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM roles r`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count roles: %w", err)
	}

	sortBy := map[string]string{
		"id":   "r.id",
		"name": "r.name",
	}[params.SortBy]
	if sortBy == "" {
		sortBy = "r.created_at"
	}

	query := `
		SELECT r.id, r.name, r.guard_name, r.description, r.created_at, r.updated_at,
		       (SELECT COUNT(*) FROM user_roles ur WHERE ur.role_id = r.id) AS user_count,
		       (SELECT COUNT(*) FROM role_permissions rp WHERE rp.role_id = r.id) AS permission_count
		FROM roles r` + where +
		fmt.Sprintf(` ORDER BY %s %s LIMIT $%d OFFSET $%d`, sortBy, params.SortOrder, len(args)+1, len(args)+2)
	args = append(args, params.PerPage, params.offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]*Role, 0)
	for rows.Next() {
		role := &Role{}
		err := rows.Scan(
			&role.ID, &role.Name, &role.GuardName, &role.Description,
			&role.CreatedAt, &role.UpdatedAt, &role.UserCount, &role.PermissionCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}

	return roles, total, rows.Err()
}

// Update updates a role's name, guard and description.
func (r *RoleRepository) Update(ctx context.Context, role *Role, actorID string) error {
	role.TouchUpdated(actorID)

	query := `
		UPDATE roles SET name = $2, guard_name = $3, description = $4, updated_at = NOW(), updated_by = $5
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, role.ID, role.Name, role.GuardName, role.Description, role.UpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes roles by id; join rows cascade.
func (r *RoleRepository) Delete(ctx context.Context, ids []string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM roles WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete roles: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UsersWithRole lists the live users holding a role.
func (r *RoleRepository) UsersWithRole(ctx context.Context, roleID string, params ListParams) ([]*UserListItem, int64, error) {
	params.normalize()

	where := ` WHERE ur.role_id = $1 AND u.deleted_at IS NULL`
	args := []interface{}{roleID}

	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		where += fmt.Sprintf(` AND (LOWER(u.name) LIKE LOWER($%d) OR LOWER(u.email) LIKE LOWER($%d) OR LOWER(p.full_name) LIKE LOWER($%d))`,
			len(args), len(args), len(args))
	}
	if params.Status != nil {
		args = append(args, *params.Status)
		where += fmt.Sprintf(` AND u.is_active = $%d`, len(args))
	}

	from := `
		FROM users u
		INNER JOIN user_roles ur ON u.id = ur.user_id
		LEFT JOIN profiles p ON u.id = p.user_id`

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count role users: %w", err)
	}

	sortBy := map[string]string{
		"id":        "u.id",
		"name":      "u.name",
		"email":     "u.email",
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
		return nil, 0, fmt.Errorf("failed to list role users: %w", err)
	}
	defer rows.Close()

	items := make([]*UserListItem, 0)
	for rows.Next() {
		item := &UserListItem{}
		if err := rows.Scan(&item.ID, &item.Name, &item.Email, &item.IsActive, &item.FullName, &item.Photo); err != nil {
			return nil, 0, fmt.Errorf("failed to scan role user: %w", err)
		}
		items = append(items, item)
	}

	return items, total, rows.Err()
}

// UserOptions lists active users eligible for assignment to a role.
func (r *RoleRepository) UserOptions(ctx context.Context, roleID, search string) ([]*UserListItem, error) {
	query := `
		SELECT u.id, u.name, u.email, u.is_active, p.full_name, p.photo
		FROM users u
		LEFT JOIN profiles p ON u.id = p.user_id
		WHERE u.is_active = TRUE
		  AND u.deleted_at IS NULL
		  AND u.id NOT IN (SELECT ur.user_id FROM user_roles ur WHERE ur.role_id = $1)
	`
	args := []interface{}{roleID}

	if search != "" {
		args = append(args, "%"+search+"%")
		query += ` AND (LOWER(u.name) LIKE LOWER($2) OR LOWER(u.email) LIKE LOWER($2) OR LOWER(p.full_name) LIKE LOWER($2))`
	}
	query += ` ORDER BY u.name ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list user options: %w", err)
	}
	defer rows.Close()

	items := make([]*UserListItem, 0)
	for rows.Next() {
		item := &UserListItem{}
		if err := rows.Scan(&item.ID, &item.Name, &item.Email, &item.IsActive, &item.FullName, &item.Photo); err != nil {
			return nil, fmt.Errorf("failed to scan user option: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// HasRole reports whether a user already holds a role.
func (r *RoleRepository) HasRole(ctx context.Context, userID, roleID string) (bool, error) {
	var held bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_roles WHERE user_id = $1 AND role_id = $2)`,
		userID, roleID,
	).Scan(&held)
	if err != nil {
		return false, fmt.Errorf("failed to check role assignment: %w", err)
	}
	return held, nil
}

// AssignUser adds a role to a user. Returns false when the assignment
// already existed.
func (r *RoleRepository) AssignUser(ctx context.Context, userID, roleID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT (user_id, role_id) DO NOTHING`,
		userID, roleID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to assign role: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveUsers removes a role from the given users; missing assignments are
// skipped silently.
func (r *RoleRepository) RemoveUsers(ctx context.Context, roleID string, userIDs []string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_roles WHERE role_id = $1 AND user_id = ANY($2)`, roleID, userIDs)
	if err != nil {
		return fmt.Errorf("failed to remove role users: %w", err)
	}
	return nil
}

// PermissionNames retrieves the names of a role's granted permissions.
func (r *RoleRepository) PermissionNames(ctx context.Context, roleID string) ([]string, error) {
	query := `
		SELECT p.name
		FROM permissions p
		INNER JOIN role_permissions rp ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.name
	`

	rows, err := r.db.Query(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
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

// SyncPermissions replaces a role's entire permission set in one
// transaction. Any name not matching an existing permission fails the whole
// operation with ErrUnknownPermission; nothing is applied partially.
func (r *RoleRepository) SyncPermissions(ctx context.Context, roleID string, names []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ids := make([]string, 0, len(names))
	found := make(map[string]bool, len(names))

	if len(names) > 0 {
		rows, err := tx.Query(ctx, `SELECT id, name FROM permissions WHERE name = ANY($1)`, names)
		if err != nil {
			return fmt.Errorf("failed to resolve permissions: %w", err)
		}
		for rows.Next() {
			var id, name string
			if err := rows.Scan(&id, &name); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan permission: %w", err)
			}
			ids = append(ids, id)
			found[name] = true
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to resolve permissions: %w", err)
		}

		for _, name := range names {
			if !found[name] {
				return fmt.Errorf("%w: %s", ErrUnknownPermission, name)
			}
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", err)
	}

	for _, id := range ids {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			roleID, id,
		); err != nil {
			return fmt.Errorf("failed to grant permission: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit permission sync: %w", err)
	}
	return nil
}

// UserCan evaluates the allow/deny decision for a capability name by exact
// match over the user's effective permission set. Unknown capability names
// simply yield false.
func (r *RoleRepository) UserCan(ctx context.Context, userID, capability, guard string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM permissions p
			INNER JOIN role_permissions rp ON p.id = rp.permission_id
			INNER JOIN user_roles ur ON rp.role_id = ur.role_id
			WHERE ur.user_id = $1
			  AND p.name = $2
			  AND p.guard_name = $3
		)
	`

	var allowed bool
	if err := r.db.QueryRow(ctx, query, userID, capability, guard).Scan(&allowed); err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return allowed, nil
}

// RoleNameOptions lists role names matching a search term.
func (r *RoleRepository) RoleNameOptions(ctx context.Context, search string) ([]string, error) {
	query := `SELECT name FROM roles`
	args := []interface{}{}
	if search != "" {
		args = append(args, "%"+search+"%")
		query += ` WHERE LOWER(name) LIKE LOWER($1)`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list role names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan role name: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}
