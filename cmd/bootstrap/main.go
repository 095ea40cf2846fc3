package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adiwidodo/go-backoffice/internal/config"
	"github.com/adiwidodo/go-backoffice/pkg/password"
)

// Seeds the permission catalog, the bootstrap role holding all of it, and an
// active administrator account. Safe to re-run: existing rows are kept.
func main() {
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))
	ctx := context.Background()

	log.Println("Connecting to database...")
	dbPool, err := pgxpool.New(ctx, cfg.DB.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Database connection established")

	permissionIDs, err := seedPermissions(ctx, dbPool, cfg.Auth.Guard)
	if err != nil {
		log.Fatalf("Failed to seed permissions: %v", err)
	}
	log.Printf("Seeded %d permissions", len(permissionIDs))

	roleID, err := seedRole(ctx, dbPool, cfg.Auth.BootstrapRole, cfg.Auth.Guard, permissionIDs)
	if err != nil {
		log.Fatalf("Failed to seed role: %v", err)
	}
	log.Printf("Seeded role %q: %s", cfg.Auth.BootstrapRole, roleID)

	userID, err := seedAdministrator(ctx, dbPool, roleID)
	if err != nil {
		log.Fatalf("Failed to seed administrator: %v", err)
	}
	log.Printf("Seeded administrator: %s", userID)

	log.Println("Bootstrap complete")
	log.Println("Credentials: administrator@mail.com / P@ssw0rd")
}

var permissionCatalog = []string{
	"Dashboard.view",
	"User.view",
	"User.add",
	"User.edit",
	"User.delete",
	"Privilege.role.view",
	"Privilege.role.add",
	"Privilege.role.edit",
	"Privilege.role.delete",
	"Privilege.role.user.view",
	"Privilege.role.user.add",
	"Privilege.role.user.delete",
	"Privilege.role.permission.view",
	"Privilege.role.permission.edit",
	"Privilege.permission.view",
	"Privilege.permission.add",
	"Privilege.permission.edit",
	"Privilege.permission.delete",
}

func seedPermissions(ctx context.Context, db *pgxpool.Pool, guard string) ([]string, error) {
	ids := make([]string, 0, len(permissionCatalog))

	for _, name := range permissionCatalog {
		var id string
		err := db.QueryRow(ctx, `SELECT id FROM permissions WHERE name = $1`, name).Scan(&id)
		if err != nil {
			id = uuid.New().String()
			_, err = db.Exec(ctx, `
				INSERT INTO permissions (id, name, guard_name, created_at, updated_at)
				VALUES ($1, $2, $3, NOW(), NOW())
				ON CONFLICT (name) DO NOTHING`,
				id, name, guard,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to insert permission %s: %w", name, err)
			}
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func seedRole(ctx context.Context, db *pgxpool.Pool, name, guard string, permissionIDs []string) (string, error) {
	var roleID string
	err := db.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&roleID)
	if err != nil {
		roleID = uuid.New().String()
		_, err = db.Exec(ctx, `
			INSERT INTO roles (id, name, guard_name, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW())`,
			roleID, name, guard,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert role: %w", err)
		}
	}

	for _, permissionID := range permissionIDs {
		_, err = db.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			roleID, permissionID,
		)
		if err != nil {
			return "", fmt.Errorf("failed to grant permission: %w", err)
		}
	}

	return roleID, nil
}

func seedAdministrator(ctx context.Context, db *pgxpool.Pool, roleID string) (string, error) {
	var userID string
	err := db.QueryRow(ctx, `SELECT id FROM users WHERE name = $1`, "administrator").Scan(&userID)
	if err != nil {
		hash, err := password.Hash("P@ssw0rd", nil)
		if err != nil {
			return "", fmt.Errorf("failed to hash password: %w", err)
		}

		userID = uuid.New().String()
		_, err = db.Exec(ctx, `
			INSERT INTO users (id, name, email, password_hash, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())`,
			userID, "administrator", "administrator@mail.com", hash,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert administrator: %w", err)
		}
	}

	_, err = db.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		userID, roleID,
	)
	if err != nil {
		return "", fmt.Errorf("failed to assign role: %w", err)
	}

	return userID, nil
}
