package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adiwidodo/go-backoffice/internal/repository"
)

// Store interfaces abstract the pgx repositories so services stay testable
// with in-memory fakes. The concrete implementations live in
// internal/repository.

type UserStore interface {
	Create(ctx context.Context, user *repository.User, actorID string) error
	GetByEmail(ctx context.Context, email string) (*repository.User, error)
	GetByID(ctx context.Context, id string) (*repository.User, error)
	NameTaken(ctx context.Context, name, excludeID string) (bool, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	List(ctx context.Context, params repository.ListParams) ([]*repository.UserListItem, int64, error)
	RoleNames(ctx context.Context, userID string) ([]string, error)
	PermissionNames(ctx context.Context, userID string) ([]string, error)
	UpdatePassword(ctx context.Context, id, hash, actorID string) error
	UpdateIdentity(ctx context.Context, id, name, email, actorID string) error
	UpdateComposite(ctx context.Context, id string, in repository.CompositeUserUpdate, actorID string) error
	SoftDelete(ctx context.Context, ids []string, actorID string) (int64, error)
}

type TokenStore interface {
	Replace(ctx context.Context, t *repository.AccessToken) error
	GetByHash(ctx context.Context, digest string) (*repository.AccessToken, error)
	DeleteIfExpired(ctx context.Context, id string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteOwned(ctx context.Context, userID, id string) error
	DeleteForUser(ctx context.Context, userID, exceptID string) error
	ListForUser(ctx context.Context, userID string) ([]*repository.AccessToken, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

type RoleStore interface {
	Create(ctx context.Context, role *repository.Role, actorID string) error
	GetByID(ctx context.Context, id string) (*repository.Role, error)
	GetByName(ctx context.Context, name string) (*repository.Role, error)
	NameTaken(ctx context.Context, name, excludeID string) (bool, error)
	List(ctx context.Context, params repository.ListParams) ([]*repository.Role, int64, error)
	Update(ctx context.Context, role *repository.Role, actorID string) error
	Delete(ctx context.Context, ids []string) (int64, error)
	UsersWithRole(ctx context.Context, roleID string, params repository.ListParams) ([]*repository.UserListItem, int64, error)
	UserOptions(ctx context.Context, roleID, search string) ([]*repository.UserListItem, error)
	HasRole(ctx context.Context, userID, roleID string) (bool, error)
	AssignUser(ctx context.Context, userID, roleID string) (bool, error)
	RemoveUsers(ctx context.Context, roleID string, userIDs []string) error
	PermissionNames(ctx context.Context, roleID string) ([]string, error)
	SyncPermissions(ctx context.Context, roleID string, names []string) error
	UserCan(ctx context.Context, userID, capability, guard string) (bool, error)
	RoleNameOptions(ctx context.Context, search string) ([]string, error)
}

type PermissionStore interface {
	Create(ctx context.Context, perm *repository.Permission, grantToRole, actorID string) error
	GetByID(ctx context.Context, id string) (*repository.Permission, error)
	NameTaken(ctx context.Context, name, excludeID string) (bool, error)
	List(ctx context.Context, params repository.ListParams) ([]*repository.Permission, int64, error)
	NameOptions(ctx context.Context, search string) ([]string, error)
	Update(ctx context.Context, perm *repository.Permission, actorID string) error
	Delete(ctx context.Context, ids []string) (int64, error)
}

type ProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*repository.Profile, error)
	IdentityNumberTaken(ctx context.Context, identityNumber, excludeUserID string) (bool, error)
	Upsert(ctx context.Context, p *repository.Profile, actorID string) error
	GetSettings(ctx context.Context, userID string) (json.RawMessage, error)
	SaveSettings(ctx context.Context, userID string, settings json.RawMessage) error
}

type ResetStore interface {
	Upsert(ctx context.Context, email, tokenHash string) error
	Get(ctx context.Context, email string) (*repository.PasswordReset, error)
	Delete(ctx context.Context, email string) error
}

// Mailer dispatches the password reset notification. Delivery transport is
// an external collaborator; the service only cares whether dispatch failed.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}
