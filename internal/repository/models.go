package repository

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ErrUnknownPermission is returned by SyncPermissions when any requested
// name does not exist; the whole replacement is rejected.
var ErrUnknownPermission = errors.New("unknown permission name")

// ErrUnknownRole is returned by composite user updates when a requested role
// name does not exist.
var ErrUnknownRole = errors.New("unknown role name")

// Signature carries the who-did-it audit columns shared by mutable records.
// Repositories stamp it explicitly before writing; records opt in by
// embedding it, never by inheriting persistence behaviour.
type Signature struct {
	CreatedBy *string
	UpdatedBy *string
	DeletedBy *string
}

func (s *Signature) TouchCreated(actorID string) {
	if actorID != "" {
		s.CreatedBy = &actorID
	}
}

func (s *Signature) TouchUpdated(actorID string) {
	if actorID != "" {
		s.UpdatedBy = &actorID
	}
}

func (s *Signature) TouchDeleted(actorID string) {
	if actorID != "" {
		s.DeletedBy = &actorID
	}
}

// Audited is satisfied by any record embedding a Signature.
type Audited interface {
	TouchCreated(actorID string)
	TouchUpdated(actorID string)
	TouchDeleted(actorID string)
}

// User is a principal. A user with IsActive false or a non-nil DeletedAt
// must never authenticate.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
	Signature
}

// Profile holds the personal data attached to a user.
type Profile struct {
	UserID         string
	Photo          *string
	IdentityNumber string
	FullName       string
	BirthDate      time.Time
	Gender         string
	PhoneNumber    string
	Address        string
	Signature
}

// AccessToken is a persisted bearer session. Only the sha256 digest of the
// opaque secret is stored; at most one live token exists per
// (user, device name, ip) triple.
type AccessToken struct {
	ID         string
	UserID     string
	Name       string
	TokenHash  string
	IPAddress  string
	CreatedAt  time.Time
	LastUsedAt *time.Time
	ExpiresAt  *time.Time
}

// Role bundles permissions under a guard scope.
type Role struct {
	ID          string
	Name        string
	GuardName   string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Signature

	// Populated by list queries only.
	UserCount       int64
	PermissionCount int64
}

// Permission names a capability as "<module>.<action>".
type Permission struct {
	ID          string
	Name        string
	GuardName   string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Signature
}

// PasswordReset records the digest of the last reset token issued for an
// email address; a row is consumed on successful reset.
type PasswordReset struct {
	Email     string
	TokenHash string
	CreatedAt time.Time
}

// UserSettings is the free-form per-user settings blob.
type UserSettings struct {
	UserID    string
	Settings  json.RawMessage
	UpdatedAt time.Time
}

// UserListItem is the joined row shape returned by user listings.
type UserListItem struct {
	ID       string
	Name     string
	Email    string
	IsActive bool
	FullName *string
	Photo    *string
	Roles    []string
}
