package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adiwidodo/go-backoffice/internal/repository"
)

// Minimal store stubs backing a real AuthService in the gate tests.

type stubUsers struct {
	byID map[string]*repository.User
}

func newStubUsers(users ...*repository.User) *stubUsers {
	s := &stubUsers{byID: make(map[string]*repository.User)}
	for _, u := range users {
		s.byID[u.ID] = u
	}
	return s
}

func (s *stubUsers) Create(ctx context.Context, user *repository.User, actorID string) error {
	s.byID[user.ID] = user
	return nil
}

func (s *stubUsers) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	for _, u := range s.byID {
		if u.Email == email && u.DeletedAt == nil {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubUsers) GetByID(ctx context.Context, id string) (*repository.User, error) {
	u, ok := s.byID[id]
	if !ok || u.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (s *stubUsers) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	return false, nil
}

func (s *stubUsers) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	return false, nil
}

func (s *stubUsers) List(ctx context.Context, params repository.ListParams) ([]*repository.UserListItem, int64, error) {
	return nil, 0, nil
}

func (s *stubUsers) RoleNames(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}

func (s *stubUsers) PermissionNames(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}

func (s *stubUsers) UpdatePassword(ctx context.Context, id, hash, actorID string) error {
	return nil
}

func (s *stubUsers) UpdateIdentity(ctx context.Context, id, name, email, actorID string) error {
	return nil
}

func (s *stubUsers) UpdateComposite(ctx context.Context, id string, in repository.CompositeUserUpdate, actorID string) error {
	return nil
}

func (s *stubUsers) SoftDelete(ctx context.Context, ids []string, actorID string) (int64, error) {
	return 0, nil
}

type stubTokens struct {
	byID   map[string]*repository.AccessToken
	nextID int
}

func newStubTokens() *stubTokens {
	return &stubTokens{byID: make(map[string]*repository.AccessToken)}
}

func (s *stubTokens) Replace(ctx context.Context, t *repository.AccessToken) error {
	for id, existing := range s.byID {
		if existing.UserID == t.UserID && existing.Name == t.Name && existing.IPAddress == t.IPAddress {
			delete(s.byID, id)
		}
	}
	s.nextID++
	t.ID = fmt.Sprintf("token-%d", s.nextID)
	s.byID[t.ID] = t
	return nil
}

func (s *stubTokens) GetByHash(ctx context.Context, digest string) (*repository.AccessToken, error) {
	for _, t := range s.byID {
		if t.TokenHash == digest {
			return t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubTokens) DeleteIfExpired(ctx context.Context, id string, at time.Time) (bool, error) {
	t, ok := s.byID[id]
	if !ok || t.ExpiresAt == nil || at.Before(*t.ExpiresAt) {
		return false, nil
	}
	delete(s.byID, id)
	return true, nil
}

func (s *stubTokens) Delete(ctx context.Context, id string) error {
	delete(s.byID, id)
	return nil
}

func (s *stubTokens) DeleteOwned(ctx context.Context, userID, id string) error {
	if t, ok := s.byID[id]; ok && t.UserID == userID {
		delete(s.byID, id)
	}
	return nil
}

func (s *stubTokens) DeleteForUser(ctx context.Context, userID, exceptID string) error {
	for id, t := range s.byID {
		if t.UserID == userID && id != exceptID {
			delete(s.byID, id)
		}
	}
	return nil
}

func (s *stubTokens) ListForUser(ctx context.Context, userID string) ([]*repository.AccessToken, error) {
	out := make([]*repository.AccessToken, 0)
	for _, t := range s.byID {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubTokens) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	if t, ok := s.byID[id]; ok {
		t.LastUsedAt = &at
	}
	return nil
}

type stubRoles struct {
	allow map[string]bool
}

func (s *stubRoles) Create(ctx context.Context, role *repository.Role, actorID string) error {
	return nil
}

func (s *stubRoles) GetByID(ctx context.Context, id string) (*repository.Role, error) {
	return nil, repository.ErrNotFound
}

func (s *stubRoles) GetByName(ctx context.Context, name string) (*repository.Role, error) {
	return nil, repository.ErrNotFound
}

func (s *stubRoles) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	return false, nil
}

func (s *stubRoles) List(ctx context.Context, params repository.ListParams) ([]*repository.Role, int64, error) {
	return nil, 0, nil
}

func (s *stubRoles) Update(ctx context.Context, role *repository.Role, actorID string) error {
	return nil
}

func (s *stubRoles) Delete(ctx context.Context, ids []string) (int64, error) {
	return 0, nil
}

func (s *stubRoles) UsersWithRole(ctx context.Context, roleID string, params repository.ListParams) ([]*repository.UserListItem, int64, error) {
	return nil, 0, nil
}

func (s *stubRoles) UserOptions(ctx context.Context, roleID, search string) ([]*repository.UserListItem, error) {
	return nil, nil
}

func (s *stubRoles) HasRole(ctx context.Context, userID, roleID string) (bool, error) {
	return false, nil
}

func (s *stubRoles) AssignUser(ctx context.Context, userID, roleID string) (bool, error) {
	return true, nil
}

func (s *stubRoles) RemoveUsers(ctx context.Context, roleID string, userIDs []string) error {
	return nil
}

func (s *stubRoles) PermissionNames(ctx context.Context, roleID string) ([]string, error) {
	return nil, nil
}

func (s *stubRoles) SyncPermissions(ctx context.Context, roleID string, names []string) error {
	return nil
}

func (s *stubRoles) UserCan(ctx context.Context, userID, capability, guard string) (bool, error) {
	return s.allow[capability], nil
}

func (s *stubRoles) RoleNameOptions(ctx context.Context, search string) ([]string, error) {
	return nil, nil
}

type stubProfiles struct{}

func (s *stubProfiles) GetByUserID(ctx context.Context, userID string) (*repository.Profile, error) {
	return nil, repository.ErrNotFound
}

func (s *stubProfiles) IdentityNumberTaken(ctx context.Context, identityNumber, excludeUserID string) (bool, error) {
	return false, nil
}

func (s *stubProfiles) Upsert(ctx context.Context, p *repository.Profile, actorID string) error {
	return nil
}

func (s *stubProfiles) GetSettings(ctx context.Context, userID string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (s *stubProfiles) SaveSettings(ctx context.Context, userID string, settings json.RawMessage) error {
	return nil
}

type stubPerms struct{}

func (s *stubPerms) Create(ctx context.Context, perm *repository.Permission, grantToRole, actorID string) error {
	return nil
}

func (s *stubPerms) GetByID(ctx context.Context, id string) (*repository.Permission, error) {
	return nil, repository.ErrNotFound
}

func (s *stubPerms) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	return false, nil
}

func (s *stubPerms) List(ctx context.Context, params repository.ListParams) ([]*repository.Permission, int64, error) {
	return nil, 0, nil
}

func (s *stubPerms) NameOptions(ctx context.Context, search string) ([]string, error) {
	return nil, nil
}

func (s *stubPerms) Update(ctx context.Context, perm *repository.Permission, actorID string) error {
	return nil
}

func (s *stubPerms) Delete(ctx context.Context, ids []string) (int64, error) {
	return 0, nil
}

type stubResets struct{}

func (s *stubResets) Upsert(ctx context.Context, email, tokenHash string) error { return nil }

func (s *stubResets) Get(ctx context.Context, email string) (*repository.PasswordReset, error) {
	return nil, repository.ErrNotFound
}

func (s *stubResets) Delete(ctx context.Context, email string) error { return nil }

type stubMailer struct{}

func (m *stubMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	return nil
}
