package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adiwidodo/go-backoffice/internal/repository"
)

// In-memory stand-ins for the pgx repositories. They keep just enough
// behaviour for the service rules under test.

type fakeUserStore struct {
	users   map[string]*repository.User
	roles   map[string][]string
	perms   map[string][]string
	nextID  int
	updates []string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users: make(map[string]*repository.User),
		roles: make(map[string][]string),
		perms: make(map[string][]string),
	}
}

func (s *fakeUserStore) add(user *repository.User) *repository.User {
	if user.ID == "" {
		s.nextID++
		user.ID = fmt.Sprintf("user-%d", s.nextID)
	}
	s.users[user.ID] = user
	return user
}

func (s *fakeUserStore) Create(ctx context.Context, user *repository.User, actorID string) error {
	s.add(user)
	user.TouchCreated(actorID)
	return nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	for _, u := range s.users {
		if u.Email == email && u.DeletedAt == nil {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeUserStore) GetByID(ctx context.Context, id string) (*repository.User, error) {
	u, ok := s.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (s *fakeUserStore) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	for _, u := range s.users {
		if u.Name == name && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	for _, u := range s.users {
		if u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) List(ctx context.Context, params repository.ListParams) ([]*repository.UserListItem, int64, error) {
	items := make([]*repository.UserListItem, 0)
	for _, u := range s.users {
		if u.DeletedAt != nil {
			continue
		}
		items = append(items, &repository.UserListItem{
			ID: u.ID, Name: u.Name, Email: u.Email, IsActive: u.IsActive,
			Roles: s.roles[u.ID],
		})
	}
	return items, int64(len(items)), nil
}

func (s *fakeUserStore) RoleNames(ctx context.Context, userID string) ([]string, error) {
	return s.roles[userID], nil
}

func (s *fakeUserStore) PermissionNames(ctx context.Context, userID string) ([]string, error) {
	return s.perms[userID], nil
}

func (s *fakeUserStore) UpdatePassword(ctx context.Context, id, hash, actorID string) error {
	u, ok := s.users[id]
	if !ok || u.DeletedAt != nil {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	s.updates = append(s.updates, "password:"+id)
	return nil
}

func (s *fakeUserStore) UpdateIdentity(ctx context.Context, id, name, email, actorID string) error {
	u, ok := s.users[id]
	if !ok || u.DeletedAt != nil {
		return repository.ErrNotFound
	}
	u.Name = name
	u.Email = email
	return nil
}

func (s *fakeUserStore) UpdateComposite(ctx context.Context, id string, in repository.CompositeUserUpdate, actorID string) error {
	u, ok := s.users[id]
	if !ok || u.DeletedAt != nil {
		return repository.ErrNotFound
	}
	u.Name = in.Name
	u.Email = in.Email
	u.IsActive = in.IsActive
	if in.Roles != nil {
		s.roles[id] = *in.Roles
	}
	return nil
}

func (s *fakeUserStore) SoftDelete(ctx context.Context, ids []string, actorID string) (int64, error) {
	var count int64
	now := time.Now()
	for _, id := range ids {
		if u, ok := s.users[id]; ok && u.DeletedAt == nil {
			u.DeletedAt = &now
			u.TouchDeleted(actorID)
			count++
		}
	}
	return count, nil
}

type fakeTokenStore struct {
	tokens map[string]*repository.AccessToken
	nextID int
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]*repository.AccessToken)}
}

func (s *fakeTokenStore) forUser(userID string) []*repository.AccessToken {
	out := make([]*repository.AccessToken, 0)
	for _, t := range s.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

func (s *fakeTokenStore) Replace(ctx context.Context, t *repository.AccessToken) error {
	for id, existing := range s.tokens {
		if existing.UserID == t.UserID && existing.Name == t.Name && existing.IPAddress == t.IPAddress {
			delete(s.tokens, id)
		}
	}
	s.nextID++
	t.ID = fmt.Sprintf("token-%d", s.nextID)
	t.CreatedAt = time.Now()
	s.tokens[t.ID] = t
	return nil
}

func (s *fakeTokenStore) GetByHash(ctx context.Context, digest string) (*repository.AccessToken, error) {
	for _, t := range s.tokens {
		if t.TokenHash == digest {
			return t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeTokenStore) DeleteIfExpired(ctx context.Context, id string, at time.Time) (bool, error) {
	t, ok := s.tokens[id]
	if !ok || t.ExpiresAt == nil || at.Before(*t.ExpiresAt) {
		return false, nil
	}
	delete(s.tokens, id)
	return true, nil
}

func (s *fakeTokenStore) Delete(ctx context.Context, id string) error {
	delete(s.tokens, id)
	return nil
}

func (s *fakeTokenStore) DeleteOwned(ctx context.Context, userID, id string) error {
	if t, ok := s.tokens[id]; ok && t.UserID == userID {
		delete(s.tokens, id)
	}
	return nil
}

func (s *fakeTokenStore) DeleteForUser(ctx context.Context, userID, exceptID string) error {
	for id, t := range s.tokens {
		if t.UserID == userID && id != exceptID {
			delete(s.tokens, id)
		}
	}
	return nil
}

func (s *fakeTokenStore) ListForUser(ctx context.Context, userID string) ([]*repository.AccessToken, error) {
	return s.forUser(userID), nil
}

func (s *fakeTokenStore) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	if t, ok := s.tokens[id]; ok {
		t.LastUsedAt = &at
	}
	return nil
}

type fakeRoleStore struct {
	roles       map[string]*repository.Role
	holders     map[string]map[string]bool // roleID -> userID set
	granted     map[string][]string        // roleID -> permission names
	permCatalog map[string]bool
	nextID      int
}

func newFakeRoleStore() *fakeRoleStore {
	return &fakeRoleStore{
		roles:       make(map[string]*repository.Role),
		holders:     make(map[string]map[string]bool),
		granted:     make(map[string][]string),
		permCatalog: make(map[string]bool),
	}
}

func (s *fakeRoleStore) add(role *repository.Role) *repository.Role {
	if role.ID == "" {
		s.nextID++
		role.ID = fmt.Sprintf("role-%d", s.nextID)
	}
	s.roles[role.ID] = role
	s.holders[role.ID] = make(map[string]bool)
	return role
}

func (s *fakeRoleStore) Create(ctx context.Context, role *repository.Role, actorID string) error {
	s.add(role)
	role.TouchCreated(actorID)
	return nil
}

func (s *fakeRoleStore) GetByID(ctx context.Context, id string) (*repository.Role, error) {
	r, ok := s.roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r, nil
}

func (s *fakeRoleStore) GetByName(ctx context.Context, name string) (*repository.Role, error) {
	for _, r := range s.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeRoleStore) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	for _, r := range s.roles {
		if r.Name == name && r.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeRoleStore) List(ctx context.Context, params repository.ListParams) ([]*repository.Role, int64, error) {
	out := make([]*repository.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (s *fakeRoleStore) Update(ctx context.Context, role *repository.Role, actorID string) error {
	if _, ok := s.roles[role.ID]; !ok {
		return repository.ErrNotFound
	}
	s.roles[role.ID] = role
	return nil
}

func (s *fakeRoleStore) Delete(ctx context.Context, ids []string) (int64, error) {
	var count int64
	for _, id := range ids {
		if _, ok := s.roles[id]; ok {
			delete(s.roles, id)
			delete(s.holders, id)
			delete(s.granted, id)
			count++
		}
	}
	return count, nil
}

func (s *fakeRoleStore) UsersWithRole(ctx context.Context, roleID string, params repository.ListParams) ([]*repository.UserListItem, int64, error) {
	items := make([]*repository.UserListItem, 0)
	for userID := range s.holders[roleID] {
		items = append(items, &repository.UserListItem{ID: userID})
	}
	return items, int64(len(items)), nil
}

func (s *fakeRoleStore) UserOptions(ctx context.Context, roleID, search string) ([]*repository.UserListItem, error) {
	return nil, nil
}

func (s *fakeRoleStore) HasRole(ctx context.Context, userID, roleID string) (bool, error) {
	return s.holders[roleID][userID], nil
}

func (s *fakeRoleStore) AssignUser(ctx context.Context, userID, roleID string) (bool, error) {
	if s.holders[roleID][userID] {
		return false, nil
	}
	s.holders[roleID][userID] = true
	return true, nil
}

func (s *fakeRoleStore) RemoveUsers(ctx context.Context, roleID string, userIDs []string) error {
	for _, userID := range userIDs {
		delete(s.holders[roleID], userID)
	}
	return nil
}

func (s *fakeRoleStore) PermissionNames(ctx context.Context, roleID string) ([]string, error) {
	return s.granted[roleID], nil
}

// SyncPermissions mirrors the transactional contract: any unknown name
// rejects the whole replacement, leaving the grant set untouched.
func (s *fakeRoleStore) SyncPermissions(ctx context.Context, roleID string, names []string) error {
	for _, name := range names {
		if !s.permCatalog[name] {
			return fmt.Errorf("%w: %s", repository.ErrUnknownPermission, name)
		}
	}
	s.granted[roleID] = names
	return nil
}

func (s *fakeRoleStore) UserCan(ctx context.Context, userID, capability, guard string) (bool, error) {
	for roleID, holders := range s.holders {
		if !holders[userID] {
			continue
		}
		if s.roles[roleID] != nil && s.roles[roleID].GuardName != guard {
			continue
		}
		for _, name := range s.granted[roleID] {
			if name == capability {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *fakeRoleStore) RoleNameOptions(ctx context.Context, search string) ([]string, error) {
	names := make([]string, 0, len(s.roles))
	for _, r := range s.roles {
		names = append(names, r.Name)
	}
	return names, nil
}

type fakePermissionStore struct {
	perms  map[string]*repository.Permission
	nextID int
}

func newFakePermissionStore() *fakePermissionStore {
	return &fakePermissionStore{perms: make(map[string]*repository.Permission)}
}

func (s *fakePermissionStore) Create(ctx context.Context, perm *repository.Permission, grantToRole, actorID string) error {
	s.nextID++
	perm.ID = fmt.Sprintf("perm-%d", s.nextID)
	perm.TouchCreated(actorID)
	s.perms[perm.ID] = perm
	return nil
}

func (s *fakePermissionStore) GetByID(ctx context.Context, id string) (*repository.Permission, error) {
	p, ok := s.perms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (s *fakePermissionStore) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	for _, p := range s.perms {
		if p.Name == name && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakePermissionStore) List(ctx context.Context, params repository.ListParams) ([]*repository.Permission, int64, error) {
	out := make([]*repository.Permission, 0, len(s.perms))
	for _, p := range s.perms {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (s *fakePermissionStore) NameOptions(ctx context.Context, search string) ([]string, error) {
	names := make([]string, 0, len(s.perms))
	for _, p := range s.perms {
		names = append(names, p.Name)
	}
	return names, nil
}

func (s *fakePermissionStore) Update(ctx context.Context, perm *repository.Permission, actorID string) error {
	if _, ok := s.perms[perm.ID]; !ok {
		return repository.ErrNotFound
	}
	s.perms[perm.ID] = perm
	return nil
}

func (s *fakePermissionStore) Delete(ctx context.Context, ids []string) (int64, error) {
	var count int64
	for _, id := range ids {
		if _, ok := s.perms[id]; ok {
			delete(s.perms, id)
			count++
		}
	}
	return count, nil
}

type fakeProfileStore struct {
	profiles map[string]*repository.Profile
	settings map[string]json.RawMessage
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{
		profiles: make(map[string]*repository.Profile),
		settings: make(map[string]json.RawMessage),
	}
}

func (s *fakeProfileStore) GetByUserID(ctx context.Context, userID string) (*repository.Profile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (s *fakeProfileStore) IdentityNumberTaken(ctx context.Context, identityNumber, excludeUserID string) (bool, error) {
	for _, p := range s.profiles {
		if p.IdentityNumber == identityNumber && p.UserID != excludeUserID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeProfileStore) Upsert(ctx context.Context, p *repository.Profile, actorID string) error {
	if existing, ok := s.profiles[p.UserID]; ok && p.Photo == nil {
		p.Photo = existing.Photo
	}
	s.profiles[p.UserID] = p
	return nil
}

func (s *fakeProfileStore) GetSettings(ctx context.Context, userID string) (json.RawMessage, error) {
	if raw, ok := s.settings[userID]; ok {
		return raw, nil
	}
	return json.RawMessage(`{}`), nil
}

func (s *fakeProfileStore) SaveSettings(ctx context.Context, userID string, settings json.RawMessage) error {
	s.settings[userID] = settings
	return nil
}

type fakeResetStore struct {
	records map[string]*repository.PasswordReset
}

func newFakeResetStore() *fakeResetStore {
	return &fakeResetStore{records: make(map[string]*repository.PasswordReset)}
}

func (s *fakeResetStore) Upsert(ctx context.Context, email, tokenHash string) error {
	s.records[email] = &repository.PasswordReset{Email: email, TokenHash: tokenHash, CreatedAt: time.Now()}
	return nil
}

func (s *fakeResetStore) Get(ctx context.Context, email string) (*repository.PasswordReset, error) {
	rec, ok := s.records[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec, nil
}

func (s *fakeResetStore) Delete(ctx context.Context, email string) error {
	delete(s.records, email)
	return nil
}

type fakeMailer struct {
	sent []string
	fail bool
}

func (m *fakeMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	if m.fail {
		return fmt.Errorf("smtp unreachable")
	}
	m.sent = append(m.sent, token)
	return nil
}
