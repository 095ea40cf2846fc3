package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/adiwidodo/go-backoffice/internal/config"
	"github.com/adiwidodo/go-backoffice/internal/repository"
)

// ErrAlreadyAssigned is returned when a role is granted to a user who
// already holds it.
var ErrAlreadyAssigned = errors.New("user already has this role")

type RoleService struct {
	roles RoleStore
	perms PermissionStore
	cfg   config.Auth
	log   zerolog.Logger
}

func NewRoleService(roles RoleStore, perms PermissionStore, cfg config.Auth, log zerolog.Logger) *RoleService {
	return &RoleService{roles: roles, perms: perms, cfg: cfg, log: log}
}

func (s *RoleService) List(ctx context.Context, params repository.ListParams) ([]*repository.Role, int64, error) {
	return s.roles.List(ctx, params)
}

type RoleRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (s *RoleService) checkRole(ctx context.Context, req RoleRequest, excludeID string) error {
	v := NewFieldErrors()
	switch {
	case req.Name == "":
		v.Add("name", "The name field is required.")
	case len(req.Name) > 255:
		v.Add("name", "The name may not be greater than 255 characters.")
	default:
		taken, err := s.roles.NameTaken(ctx, req.Name, excludeID)
		if err != nil {
			return err
		}
		if taken {
			v.Add("name", "The name has already been taken.")
		}
	}
	return v.OrNil()
}

func (s *RoleService) Create(ctx context.Context, req RoleRequest, actorID string) (*repository.Role, error) {
	if err := s.checkRole(ctx, req, ""); err != nil {
		return nil, err
	}

	role := &repository.Role{
		Name:        req.Name,
		GuardName:   s.cfg.Guard,
		Description: req.Description,
	}
	if err := s.roles.Create(ctx, role, actorID); err != nil {
		return nil, err
	}

	s.log.Info().Str("role_id", role.ID).Str("name", role.Name).Msg("Role created")
	return role, nil
}

func (s *RoleService) Get(ctx context.Context, id string) (*repository.Role, error) {
	return s.roles.GetByID(ctx, id)
}

func (s *RoleService) Update(ctx context.Context, id string, req RoleRequest, actorID string) (*repository.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkRole(ctx, req, id); err != nil {
		return nil, err
	}

	role.Name = req.Name
	role.Description = req.Description
	if err := s.roles.Update(ctx, role, actorID); err != nil {
		return nil, err
	}

	s.log.Info().Str("role_id", role.ID).Msg("Role updated")
	return role, nil
}

func (s *RoleService) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		v := NewFieldErrors()
		v.Add("ids", "The ids field is required.")
		return 0, v
	}

	count, err := s.roles.Delete(ctx, ids)
	if err != nil {
		return 0, err
	}

	s.log.Info().Int64("count", count).Msg("Roles deleted")
	return count, nil
}

// Users lists the holders of a role, paginated.
func (s *RoleService) Users(ctx context.Context, roleID string, params repository.ListParams) ([]*repository.UserListItem, int64, error) {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return nil, 0, err
	}
	return s.roles.UsersWithRole(ctx, roleID, params)
}

// UserOptions lists active users who do not yet hold the role, as
// candidates for assignment.
func (s *RoleService) UserOptions(ctx context.Context, roleID, search string) ([]*repository.UserListItem, error) {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return nil, err
	}
	return s.roles.UserOptions(ctx, roleID, search)
}

// AssignUser grants a role to a user. Granting a role the user already
// holds is an error, not a silent no-op, so the caller learns the request
// was stale.
func (s *RoleService) AssignUser(ctx context.Context, roleID, userID string) error {
	if userID == "" {
		v := NewFieldErrors()
		v.Add("user_id", "The user id field is required.")
		return v
	}
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return err
	}

	inserted, err := s.roles.AssignUser(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if !inserted {
		return ErrAlreadyAssigned
	}

	s.log.Info().Str("role_id", roleID).Str("user_id", userID).Msg("Role assigned")
	return nil
}

func (s *RoleService) RemoveUsers(ctx context.Context, roleID string, userIDs []string) error {
	if len(userIDs) == 0 {
		v := NewFieldErrors()
		v.Add("ids", "The ids field is required.")
		return v
	}
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return err
	}
	if err := s.roles.RemoveUsers(ctx, roleID, userIDs); err != nil {
		return err
	}

	s.log.Info().Str("role_id", roleID).Int("count", len(userIDs)).Msg("Role holders removed")
	return nil
}

// Permissions returns the names currently granted to a role.
func (s *RoleService) Permissions(ctx context.Context, roleID string) (*repository.Role, []string, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, nil, err
	}
	names, err := s.roles.PermissionNames(ctx, roleID)
	if err != nil {
		return nil, nil, err
	}
	return role, names, nil
}

// SyncPermissions replaces a role's permission set in one transaction; any
// unknown name rejects the whole replacement.
func (s *RoleService) SyncPermissions(ctx context.Context, roleID string, names []string) error {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return err
	}
	if err := s.roles.SyncPermissions(ctx, roleID, names); err != nil {
		return err
	}

	s.log.Info().Str("role_id", roleID).Int("count", len(names)).Msg("Role permissions synced")
	return nil
}

// PermissionOptions lists assignable permission names.
func (s *RoleService) PermissionOptions(ctx context.Context, search string) ([]string, error) {
	return s.perms.NameOptions(ctx, search)
}

// NameOptions lists role names for assignment pickers.
func (s *RoleService) NameOptions(ctx context.Context, search string) ([]string, error) {
	return s.roles.RoleNameOptions(ctx, search)
}
