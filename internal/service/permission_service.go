package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/adiwidodo/go-backoffice/internal/config"
	"github.com/adiwidodo/go-backoffice/internal/repository"
)

type PermissionService struct {
	perms PermissionStore
	cfg   config.Auth
	log   zerolog.Logger
}

func NewPermissionService(perms PermissionStore, cfg config.Auth, log zerolog.Logger) *PermissionService {
	return &PermissionService{perms: perms, cfg: cfg, log: log}
}

func (s *PermissionService) List(ctx context.Context, params repository.ListParams) ([]*repository.Permission, int64, error) {
	return s.perms.List(ctx, params)
}

func (s *PermissionService) Get(ctx context.Context, id string) (*repository.Permission, error) {
	return s.perms.GetByID(ctx, id)
}

type PermissionRequest struct {
	Module      string  `json:"module"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// FullName joins module and action into the stored capability string.
func (r PermissionRequest) FullName() string {
	return r.Module + "." + r.Name
}

func (s *PermissionService) checkPermission(ctx context.Context, req PermissionRequest, excludeID string) error {
	v := NewFieldErrors()
	if req.Module == "" {
		v.Add("module", "The module field is required.")
	}
	switch {
	case req.Name == "":
		v.Add("name", "The name field is required.")
	case !permNameRx.MatchString(req.Name):
		v.Add("name", "The name may only contain lowercase letters and dots.")
	}
	if !v.Any() {
		taken, err := s.perms.NameTaken(ctx, req.FullName(), excludeID)
		if err != nil {
			return err
		}
		if taken {
			v.Add("name", "The name has already been taken.")
		}
	}
	return v.OrNil()
}

// Create registers a new capability and grants it to the bootstrap role when
// that role exists, so the administrator keeps a complete permission set as
// the catalog grows.
func (s *PermissionService) Create(ctx context.Context, req PermissionRequest, actorID string) (*repository.Permission, error) {
	if err := s.checkPermission(ctx, req, ""); err != nil {
		return nil, err
	}

	perm := &repository.Permission{
		Name:        req.FullName(),
		GuardName:   s.cfg.Guard,
		Description: req.Description,
	}
	if err := s.perms.Create(ctx, perm, s.cfg.BootstrapRole, actorID); err != nil {
		return nil, err
	}

	s.log.Info().Str("permission_id", perm.ID).Str("name", perm.Name).Msg("Permission created")
	return perm, nil
}

func (s *PermissionService) Update(ctx context.Context, id string, req PermissionRequest, actorID string) (*repository.Permission, error) {
	perm, err := s.perms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkPermission(ctx, req, id); err != nil {
		return nil, err
	}

	perm.Name = req.FullName()
	perm.Description = req.Description
	if err := s.perms.Update(ctx, perm, actorID); err != nil {
		return nil, err
	}

	s.log.Info().Str("permission_id", perm.ID).Msg("Permission updated")
	return perm, nil
}

func (s *PermissionService) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		v := NewFieldErrors()
		v.Add("ids", "The ids field is required.")
		return 0, v
	}

	count, err := s.perms.Delete(ctx, ids)
	if err != nil {
		return 0, err
	}

	s.log.Info().Int64("count", count).Msg("Permissions deleted")
	return count, nil
}
