package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/adiwidodo/go-backoffice/internal/repository"
)

type UserService struct {
	users    UserStore
	roles    RoleStore
	profiles ProfileStore
	tokens   TokenStore
	log      zerolog.Logger
}

func NewUserService(users UserStore, roles RoleStore, profiles ProfileStore, tokens TokenStore, log zerolog.Logger) *UserService {
	return &UserService{users: users, roles: roles, profiles: profiles, tokens: tokens, log: log}
}

func (s *UserService) List(ctx context.Context, params repository.ListParams) ([]*repository.UserListItem, int64, error) {
	return s.users.List(ctx, params)
}

// RoleOptions lists role names for the user form's role picker.
func (s *UserService) RoleOptions(ctx context.Context, search string) ([]string, error) {
	return s.roles.RoleNameOptions(ctx, search)
}

// UserDetail is the admin view of a single user: account, profile, grants
// and active sessions together.
type UserDetail struct {
	User        *repository.User
	Profile     *repository.Profile
	Roles       []string
	Permissions []string
	Sessions    []*repository.AccessToken
}

func (s *UserService) Show(ctx context.Context, id string) (*UserDetail, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByUserID(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	roles, err := s.users.RoleNames(ctx, id)
	if err != nil {
		return nil, err
	}
	permissions, err := s.users.PermissionNames(ctx, id)
	if err != nil {
		return nil, err
	}
	sessions, err := s.tokens.ListForUser(ctx, id)
	if err != nil {
		return nil, err
	}

	return &UserDetail{
		User:        user,
		Profile:     profile,
		Roles:       roles,
		Permissions: permissions,
		Sessions:    sessions,
	}, nil
}

type UpdateUserRequest struct {
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	IsActive       bool      `json:"is_active"`
	Photo          *string   `json:"photo"`
	IdentityNumber string    `json:"identity_number"`
	FullName       string    `json:"full_name"`
	BirthDate      string    `json:"birth_date"`
	Gender         string    `json:"gender"`
	PhoneNumber    string    `json:"phone_number"`
	Address        string    `json:"address"`
	Roles          *[]string `json:"roles"`
}

// Update applies the admin user update: account row, profile upsert and
// optional role replacement commit in a single transaction.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest, actorID string) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return err
	}

	v := NewFieldErrors()
	checkUsername(v, "name", req.Name)
	checkEmail(v, "email", req.Email)
	if req.FullName == "" {
		v.Add("full_name", "The full name field is required.")
	}
	if req.IdentityNumber == "" {
		v.Add("identity_number", "The identity number field is required.")
	} else if !digitsRx.MatchString(req.IdentityNumber) {
		v.Add("identity_number", "The identity number may only contain numbers.")
	}
	birthDate := checkDate(v, "birth_date", req.BirthDate)

	if !v.Any() {
		taken, err := s.users.NameTaken(ctx, req.Name, id)
		if err != nil {
			return err
		}
		if taken {
			v.Add("name", "Username already in use.")
		}
		taken, err = s.users.EmailTaken(ctx, req.Email, id)
		if err != nil {
			return err
		}
		if taken {
			v.Add("email", "The email has already been taken.")
		}
		taken, err = s.profiles.IdentityNumberTaken(ctx, req.IdentityNumber, id)
		if err != nil {
			return err
		}
		if taken {
			v.Add("identity_number", "The identity number has already been taken.")
		}
	}
	if v.Any() {
		return v
	}

	update := repository.CompositeUserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		IsActive: req.IsActive,
		Profile: repository.Profile{
			Photo:          req.Photo,
			IdentityNumber: req.IdentityNumber,
			FullName:       req.FullName,
			BirthDate:      birthDate,
			Gender:         req.Gender,
			PhoneNumber:    req.PhoneNumber,
			Address:        req.Address,
		},
		Roles: req.Roles,
	}
	if err := s.users.UpdateComposite(ctx, id, update, actorID); err != nil {
		return err
	}

	s.log.Info().Str("user_id", id).Str("actor_id", actorID).Msg("User updated")
	return nil
}

// BulkDelete soft-deletes users, recording who deleted them.
func (s *UserService) BulkDelete(ctx context.Context, ids []string, actorID string) (int64, error) {
	if len(ids) == 0 {
		v := NewFieldErrors()
		v.Add("ids", "The ids field is required.")
		return 0, v
	}

	count, err := s.users.SoftDelete(ctx, ids, actorID)
	if err != nil {
		return 0, err
	}

	s.log.Info().Int64("count", count).Str("actor_id", actorID).Msg("Users deleted")
	return count, nil
}
