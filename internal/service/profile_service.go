package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/adiwidodo/go-backoffice/internal/repository"
	"github.com/adiwidodo/go-backoffice/pkg/password"
)

type ProfileService struct {
	users    UserStore
	profiles ProfileStore
	tokens   TokenStore
	log      zerolog.Logger
}

func NewProfileService(users UserStore, profiles ProfileStore, tokens TokenStore, log zerolog.Logger) *ProfileService {
	return &ProfileService{users: users, profiles: profiles, tokens: tokens, log: log}
}

func (s *ProfileService) Show(ctx context.Context, userID string) (*repository.Profile, error) {
	return s.profiles.GetByUserID(ctx, userID)
}

type SaveProfileRequest struct {
	Photo          *string `json:"photo"`
	IdentityNumber string  `json:"identity_number"`
	FullName       string  `json:"full_name"`
	BirthDate      string  `json:"birth_date"`
	Gender         string  `json:"gender"`
	PhoneNumber    string  `json:"phone_number"`
	Address        string  `json:"address"`
}

// Save upserts the personal data of a user's profile.
func (s *ProfileService) Save(ctx context.Context, userID string, req SaveProfileRequest, actorID string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	v := NewFieldErrors()
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
		taken, err := s.profiles.IdentityNumberTaken(ctx, req.IdentityNumber, userID)
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

	profile := &repository.Profile{
		UserID:         userID,
		Photo:          req.Photo,
		IdentityNumber: req.IdentityNumber,
		FullName:       req.FullName,
		BirthDate:      birthDate,
		Gender:         req.Gender,
		PhoneNumber:    req.PhoneNumber,
		Address:        req.Address,
	}
	if err := s.profiles.Upsert(ctx, profile, actorID); err != nil {
		return err
	}

	s.log.Info().Str("user_id", userID).Msg("Profile saved")
	return nil
}

// ShowUser retrieves the account row behind a profile.
func (s *ProfileService) ShowUser(ctx context.Context, id string) (*repository.User, error) {
	return s.users.GetByID(ctx, id)
}

type UpdateIdentityRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UpdateIdentity changes the login name and email of an account.
func (s *ProfileService) UpdateIdentity(ctx context.Context, userID string, req UpdateIdentityRequest, actorID string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	v := NewFieldErrors()
	checkUsername(v, "name", req.Name)
	checkEmail(v, "email", req.Email)

	if !v.Any() {
		taken, err := s.users.NameTaken(ctx, req.Name, userID)
		if err != nil {
			return err
		}
		if taken {
			v.Add("name", "Username already in use.")
		}
		taken, err = s.users.EmailTaken(ctx, req.Email, userID)
		if err != nil {
			return err
		}
		if taken {
			v.Add("email", "The email has already been taken.")
		}
	}
	if v.Any() {
		return v
	}

	if err := s.users.UpdateIdentity(ctx, userID, req.Name, req.Email, actorID); err != nil {
		return err
	}

	s.log.Info().Str("user_id", userID).Msg("Account identity updated")
	return nil
}

// Sessions lists the active bearer sessions of a user.
func (s *ProfileService) Sessions(ctx context.Context, userID string) ([]*repository.AccessToken, error) {
	return s.tokens.ListForUser(ctx, userID)
}

type ChangePasswordRequest struct {
	OldPassword          string `json:"old_password"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// ChangePassword replaces a user's password after checking the old one, then
// revokes every session except the one making the change.
func (s *ProfileService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest, currentTokenID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	v := NewFieldErrors()
	if req.OldPassword == "" {
		v.Add("old_password", "The old password field is required.")
	}
	checkPassword(v, "password", req.Password, req.PasswordConfirmation)
	if v.Any() {
		return v
	}

	ok, err := password.Verify(req.OldPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("password verification error: %w", err)
	}
	if !ok {
		v.Add("old_password", "The old password is incorrect.")
		return v
	}

	hash, err := password.Hash(req.Password, nil)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, userID); err != nil {
		return err
	}
	if err := s.tokens.DeleteForUser(ctx, userID, currentTokenID); err != nil {
		return err
	}

	s.log.Info().Str("user_id", userID).Msg("Password changed")
	return nil
}

// SessionLogout revokes one of the user's own sessions; tokens of other
// users are untouchable through this path.
func (s *ProfileService) SessionLogout(ctx context.Context, userID, tokenID string) error {
	if err := s.tokens.DeleteOwned(ctx, userID, tokenID); err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Str("token_id", tokenID).Msg("Session revoked")
	return nil
}

func (s *ProfileService) Settings(ctx context.Context, userID string) (json.RawMessage, error) {
	return s.profiles.GetSettings(ctx, userID)
}

// SaveSettings stores the free-form settings blob after checking it is
// well-formed JSON.
func (s *ProfileService) SaveSettings(ctx context.Context, userID string, settings json.RawMessage) error {
	if !json.Valid(settings) {
		v := NewFieldErrors()
		v.Add("settings", "The settings must be a valid JSON object.")
		return v
	}
	if err := s.profiles.SaveSettings(ctx, userID, settings); err != nil {
		return err
	}

	s.log.Info().Str("user_id", userID).Msg("Settings saved")
	return nil
}
