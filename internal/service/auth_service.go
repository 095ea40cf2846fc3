package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/adiwidodo/go-backoffice/internal/config"
	"github.com/adiwidodo/go-backoffice/internal/repository"
	"github.com/adiwidodo/go-backoffice/pkg/password"
	"github.com/adiwidodo/go-backoffice/pkg/resetjwt"
	"github.com/adiwidodo/go-backoffice/pkg/token"
)

var (
	ErrUnknownIdentity   = errors.New("email address not registered")
	ErrBadCredential     = errors.New("incorrect password")
	ErrAccountDisabled   = errors.New("account disabled")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
	ErrNoSuchAccount     = errors.New("no account for this email")
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
	ErrDispatchFailed    = errors.New("failed to send reset email")
)

// DeviceUnknown is the device label recorded when a client sends no
// User-Agent header.
const DeviceUnknown = "Unknown Device"

// Principal is the authenticated identity attached to a request by the
// session gate, together with the token it presented.
type Principal struct {
	User           *repository.User
	TokenID        string
	TokenName      string
	TokenExpiresAt *time.Time
}

type AuthService struct {
	users    UserStore
	tokens   TokenStore
	roles    RoleStore
	profiles ProfileStore
	resets   ResetStore
	reset    *resetjwt.Manager
	mailer   Mailer
	cfg      config.Auth
	log      zerolog.Logger
}

func NewAuthService(
	users UserStore,
	tokens TokenStore,
	roles RoleStore,
	profiles ProfileStore,
	resets ResetStore,
	reset *resetjwt.Manager,
	mailer Mailer,
	cfg config.Auth,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		roles:    roles,
		profiles: profiles,
		resets:   resets,
		reset:    reset,
		mailer:   mailer,
		cfg:      cfg,
		log:      log,
	}
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Remember  bool   `json:"remember"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

type LoginResult struct {
	User        *repository.User
	Profile     *repository.Profile
	Settings    json.RawMessage
	Roles       []string
	Permissions []string
	// PlainToken is handed out exactly once; only its digest is stored.
	PlainToken string
	ExpiresAt  time.Time
}

// Login verifies credentials and issues a bearer token bound to the calling
// device. Issuing revokes any prior token for the same
// (user, device, ip) triple in one transaction, so the triple never holds
// two live tokens.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	v := NewFieldErrors()
	checkEmail(v, "email", req.Email)
	if len(req.Password) < 8 {
		v.Add("password", "The password must be at least 8 characters.")
	}
	if v.Any() {
		return nil, v
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnknownIdentity
	}
	if err != nil {
		return nil, err
	}

	ok, err := password.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("password verification error: %w", err)
	}
	if !ok {
		s.log.Warn().Str("user_id", user.ID).Msg("Invalid password")
		return nil, ErrBadCredential
	}

	if !user.IsActive {
		s.log.Warn().Str("user_id", user.ID).Msg("Login rejected for disabled account")
		return nil, ErrAccountDisabled
	}

	device := req.UserAgent
	if device == "" {
		device = DeviceUnknown
	}

	ttl := s.cfg.TokenTTL
	if req.Remember {
		ttl = s.cfg.RememberTTL
	}
	expiresAt := time.Now().Add(ttl)

	secret, digest, err := token.Generate()
	if err != nil {
		return nil, err
	}

	record := &repository.AccessToken{
		UserID:    user.ID,
		Name:      device,
		TokenHash: digest,
		IPAddress: req.IPAddress,
		ExpiresAt: &expiresAt,
	}
	if err := s.tokens.Replace(ctx, record); err != nil {
		return nil, fmt.Errorf("token issuance failed: %w", err)
	}

	result, err := s.assemblePayload(ctx, user)
	if err != nil {
		return nil, err
	}
	result.PlainToken = secret
	result.ExpiresAt = expiresAt

	s.log.Info().
		Str("user_id", user.ID).
		Str("device", device).
		Str("ip", req.IPAddress).
		Msg("Login successful")

	return result, nil
}

type SignupRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// Signup registers a new active user.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) error {
	v := NewFieldErrors()
	checkUsername(v, "name", req.Name)
	checkEmail(v, "email", req.Email)
	checkPassword(v, "password", req.Password, req.PasswordConfirmation)

	if req.Name != "" {
		taken, err := s.users.NameTaken(ctx, req.Name, "")
		if err != nil {
			return err
		}
		if taken {
			v.Add("name", "Username already in use.")
		}
	}
	if validEmail(req.Email) {
		taken, err := s.users.EmailTaken(ctx, req.Email, "")
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

	hash, err := password.Hash(req.Password, nil)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &repository.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user, ""); err != nil {
		return err
	}

	s.log.Info().Str("user_id", user.ID).Msg("User registered")
	return nil
}

// ResolveToken maps a presented bearer secret to a principal. Expiry is
// evaluated exactly once against the supplied check time; an expired token
// is removed with a conditional delete so concurrent requests racing on the
// same token all observe the expired outcome.
func (s *AuthService) ResolveToken(ctx context.Context, secret string, at time.Time) (*Principal, error) {
	record, err := s.tokens.GetByHash(ctx, token.Digest(secret))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	if record.ExpiresAt != nil && !at.Before(*record.ExpiresAt) {
		if _, err := s.tokens.DeleteIfExpired(ctx, record.ID, at); err != nil {
			s.log.Error().Err(err).Str("token_id", record.ID).Msg("Failed to revoke expired token")
		}
		return nil, ErrTokenExpired
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	if err := s.tokens.TouchLastUsed(ctx, record.ID, at); err != nil {
		s.log.Warn().Err(err).Str("token_id", record.ID).Msg("Failed to touch token")
	}

	return &Principal{
		User:           user,
		TokenID:        record.ID,
		TokenName:      record.Name,
		TokenExpiresAt: record.ExpiresAt,
	}, nil
}

// Can evaluates a capability for a user against the configured guard scope.
func (s *AuthService) Can(ctx context.Context, userID, capability string) (bool, error) {
	return s.roles.UserCan(ctx, userID, capability, s.cfg.Guard)
}

// Logout revokes the presented session token. Revoking an already-revoked
// token is a no-op.
func (s *AuthService) Logout(ctx context.Context, p *Principal) error {
	if err := s.tokens.Delete(ctx, p.TokenID); err != nil {
		return err
	}
	s.log.Info().Str("user_id", p.User.ID).Msg("Logout successful")
	return nil
}

// CurrentUser assembles the payload for the authenticated principal.
func (s *AuthService) CurrentUser(ctx context.Context, p *Principal) (*LoginResult, error) {
	result, err := s.assemblePayload(ctx, p.User)
	if err != nil {
		return nil, err
	}
	if p.TokenExpiresAt != nil {
		result.ExpiresAt = *p.TokenExpiresAt
	} else {
		result.ExpiresAt = time.Now().Add(s.cfg.TokenTTL)
	}
	return result, nil
}

func (s *AuthService) assemblePayload(ctx context.Context, user *repository.User) (*LoginResult, error) {
	roles, err := s.users.RoleNames(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	permissions, err := s.users.PermissionNames(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByUserID(ctx, user.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	settings, err := s.profiles.GetSettings(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:        user,
		Profile:     profile,
		Settings:    settings,
		Roles:       roles,
		Permissions: permissions,
	}, nil
}

// ForgotPassword issues a single-use reset token for the account and hands
// it to the mail collaborator. Only the digest is stored, superseding any
// earlier outstanding token for the address.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	v := NewFieldErrors()
	checkEmail(v, "email", email)
	if v.Any() {
		return v
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNoSuchAccount
	}
	if err != nil {
		return err
	}

	resetToken, err := s.reset.Issue(user.Email)
	if err != nil {
		return err
	}
	if err := s.resets.Upsert(ctx, user.Email, token.Digest(resetToken)); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, resetToken); err != nil {
		s.log.Error().Err(err).Str("email", user.Email).Msg("Reset mail dispatch failed")
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("Password reset requested")
	return nil
}

type ResetPasswordRequest struct {
	Email                string `json:"email"`
	Token                string `json:"token"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// ResetPassword completes the recovery flow: it verifies the token's
// signature, freshness and stored digest, replaces the password hash,
// consumes the token, and revokes every live session of the principal so a
// stolen session cannot outlive the credential change.
func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	v := NewFieldErrors()
	if req.Token == "" {
		v.Add("token", "The token field is required.")
	}
	checkEmail(v, "email", req.Email)
	checkPassword(v, "password", req.Password, req.PasswordConfirmation)
	if v.Any() {
		return v
	}

	claimedEmail, err := s.reset.Verify(req.Token)
	if err != nil || claimedEmail != req.Email {
		return ErrResetTokenInvalid
	}

	record, err := s.resets.Get(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrResetTokenInvalid
	}
	if err != nil {
		return err
	}
	if record.TokenHash != token.Digest(req.Token) {
		return ErrResetTokenInvalid
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrResetTokenInvalid
	}
	if err != nil {
		return err
	}

	hash, err := password.Hash(req.Password, nil)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, user.ID); err != nil {
		return err
	}

	if err := s.resets.Delete(ctx, req.Email); err != nil {
		return err
	}
	if err := s.tokens.DeleteForUser(ctx, user.ID, ""); err != nil {
		return err
	}

	s.log.Info().Str("user_id", user.ID).Msg("Password reset completed")
	return nil
}
