package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/adiwidodo/go-backoffice/internal/repository"
	"github.com/adiwidodo/go-backoffice/internal/service"
)

// timestampLayout is the wire format for token expiry timestamps.
const timestampLayout = "2006-01-02 15:04:05"

type userView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

func newUserView(u *repository.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email, IsActive: u.IsActive}
}

type profileView struct {
	UserID         string  `json:"user_id"`
	Photo          *string `json:"photo"`
	IdentityNumber string  `json:"identity_number"`
	FullName       string  `json:"full_name"`
	BirthDate      string  `json:"birth_date"`
	Gender         string  `json:"gender"`
	PhoneNumber    string  `json:"phone_number"`
	Address        string  `json:"address"`
}

func newProfileView(p *repository.Profile) *profileView {
	if p == nil {
		return nil
	}
	return &profileView{
		UserID:         p.UserID,
		Photo:          p.Photo,
		IdentityNumber: p.IdentityNumber,
		FullName:       p.FullName,
		BirthDate:      p.BirthDate.Format("2006-01-02"),
		Gender:         p.Gender,
		PhoneNumber:    p.PhoneNumber,
		Address:        p.Address,
	}
}

type tokenView struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Type      string `json:"type"`
}

type sessionView struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	IPAddress  string  `json:"ip_address"`
	LastUsedAt *string `json:"last_used_at"`
	ExpiresAt  *string `json:"expires_at"`
}

func newSessionViews(tokens []*repository.AccessToken) []sessionView {
	views := make([]sessionView, 0, len(tokens))
	for _, t := range tokens {
		views = append(views, sessionView{
			ID:         t.ID,
			Name:       t.Name,
			IPAddress:  t.IPAddress,
			LastUsedAt: formatTimePtr(t.LastUsedAt),
			ExpiresAt:  formatTimePtr(t.ExpiresAt),
		})
	}
	return views
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timestampLayout)
	return &s
}

// accountResponse is the flat body of the login and current-user endpoints:
// the account fields sit beside success/message, not under a data key.
type accountResponse struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	User        userView        `json:"user"`
	Profile     *profileView    `json:"profile"`
	Settings    json.RawMessage `json:"settings"`
	Roles       []string        `json:"roles"`
	Permissions []string        `json:"permissions"`
	Token       *tokenView      `json:"token,omitempty"`
}

func writeAccount(w http.ResponseWriter, message string, res *service.LoginResult) {
	body := accountResponse{
		Success:     true,
		Message:     message,
		User:        newUserView(res.User),
		Profile:     newProfileView(res.Profile),
		Settings:    res.Settings,
		Roles:       res.Roles,
		Permissions: res.Permissions,
	}
	if res.PlainToken != "" {
		body.Token = &tokenView{
			Token:     res.PlainToken,
			ExpiresAt: res.ExpiresAt.Format(timestampLayout),
			Type:      "Bearer",
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}

type roleView struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	GuardName       string  `json:"guard_name"`
	Description     *string `json:"description"`
	UserCount       int64   `json:"user_count"`
	PermissionCount int64   `json:"permission_count"`
}

func newRoleView(r *repository.Role) roleView {
	return roleView{
		ID:              r.ID,
		Name:            r.Name,
		GuardName:       r.GuardName,
		Description:     r.Description,
		UserCount:       r.UserCount,
		PermissionCount: r.PermissionCount,
	}
}

func newRoleViews(roles []*repository.Role) []roleView {
	views := make([]roleView, 0, len(roles))
	for _, r := range roles {
		views = append(views, newRoleView(r))
	}
	return views
}

type permissionView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	GuardName   string  `json:"guard_name"`
	Description *string `json:"description"`
}

func newPermissionView(p *repository.Permission) permissionView {
	return permissionView{ID: p.ID, Name: p.Name, GuardName: p.GuardName, Description: p.Description}
}

func newPermissionViews(perms []*repository.Permission) []permissionView {
	views := make([]permissionView, 0, len(perms))
	for _, p := range perms {
		views = append(views, newPermissionView(p))
	}
	return views
}

type userListItemView struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	IsActive bool     `json:"is_active"`
	FullName *string  `json:"full_name"`
	Photo    *string  `json:"photo"`
	Roles    []string `json:"roles"`
}

func newUserListItemViews(items []*repository.UserListItem) []userListItemView {
	views := make([]userListItemView, 0, len(items))
	for _, item := range items {
		views = append(views, userListItemView{
			ID:       item.ID,
			Name:     item.Name,
			Email:    item.Email,
			IsActive: item.IsActive,
			FullName: item.FullName,
			Photo:    item.Photo,
			Roles:    item.Roles,
		})
	}
	return views
}
