package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/adiwidodo/go-backoffice/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
	log      zerolog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, log: log}
}

func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Show(r.Context(), r.PathValue("user_id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "OK", newProfileView(profile))
}

func (h *ProfileHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req service.SaveProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID := r.PathValue("user_id")
	if err := h.profiles.Save(r.Context(), userID, req, actorID(r)); err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Profile saved.", nil)
}

func (h *ProfileHandler) UserShow(w http.ResponseWriter, r *http.Request) {
	user, err := h.profiles.ShowUser(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "OK", newUserView(user))
}

func (h *ProfileHandler) UserUpdate(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateIdentityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.profiles.UpdateIdentity(r.Context(), r.PathValue("id"), req, actorID(r)); err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Account updated.", nil)
}

// SecurityShow lists the active sessions of an account.
func (h *ProfileHandler) SecurityShow(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.profiles.Sessions(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "OK", newSessionViews(sessions))
}

// UpdatePassword changes the principal's password; every other session is
// revoked, the current one stays alive.
func (h *ProfileHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req service.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	principal, _ := PrincipalFrom(r.Context())
	if err := h.profiles.ChangePassword(r.Context(), r.PathValue("id"), req, principal.TokenID); err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Password updated.", nil)
}

// SessionLogout revokes one of the principal's own sessions.
func (h *ProfileHandler) SessionLogout(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	if err := h.profiles.SessionLogout(r.Context(), principal.User.ID, r.PathValue("token_id")); err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Session revoked.", nil)
}

func (h *ProfileHandler) SettingsShow(w http.ResponseWriter, r *http.Request) {
	settings, err := h.profiles.Settings(r.Context(), r.PathValue("user_id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "OK", settings)
}

func (h *ProfileHandler) SettingsSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Settings json.RawMessage `json:"settings"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.profiles.SaveSettings(r.Context(), r.PathValue("user_id"), req.Settings); err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Settings saved.", nil)
}
