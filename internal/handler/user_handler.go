package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/adiwidodo/go-backoffice/internal/service"
)

type UserHandler struct {
	users *service.UserService
	log   zerolog.Logger
}

func NewUserHandler(users *service.UserService, log zerolog.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

func (h *UserHandler) Data(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)

	items, total, err := h.users.List(r.Context(), params)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "OK", listData{Items: newUserListItemViews(items), Total: total, Page: params.Page, PerPage: params.PerPage})
}

func (h *UserHandler) RoleOptions(w http.ResponseWriter, r *http.Request) {
	names, err := h.users.RoleOptions(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "OK", names)
}

func (h *UserHandler) Show(w http.ResponseWriter, r *http.Request) {
	detail, err := h.users.Show(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "OK", map[string]interface{}{
		"user":        newUserView(detail.User),
		"profile":     newProfileView(detail.Profile),
		"roles":       detail.Roles,
		"permissions": detail.Permissions,
		"sessions":    newSessionViews(detail.Sessions),
	})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.users.Update(r.Context(), r.PathValue("id"), req, actorID(r)); err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "User updated.", nil)
}

func (h *UserHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	count, err := h.users.BulkDelete(r.Context(), req.IDs, actorID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Users deleted.", map[string]int64{"deleted": count})
}
