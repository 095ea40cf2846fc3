package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/adiwidodo/go-backoffice/internal/service"
)

type PrivilegeHandler struct {
	roles *service.RoleService
	perms *service.PermissionService
	log   zerolog.Logger
}

func NewPrivilegeHandler(roles *service.RoleService, perms *service.PermissionService, log zerolog.Logger) *PrivilegeHandler {
	return &PrivilegeHandler{roles: roles, perms: perms, log: log}
}

func actorID(r *http.Request) string {
	if principal, ok := PrincipalFrom(r.Context()); ok {
		return principal.User.ID
	}
	return ""
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

func (h *PrivilegeHandler) RoleData(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)

	roles, total, err := h.roles.List(r.Context(), params)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "OK", listData{Items: newRoleViews(roles), Total: total, Page: params.Page, PerPage: params.PerPage})
}

func (h *PrivilegeHandler) RoleStore(w http.ResponseWriter, r *http.Request) {
	var req service.RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := h.roles.Create(r.Context(), req, actorID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondCreated(w, "Role created.", newRoleView(role))
}

func (h *PrivilegeHandler) RoleShow(w http.ResponseWriter, r *http.Request) {
	role, err := h.roles.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "OK", newRoleView(role))
}

func (h *PrivilegeHandler) RoleUpdate(w http.ResponseWriter, r *http.Request) {
	var req service.RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := h.roles.Update(r.Context(), r.PathValue("id"), req, actorID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Role updated.", newRoleView(role))
}

func (h *PrivilegeHandler) RoleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	count, err := h.roles.BulkDelete(r.Context(), req.IDs)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Roles deleted.", map[string]int64{"deleted": count})
}

func (h *PrivilegeHandler) RoleUserData(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)

	users, total, err := h.roles.Users(r.Context(), r.PathValue("id"), params)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "OK", listData{Items: newUserListItemViews(users), Total: total, Page: params.Page, PerPage: params.PerPage})
}

func (h *PrivilegeHandler) RoleUserOptions(w http.ResponseWriter, r *http.Request) {
	users, err := h.roles.UserOptions(r.Context(), r.PathValue("id"), r.URL.Query().Get("search"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "OK", newUserListItemViews(users))
}

func (h *PrivilegeHandler) RoleUserStore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.roles.AssignUser(r.Context(), r.PathValue("id"), req.UserID); err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Role assigned.", nil)
}

func (h *PrivilegeHandler) RoleUserBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.roles.RemoveUsers(r.Context(), r.PathValue("id"), req.IDs); err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Role holders removed.", nil)
}

func (h *PrivilegeHandler) RolePermissionOptions(w http.ResponseWriter, r *http.Request) {
	names, err := h.roles.PermissionOptions(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "OK", names)
}

func (h *PrivilegeHandler) RolePermissionShow(w http.ResponseWriter, r *http.Request) {
	role, names, err := h.roles.Permissions(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "OK", map[string]interface{}{
		"role":        newRoleView(role),
		"permissions": names,
	})
}

func (h *PrivilegeHandler) RolePermissionUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Permissions []string `json:"permissions"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.roles.SyncPermissions(r.Context(), r.PathValue("id"), req.Permissions); err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Role permissions updated.", nil)
}

func (h *PrivilegeHandler) PermissionData(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)

	perms, total, err := h.perms.List(r.Context(), params)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "OK", listData{Items: newPermissionViews(perms), Total: total, Page: params.Page, PerPage: params.PerPage})
}

func (h *PrivilegeHandler) PermissionStore(w http.ResponseWriter, r *http.Request) {
	var req service.PermissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	perm, err := h.perms.Create(r.Context(), req, actorID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondCreated(w, "Permission created.", newPermissionView(perm))
}

func (h *PrivilegeHandler) PermissionShow(w http.ResponseWriter, r *http.Request) {
	perm, err := h.perms.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "OK", newPermissionView(perm))
}

func (h *PrivilegeHandler) PermissionUpdate(w http.ResponseWriter, r *http.Request) {
	var req service.PermissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	perm, err := h.perms.Update(r.Context(), r.PathValue("id"), req, actorID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Permission updated.", newPermissionView(perm))
}

func (h *PrivilegeHandler) PermissionBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	count, err := h.perms.BulkDelete(r.Context(), req.IDs)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Permissions deleted.", map[string]int64{"deleted": count})
}
