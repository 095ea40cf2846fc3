package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/adiwidodo/go-backoffice/internal/service"
)

// Router assembles the HTTP surface: public authentication routes, then
// bearer-gated routes, with capability gates on the privileged ones.
func Router(
	auth *service.AuthService,
	roles *service.RoleService,
	perms *service.PermissionService,
	users *service.UserService,
	profiles *service.ProfileService,
	log zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	authHandler := NewAuthHandler(auth, log)
	privilegeHandler := NewPrivilegeHandler(roles, perms, log)
	userHandler := NewUserHandler(users, log)
	profileHandler := NewProfileHandler(profiles, log)

	guard := RequireAuth(auth, log)
	can := func(capability string, h http.HandlerFunc) http.Handler {
		return guard(RequirePermission(auth, log, capability)(h))
	}

	mux.HandleFunc("POST /authentication/login", authHandler.Login)
	mux.HandleFunc("POST /authentication/signup", authHandler.Signup)
	mux.HandleFunc("POST /authentication/forgot-password", authHandler.ForgotPassword)
	mux.HandleFunc("POST /authentication/reset-password", authHandler.ResetPassword)
	mux.Handle("POST /authentication/logout", guard(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /authentication/user", guard(http.HandlerFunc(authHandler.User)))

	mux.Handle("GET /privilege/role/data", can("Privilege.role.view", privilegeHandler.RoleData))
	mux.Handle("POST /privilege/role/store", can("Privilege.role.add", privilegeHandler.RoleStore))
	mux.Handle("GET /privilege/role/show/{id}", can("Privilege.role.view", privilegeHandler.RoleShow))
	mux.Handle("PUT /privilege/role/update/{id}", can("Privilege.role.edit", privilegeHandler.RoleUpdate))
	mux.Handle("POST /privilege/role/bulk-delete", can("Privilege.role.delete", privilegeHandler.RoleBulkDelete))

	mux.Handle("GET /privilege/role/user/data/{id}", can("Privilege.role.user.view", privilegeHandler.RoleUserData))
	mux.Handle("GET /privilege/role/user/options/{id}", guard(http.HandlerFunc(privilegeHandler.RoleUserOptions)))
	mux.Handle("POST /privilege/role/user/store/{id}", can("Privilege.role.user.add", privilegeHandler.RoleUserStore))
	mux.Handle("POST /privilege/role/user/bulk-delete/{id}", can("Privilege.role.user.delete", privilegeHandler.RoleUserBulkDelete))

	mux.Handle("GET /privilege/role/permission/options", guard(http.HandlerFunc(privilegeHandler.RolePermissionOptions)))
	mux.Handle("GET /privilege/role/permission/show/{id}", can("Privilege.role.permission.view", privilegeHandler.RolePermissionShow))
	mux.Handle("PUT /privilege/role/permission/update/{id}", can("Privilege.role.permission.edit", privilegeHandler.RolePermissionUpdate))

	mux.Handle("GET /privilege/permission/data", can("Privilege.permission.view", privilegeHandler.PermissionData))
	mux.Handle("POST /privilege/permission/store", can("Privilege.permission.add", privilegeHandler.PermissionStore))
	mux.Handle("GET /privilege/permission/show/{id}", can("Privilege.permission.view", privilegeHandler.PermissionShow))
	mux.Handle("PUT /privilege/permission/update/{id}", can("Privilege.permission.edit", privilegeHandler.PermissionUpdate))
	mux.Handle("POST /privilege/permission/bulk-delete", can("Privilege.permission.delete", privilegeHandler.PermissionBulkDelete))

	mux.Handle("GET /user/data", can("User.view", userHandler.Data))
	mux.Handle("GET /user/role/options", can("User.view", userHandler.RoleOptions))
	mux.Handle("GET /user/show/{id}", can("User.view", userHandler.Show))
	mux.Handle("PUT /user/update/{id}", can("User.edit", userHandler.Update))
	mux.Handle("POST /user/bulk-delete", can("User.delete", userHandler.BulkDelete))

	mux.Handle("GET /profile/show/{user_id}", guard(http.HandlerFunc(profileHandler.Show)))
	mux.Handle("POST /profile/save/{user_id}", guard(http.HandlerFunc(profileHandler.Save)))
	mux.Handle("GET /profile/user/show/{id}", guard(http.HandlerFunc(profileHandler.UserShow)))
	mux.Handle("PUT /profile/user/update/{id}", guard(http.HandlerFunc(profileHandler.UserUpdate)))
	mux.Handle("GET /profile/security/show/{id}", guard(http.HandlerFunc(profileHandler.SecurityShow)))
	mux.Handle("PUT /profile/security/update-password/{id}", guard(http.HandlerFunc(profileHandler.UpdatePassword)))
	mux.Handle("DELETE /profile/security/session-logout/{token_id}", guard(http.HandlerFunc(profileHandler.SessionLogout)))
	mux.Handle("GET /profile/settings/show/{user_id}", guard(http.HandlerFunc(profileHandler.SettingsShow)))
	mux.Handle("POST /profile/settings/save/{user_id}", guard(http.HandlerFunc(profileHandler.SettingsSave)))

	return RequestLogger(log)(mux)
}
