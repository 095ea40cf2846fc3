package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiwidodo/go-backoffice/internal/config"
	"github.com/adiwidodo/go-backoffice/internal/repository"
	"github.com/adiwidodo/go-backoffice/internal/service"
	"github.com/adiwidodo/go-backoffice/pkg/password"
	"github.com/adiwidodo/go-backoffice/pkg/resetjwt"
)

func newTestRouter(t *testing.T) (http.Handler, *gateEnv) {
	t.Helper()

	hash, err := password.Hash("S3cret!pass", nil)
	require.NoError(t, err)

	user := &repository.User{
		ID:           "user-1",
		Name:         "someone",
		Email:        "someone@example.com",
		PasswordHash: hash,
		IsActive:     true,
	}

	env := &gateEnv{
		tokens: newStubTokens(),
		roles:  &stubRoles{allow: make(map[string]bool)},
		user:   user,
	}

	cfg := config.Auth{
		Guard:         "api",
		BootstrapRole: "System Administrator",
		TokenTTL:      168 * time.Hour,
		RememberTTL:   720 * time.Hour,
		ResetSecret:   "test-secret",
		ResetTTL:      time.Hour,
	}

	users := newStubUsers(user)
	profiles := &stubProfiles{}
	perms := &stubPerms{}
	log := zerolog.Nop()

	env.auth = service.NewAuthService(
		users, env.tokens, env.roles, profiles, &stubResets{},
		resetjwt.NewManager(cfg.ResetSecret, cfg.ResetTTL),
		&stubMailer{}, cfg, log,
	)

	router := Router(
		env.auth,
		service.NewRoleService(env.roles, perms, cfg, log),
		service.NewPermissionService(perms, cfg, log),
		service.NewUserService(users, env.roles, profiles, env.tokens, log),
		service.NewProfileService(users, profiles, env.tokens, log),
		log,
	)

	return router, env
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	buf, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLoginEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/authentication/login", map[string]interface{}{
		"email":    "someone@example.com",
		"password": "S3cret!pass",
	}, "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])

	// Account fields sit at the top level of the body, beside success/message.
	userObj := body["user"].(map[string]interface{})
	assert.Equal(t, "someone@example.com", userObj["email"])
	assert.Contains(t, body, "roles")
	assert.Contains(t, body, "permissions")

	tok := body["token"].(map[string]interface{})
	assert.Equal(t, "Bearer", tok["type"])
	assert.Len(t, tok["token"], 64)

	expiresAt, err := time.Parse(timestampLayout, tok["expires_at"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(168*time.Hour), expiresAt, time.Minute)
}

func TestLoginEndpointWrongPassword(t *testing.T) {
	router, env := newTestRouter(t)

	rec := postJSON(t, router, "/authentication/login", map[string]interface{}{
		"email":    "someone@example.com",
		"password": "WrongPass1!",
	}, "")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])

	errs := body["errors"].(map[string]interface{})
	assert.Contains(t, errs, "password")
	assert.Empty(t, env.tokens.byID)
}

func TestLoginEndpointUnknownEmail(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/authentication/login", map[string]interface{}{
		"email":    "nobody@example.com",
		"password": "S3cret!pass",
	}, "")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errs := decodeBody(t, rec)["errors"].(map[string]interface{})
	assert.Contains(t, errs, "email")
}

func TestLogoutEndpoint(t *testing.T) {
	router, env := newTestRouter(t)

	rec := postJSON(t, router, "/authentication/login", map[string]interface{}{
		"email":    "someone@example.com",
		"password": "S3cret!pass",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	secret := body["token"].(map[string]interface{})["token"].(string)

	rec = postJSON(t, router, "/authentication/logout", nil, secret)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.tokens.byID)

	// The revoked token no longer passes the gate.
	rec = postJSON(t, router, "/authentication/logout", nil, secret)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCurrentUserEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/authentication/login", map[string]interface{}{
		"email":    "someone@example.com",
		"password": "S3cret!pass",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	secret := body["token"].(map[string]interface{})["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/authentication/user", nil)
	req.Header.Set("Authorization", "Bearer "+secret)
	userRec := httptest.NewRecorder()
	router.ServeHTTP(userRec, req)

	require.Equal(t, http.StatusOK, userRec.Code)
	userBody := decodeBody(t, userRec)
	userObj := userBody["user"].(map[string]interface{})
	assert.Equal(t, "someone@example.com", userObj["email"])

	// Session metadata accompanies the account: the presented bearer is
	// echoed with its expiry and type.
	tok := userBody["token"].(map[string]interface{})
	assert.Equal(t, "Bearer", tok["type"])
	assert.Equal(t, secret, tok["token"])

	expiresAt, err := time.Parse(timestampLayout, tok["expires_at"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(168*time.Hour), expiresAt, time.Minute)
}

func TestResetPasswordEndpointBadToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/authentication/reset-password", map[string]interface{}{
		"email":                 "someone@example.com",
		"token":                 "garbage",
		"password":              "NewS3cret!",
		"password_confirmation": "NewS3cret!",
	}, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForgotPasswordEndpointUnknownAccount(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/authentication/forgot-password", map[string]interface{}{
		"email": "nobody@example.com",
	}, "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPrivilegedRouteRequiresCapability(t *testing.T) {
	router, env := newTestRouter(t)

	rec := postJSON(t, router, "/authentication/login", map[string]interface{}{
		"email":    "someone@example.com",
		"password": "S3cret!pass",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	secret := body["token"].(map[string]interface{})["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/privilege/role/data", nil)
	req.Header.Set("Authorization", "Bearer "+secret)
	roleRec := httptest.NewRecorder()
	router.ServeHTTP(roleRec, req)
	assert.Equal(t, http.StatusForbidden, roleRec.Code)

	env.roles.allow["Privilege.role.view"] = true

	req = httptest.NewRequest(http.MethodGet, "/privilege/role/data", nil)
	req.Header.Set("Authorization", "Bearer "+secret)
	roleRec = httptest.NewRecorder()
	router.ServeHTTP(roleRec, req)
	assert.Equal(t, http.StatusOK, roleRec.Code)
}
