package handler

import (
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/adiwidodo/go-backoffice/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
	log  zerolog.Logger
}

func NewAuthHandler(auth *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserAgent = r.Header.Get("User-Agent")
	req.IPAddress = clientIP(r)

	result, err := h.auth.Login(r.Context(), req)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	writeAccount(w, "Login successful.", result)
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.Signup(r.Context(), req); err != nil {
		respondError(w, h.log, err)
		return
	}

	respondCreated(w, "Account registered.", nil)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	if err := h.auth.Logout(r.Context(), principal); err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Logout successful.", nil)
}

// User returns the authenticated account with its profile, settings, roles,
// effective permissions and the metadata of the presented session token.
func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	result, err := h.auth.CurrentUser(r.Context(), principal)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	// Echo the bearer the client presented; only its digest is stored.
	result.PlainToken = bearerToken(r)

	writeAccount(w, "OK", result)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Password reset email sent.", nil)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req service.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req); err != nil {
		respondError(w, h.log, err)
		return
	}

	respondOK(w, "Password has been reset.", nil)
}
