package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adiwidodo/go-backoffice/internal/service"
)

type contextKey int

const principalKey contextKey = 0

// PrincipalFrom returns the authenticated principal attached by RequireAuth.
func PrincipalFrom(ctx context.Context) (*service.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*service.Principal)
	return p, ok
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth is the session gate. It resolves the bearer token to a
// principal, evaluating expiry once against the time captured here, and
// attaches the principal to the request context.
func RequireAuth(auth *service.AuthService, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := bearerToken(r)
			if secret == "" {
				writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "Unauthorized."})
				return
			}

			principal, err := auth.ResolveToken(r.Context(), secret, time.Now())
			switch {
			case errors.Is(err, service.ErrTokenExpired):
				writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "Token expired."})
				return
			case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrAccountDisabled):
				writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "Unauthorized."})
				return
			case err != nil:
				respondError(w, log, err)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission gates a route behind a capability. Unknown capabilities
// evaluate to false, so a typo denies rather than allows.
func RequirePermission(auth *service.AuthService, log zerolog.Logger, capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "Unauthorized."})
				return
			}

			allowed, err := auth.Can(r.Context(), principal.User.ID, capability)
			if err != nil {
				respondError(w, log, err)
				return
			}
			if !allowed {
				log.Warn().
					Str("user_id", principal.User.ID).
					Str("capability", capability).
					Msg("Permission denied")
				writeJSON(w, http.StatusForbidden, envelope{Success: false, Message: "Forbidden."})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs each request with its outcome status.
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
