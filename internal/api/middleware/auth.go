package middleware

import (
	"context"
	"net/http"

	"identity_hub/internal/app/gateway"
	"identity_hub/internal/common"
	"identity_hub/internal/platform/logging"
)

type contextKey string

const UsernameCtxKey contextKey = "username"

// RequireBearer rejects the request with 401 unless authorizer confirms the
// Authorization header. Nothing downstream runs for a rejected request.
func RequireBearer(authorizer gateway.Authorizer, log logging.Logger) func(http.Handler) http.Handler {
	log = log.With("module", "require_bearer")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			out := authorizer.CheckBearer(r.Context(), r.Header.Get("Authorization"))
			if !out.Valid {
				log.Warn(r.Context(), "request rejected", "path", r.URL.Path, "reason", out.Message)
				common.RespondWithDomainError(w, common.ErrUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), UsernameCtxKey, out.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UsernameFromContext returns the caller confirmed by RequireBearer.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameCtxKey).(string)
	return username, ok && username != ""
}
