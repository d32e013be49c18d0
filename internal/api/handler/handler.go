package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"identity_hub/internal/common"
	"identity_hub/internal/platform/logging"
)

const maxBodyBytes = 1 << 20

// Limiter returns the rate limiting middleware for a route scope.
type Limiter func(scope string) func(http.Handler) http.Handler

func (l Limiter) scope(scope string) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return l(scope)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

// respondError writes err as a JSON error envelope. Internal errors are
// logged with their cause and shown to the client without it.
func respondError(ctx context.Context, w http.ResponseWriter, log logging.Logger, err error) {
	if common.KindOf(err) == common.KindInternal {
		log.Error(ctx, "request failed", "error", err)
	}
	common.RespondWithDomainError(w, err)
}
