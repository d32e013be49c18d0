package api

import (
	"net/http"
	"time"

	"identity_hub/internal/api/handler"
	"identity_hub/internal/api/middleware"
	"identity_hub/internal/app/gateway"
	"identity_hub/internal/common"
	"identity_hub/internal/platform/logging"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 30 * time.Second

func baseRouter(log logging.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(requestTimeout))
	return r
}

// NewRouter builds the identity service: registration, login and token
// validation. limit may be nil.
func NewRouter(
	auth handler.Authenticator,
	verifier handler.TokenVerifier,
	limit handler.Limiter,
	log logging.Logger,
) http.Handler {
	r := baseRouter(log)
	authHandler := handler.NewAuthHandler(auth, verifier, log)

	r.Get("/health", authHandler.Health)
	r.Route("/api/auth", func(ar chi.Router) {
		authHandler.RegisterRoutes(ar, limit)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.RespondWithError(w, http.StatusNotFound, "not found")
	})
	return r
}

// NewAdminRouter builds the admin service. Every user endpoint requires a
// bearer token confirmed by authorizer.
func NewAdminRouter(users handler.UserManager, authorizer gateway.Authorizer, log logging.Logger) http.Handler {
	r := baseRouter(log)
	adminHandler := handler.NewAdminHandler(users, log)

	r.Route("/api/admin/users", func(ur chi.Router) {
		adminHandler.RegisterRoutes(ur, middleware.RequireBearer(authorizer, log))
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.RespondWithError(w, http.StatusNotFound, "not found")
	})
	return r
}
