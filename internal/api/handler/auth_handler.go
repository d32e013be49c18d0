package handler

import (
	"context"
	"net/http"

	"identity_hub/internal/app/service"
	"identity_hub/internal/common"
	"identity_hub/internal/domain/model"
	"identity_hub/internal/platform/logging"

	"github.com/go-chi/chi/v5"
)

const authHealthMessage = "Auth Service is running"

type Authenticator interface {
	Register(ctx context.Context, req service.RegisterRequest) (*service.AuthResponse, error)
	Login(ctx context.Context, req service.LoginRequest) (*service.AuthResponse, error)
}

type TokenVerifier interface {
	Verify(ctx context.Context, raw string) model.ValidationOutcome
}

type AuthHandler struct {
	auth     Authenticator
	verifier TokenVerifier
	log      logging.Logger
}

func NewAuthHandler(auth Authenticator, verifier TokenVerifier, log logging.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, verifier: verifier, log: log.With("module", "auth_handler")}
}

type validateTokenRequest struct {
	Token string `json:"token"`
}

// RegisterRoutes mounts the identity endpoints. Register and login go
// through limit when it is non-nil.
func (h *AuthHandler) RegisterRoutes(r chi.Router, limit Limiter) {
	r.With(limit.scope("register")).Post("/register", h.register)
	r.With(limit.scope("login")).Post("/login", h.login)
	r.Post("/validate", h.validate)
	r.Get("/health", h.Health)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	resp, err := h.auth.Register(r.Context(), req)
	if err != nil {
		respondError(r.Context(), w, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		respondError(r.Context(), w, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

// validate always answers 200; the verdict is in the body.
func (h *AuthHandler) validate(w http.ResponseWriter, r *http.Request) {
	var req validateTokenRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Token == "" {
		common.RespondWithJSON(w, http.StatusOK, model.InvalidOutcome(model.ReasonTokenMalformed))
		return
	}
	common.RespondWithJSON(w, http.StatusOK, h.verifier.Verify(r.Context(), req.Token))
}

func (h *AuthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	common.RespondWithText(w, http.StatusOK, authHealthMessage)
}
