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

const (
	adminHealthMessage = "Admin Service is running"
	msgUserDeleted     = "User deleted successfully"
	msgPasswordReset   = "Password reset successfully"
)

type UserManager interface {
	List(ctx context.Context) ([]*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Update(ctx context.Context, id string, req service.UpdateUserRequest) (*model.User, error)
	Delete(ctx context.Context, id string) error
	Activate(ctx context.Context, id string) (*model.User, error)
	Deactivate(ctx context.Context, id string) (*model.User, error)
	ResetPassword(ctx context.Context, id string, req service.ResetPasswordRequest) error
}

type AdminHandler struct {
	users UserManager
	log   logging.Logger
}

func NewAdminHandler(users UserManager, log logging.Logger) *AdminHandler {
	return &AdminHandler{users: users, log: log.With("module", "admin_handler")}
}

// RegisterRoutes mounts the user management endpoints. Everything except
// the health check sits behind requireAuth.
func (h *AdminHandler) RegisterRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Get("/health", h.health)

	r.Group(func(protected chi.Router) {
		protected.Use(requireAuth)
		protected.Get("/", h.list)
		protected.Get("/username/{username}", h.getByUsername)
		protected.Get("/{id}", h.getByID)
		protected.Put("/{id}", h.update)
		protected.Delete("/{id}", h.delete)
		protected.Post("/{id}/activate", h.activate)
		protected.Post("/{id}/deactivate", h.deactivate)
		protected.Post("/{id}/reset-password", h.resetPassword)
	})
}

func (h *AdminHandler) health(w http.ResponseWriter, _ *http.Request) {
	common.RespondWithText(w, http.StatusOK, adminHealthMessage)
}

func (h *AdminHandler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		respondError(r.Context(), w, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) getByID(w http.ResponseWriter, r *http.Request) {
	h.respondUser(w, r)(h.users.GetByID(r.Context(), chi.URLParam(r, "id")))
}

func (h *AdminHandler) getByUsername(w http.ResponseWriter, r *http.Request) {
	h.respondUser(w, r)(h.users.GetByUsername(r.Context(), chi.URLParam(r, "username")))
}

func (h *AdminHandler) update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	h.respondUser(w, r)(h.users.Update(r.Context(), chi.URLParam(r, "id"), req))
}

func (h *AdminHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(r.Context(), w, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: msgUserDeleted})
}

func (h *AdminHandler) activate(w http.ResponseWriter, r *http.Request) {
	h.respondUser(w, r)(h.users.Activate(r.Context(), chi.URLParam(r, "id")))
}

func (h *AdminHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.respondUser(w, r)(h.users.Deactivate(r.Context(), chi.URLParam(r, "id")))
}

func (h *AdminHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req service.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.NewPassword == "" {
		common.RespondWithError(w, http.StatusBadRequest, "New password is required")
		return
	}
	if err := h.users.ResetPassword(r.Context(), chi.URLParam(r, "id"), req); err != nil {
		respondError(r.Context(), w, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: msgPasswordReset})
}

func (h *AdminHandler) respondUser(w http.ResponseWriter, r *http.Request) func(*model.User, error) {
	return func(u *model.User, err error) {
		if err != nil {
			respondError(r.Context(), w, h.log, err)
			return
		}
		common.RespondWithJSON(w, http.StatusOK, u)
	}
}
