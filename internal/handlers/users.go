package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ssorath/centsible/internal/auth"
	"github.com/ssorath/centsible/internal/models"
	"github.com/ssorath/centsible/internal/services"
	pkghttp "github.com/ssorath/centsible/pkg/http"
)

// UserServiceInterface defines the profile business logic surface.
type UserServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*services.UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, update *services.ProfileUpdate) (*services.UserResponse, error)
	DeactivateAccount(ctx context.Context, userID string) error
}

// UserHandler handles profile reads, updates and account deactivation.
type UserHandler struct {
	service UserServiceInterface
}

func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// GetProfile handles GET /users/me.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "Authentication required")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), user.ID)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]*services.UserResponse{"user": profile})
}

// UpdateProfile handles PATCH /users/me. Omitted fields are untouched.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "Authentication required")
		return
	}

	var req services.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, err.Error())
		return
	}
	if req.Preferences != nil {
		if err := ValidateRequest(req.Preferences); err != nil {
			pkghttp.WriteBadRequest(w, pkghttp.KindValidation, err.Error())
			return
		}
	}

	profile, err := h.service.UpdateProfile(r.Context(), user.ID, &req)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]*services.UserResponse{"user": profile})
}

// DeactivateAccount handles DELETE /users/me, a soft delete.
func (h *UserHandler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "Authentication required")
		return
	}

	if err := h.service.DeactivateAccount(r.Context(), user.ID); err != nil {
		writeUserError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid request")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteError(w, http.StatusConflict, pkghttp.KindValidation, "Resource already exists")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
