package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"blogcristao/internal/httputil"
	"blogcristao/internal/model"
)

type UserService interface {
	GetProfile(ctx context.Context, uid string) (*model.User, error)
}

type UserHandler struct {
	users UserService
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// GetProfile handles GET /api/users/{uid}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetProfile(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		writeUnexpected(w, "Get profile", err, "Failed to get user")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}
