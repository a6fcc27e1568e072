package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/auth"
	"github.com/imuii-id/imuii-portal/pkg/services"
)

// UsersHandler serves public user profiles for owner pages.
type UsersHandler struct {
	users   services.UserDirectory
	respond *Responder
	logger  *zap.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(users services.UserDirectory, respond *Responder, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{users: users, respond: respond, logger: logger}
}

// RegisterRoutes registers the users handler's routes on the given mux.
func (h *UsersHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/users/{id}", authMiddleware.OptionalAuth(h.Get))
}

// Get handles GET /api/users/{id}
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.respond.Fail(w, http.StatusBadRequest, "invalid_user_id", "Invalid user ID")
		return
	}
	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		h.respond.Error(w, r, err, "get user")
		return
	}
	h.respond.JSON(w, http.StatusOK, user)
}
