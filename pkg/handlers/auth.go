package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/auth"
	"github.com/imuii-id/imuii-portal/pkg/services"
)

// LogoutResponse represents the response for logout.
type LogoutResponse struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirect_url"`
}

// AuthHandler handles the single sign-on round trip and the current user.
type AuthHandler struct {
	login    auth.LoginRedirect
	cookie   auth.TokenCookie
	sessions *auth.SessionStore
	users    services.UserGateway
	respond  *Responder
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(login auth.LoginRedirect, cookie auth.TokenCookie, sessions *auth.SessionStore, users services.UserGateway, respond *Responder, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		login:    login,
		cookie:   cookie,
		sessions: sessions,
		users:    users,
		respond:  respond,
		logger:   logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /api/me", authMiddleware.RequireAuth(h.Me))
}

// Login handles GET /auth/login?redirect=
// Redirects to the web app's login page, which sends the browser back to
// the callback with the token cookie set.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	returnPath := auth.SafeReturnPath(r.URL.Query().Get("redirect"))
	http.Redirect(w, r, h.login.LoginURL(returnPath), http.StatusFound)
}

// Callback handles GET /auth/callback?redirect=
// Without a token cookie the user did not finish logging in and lands on "/".
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cookie.Name)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("No token found after login callback")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.Redirect(w, r, auth.SafeReturnPath(r.URL.Query().Get("redirect")), http.StatusFound)
}

// Logout handles POST /auth/logout
// Clears the token cookie and the chat session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookie.Clear(w)
	if err := h.sessions.ResetChatSession(w, r); err != nil {
		h.logger.Warn("Failed to reset chat session on logout", zap.Error(err))
	}
	h.respond.JSON(w, http.StatusOK, LogoutResponse{Success: true, RedirectURL: "/"})
}

// Me handles GET /api/me
// The backend's verify endpoint is the authority on who the caller is.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.VerifyUser(r.Context())
	if err != nil {
		h.respond.Error(w, r, err, "verify user")
		return
	}
	h.respond.JSON(w, http.StatusOK, user)
}
